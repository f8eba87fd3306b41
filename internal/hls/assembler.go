package hls

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/narrately/audio-forge/internal/observability"
)

// ErrFormat reports a playlist carrying no usable segment references
var ErrFormat = errors.New("malformed hls playlist")

// Assembler downloads a segmented stream and stitches it back together.
// Segments are fetched strictly sequentially in playlist order: ordering
// is the correctness invariant for reassembly, and the raw bytes only
// reconstruct the stream when concatenated in the original temporal
// sequence. Any single segment failure aborts the whole assembly; a
// partial asset is never returned.
type Assembler struct {
	client *http.Client
	logger zerolog.Logger
}

// NewAssembler creates an assembler using the given HTTP client.
// A nil client falls back to a 60s-timeout default.
func NewAssembler(client *http.Client) *Assembler {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Assembler{
		client: client,
		logger: observability.GetLogger().With().Str("component", "hls").Logger(),
	}
}

// Assemble fetches the playlist at playlistURL, resolves its segment
// references, downloads every segment in order and returns the
// concatenated bytes.
func (a *Assembler) Assemble(ctx context.Context, playlistURL string) ([]byte, error) {
	playlist, err := a.fetch(ctx, playlistURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}

	segments := ResolveSegments(playlistURL, string(playlist))
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments in %s", ErrFormat, playlistURL)
	}

	a.logger.Debug().
		Str("playlist", playlistURL).
		Int("segments", len(segments)).
		Msg("Assembling segmented stream")

	var buf bytes.Buffer
	for i, segURL := range segments {
		data, err := a.fetch(ctx, segURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch segment %d of %d: %w", i+1, len(segments), err)
		}
		buf.Write(data)
		observability.RecordSegmentFetched()
	}

	return buf.Bytes(), nil
}

// ResolveSegments parses playlist text and resolves each segment
// reference to an absolute URL. Lines starting with '#' are directives,
// blank lines are skipped, and relative references resolve against the
// playlist URL's directory prefix (everything up to and including the
// last '/').
func ResolveSegments(playlistURL, playlist string) []string {
	base := playlistURL
	if idx := strings.LastIndex(playlistURL, "/"); idx >= 0 {
		base = playlistURL[:idx+1]
	}

	var segments []string
	for _, line := range strings.Split(playlist, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "://") {
			segments = append(segments, line)
		} else {
			segments = append(segments, base+line)
		}
	}

	return segments
}

// fetch performs one GET and reads the whole body
func (a *Assembler) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}
