package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/narrately/audio-forge/internal/chunker"
	"github.com/narrately/audio-forge/internal/jobs"
	"github.com/narrately/audio-forge/internal/observability"
	"github.com/narrately/audio-forge/internal/provider"
	"github.com/narrately/audio-forge/internal/resilience"
	"github.com/narrately/audio-forge/internal/storage"
	"github.com/narrately/audio-forge/internal/wav"
)

// TTSProvider is the asynchronous synthesis engine: a submission returns
// an opaque job id, completion is read from a one-shot event stream.
type TTSProvider interface {
	Submit(ctx context.Context, req provider.SubmitRequest) (string, error)
	PollOnce(ctx context.Context, jobID string) (provider.PollResult, error)
}

// StreamAssembler reconstructs a segmented stream into one byte buffer
type StreamAssembler interface {
	Assemble(ctx context.Context, playlistURL string) ([]byte, error)
}

// SubmitResult acknowledges an accepted generation request
type SubmitResult struct {
	EpisodeID      string   `json:"episodeId"`
	ProviderJobIDs []string `json:"providerJobIds"`
	ChunkCount     int      `json:"chunkCount"`
}

// Config holds the orchestrator's collaborators and policy knobs
type Config struct {
	Provider       TTSProvider
	Store          jobs.Store
	Sink           storage.Sink
	Assembler      StreamAssembler
	Fetch          *http.Client // direct result downloads
	Breaker        *resilience.CircuitBreaker
	ChunkOptions   chunker.Options
	ChunkThreshold int // scripts over this many words are chunked before submission
}

// Orchestrator owns the generation job state machine: submit, record,
// poll once per invocation, and on completion turn whatever the provider
// returned into a single stored audio asset. All failures during a poll
// are terminal: the record moves to failed and stays there. The
// orchestrator never retries a poll internally; cadence belongs to the
// caller (see resilience.AwaitCompletion).
type Orchestrator struct {
	cfg    Config
	logger zerolog.Logger
}

// NewOrchestrator wires the orchestrator
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Fetch == nil {
		cfg.Fetch = &http.Client{Timeout: 120 * time.Second}
	}
	if cfg.ChunkOptions.MaxWordsPerChunk == 0 {
		cfg.ChunkOptions = chunker.DefaultOptions()
	}
	if cfg.ChunkThreshold == 0 {
		cfg.ChunkThreshold = cfg.ChunkOptions.MaxWordsPerChunk
	}
	return &Orchestrator{
		cfg:    cfg,
		logger: observability.GetLogger().With().Str("component", "orchestrator").Logger(),
	}
}

// Submit chunks the script if it exceeds the configured threshold,
// submits each piece to the provider in playback order, and records a
// pending job keyed by the episode id. Nothing is persisted unless every
// submission was accepted.
func (o *Orchestrator) Submit(ctx context.Context, episodeID, text, style string) (*SubmitResult, error) {
	if episodeID == "" {
		return nil, jobs.ErrInvalidID
	}

	pieces := []string{text}
	if len(strings.Fields(text)) > o.cfg.ChunkThreshold {
		chunks := chunker.Chunk(text, o.cfg.ChunkOptions)
		pieces = pieces[:0]
		for _, c := range chunks {
			pieces = append(pieces, c.Text)
		}
		observability.RecordChunks(len(pieces))
		o.logger.Info().Str("episode_id", episodeID).Int("chunks", len(pieces)).Msg("Script chunked for submission")
	}

	providerIDs := make([]string, 0, len(pieces))
	for i, piece := range pieces {
		jobID, err := o.submitOne(ctx, provider.SubmitRequest{Text: piece, Style: style})
		if err != nil {
			observability.RecordSubmission(false)
			observability.RecordError("submission", "orchestrator")
			return nil, fmt.Errorf("chunk %d of %d: %w", i+1, len(pieces), err)
		}
		providerIDs = append(providerIDs, jobID)
	}
	observability.RecordSubmission(true)

	job := &jobs.GenerationJob{
		ID:             episodeID,
		ProviderJobIDs: providerIDs,
		Status:         jobs.StatusPending,
		ChunkCount:     len(pieces),
		CreatedAt:      time.Now(),
	}
	if err := o.cfg.Store.Put(ctx, episodeID, job); err != nil {
		return nil, fmt.Errorf("failed to record job: %w", err)
	}
	observability.RecordJobStart()

	o.logger.Info().
		Str("episode_id", episodeID).
		Strs("provider_job_ids", providerIDs).
		Msg("Generation job submitted")

	return &SubmitResult{
		EpisodeID:      episodeID,
		ProviderJobIDs: providerIDs,
		ChunkCount:     len(pieces),
	}, nil
}

// Status reads the current record for an episode without touching the
// provider
func (o *Orchestrator) Status(ctx context.Context, episodeID string) (*jobs.GenerationJob, error) {
	return o.cfg.Store.Get(ctx, episodeID)
}

// submitOne sends a single provider call, through the circuit breaker
// when one is configured
func (o *Orchestrator) submitOne(ctx context.Context, req provider.SubmitRequest) (string, error) {
	if o.cfg.Breaker == nil {
		return o.cfg.Provider.Submit(ctx, req)
	}

	var jobID string
	err := o.cfg.Breaker.Call(func() error {
		var err error
		jobID, err = o.cfg.Provider.Submit(ctx, req)
		return err
	})
	observability.UpdateCircuitBreakerState("tts-provider", int(o.cfg.Breaker.GetState()))
	return jobID, err
}

// Poll advances the job for an episode by at most one provider read per
// outstanding chunk. Terminal jobs are returned unchanged: polling an
// exhausted provider stream again is unsafe, so the idempotent no-op is
// load-bearing, not a convenience. A Processing outcome leaves the
// record untouched except for newly recorded chunk completions.
//
// The returned error covers record-store access only; generation
// failures land in the returned job as a terminal failed status.
func (o *Orchestrator) Poll(ctx context.Context, episodeID string) (*jobs.GenerationJob, error) {
	job, err := o.cfg.Store.Get(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return job, nil
	}

	logger := o.logger.With().Str("episode_id", episodeID).Logger()

	// Resume after the chunks whose streams were already drained
	for job.ChunksPolled < len(job.ProviderJobIDs) {
		idx := job.ChunksPolled
		result, err := o.cfg.Provider.PollOnce(ctx, job.ProviderJobIDs[idx])
		if err != nil {
			observability.RecordPoll("error")
			return o.fail(ctx, job, fmt.Sprintf("poll failed for chunk %d: %v", idx+1, err)), nil
		}

		switch result.State {
		case provider.StateError:
			observability.RecordPoll("error")
			return o.fail(ctx, job, result.Message), nil

		case provider.StateProcessing:
			observability.RecordPoll("processing")
			if idx > 0 {
				// Persist refs drained so far; those streams cannot be read again
				job.Status = jobs.StatusProcessing
				if err := o.cfg.Store.Put(ctx, episodeID, job); err != nil {
					return nil, fmt.Errorf("failed to record progress: %w", err)
				}
			}
			logger.Debug().Int("chunks_done", idx).Int("chunks_total", len(job.ProviderJobIDs)).Msg("Job still processing")
			return job, nil

		case provider.StateCompleted:
			observability.RecordPoll("completed")
			refs, err := extractResultRefs(result.Data)
			if err != nil {
				return o.fail(ctx, job, fmt.Sprintf("unusable completion payload for chunk %d: %v", idx+1, err)), nil
			}
			job.ResultRefs = append(job.ResultRefs, refs...)
			job.ChunksPolled++
		}
	}

	// Every provider stream drained: reconstruct the final asset
	final, err := o.reconstruct(ctx, job.ResultRefs)
	if err != nil {
		observability.RecordError("reconstruction", "orchestrator")
		return o.fail(ctx, job, err.Error()), nil
	}

	seconds, exact := wav.Duration(final)
	if !exact {
		logger.Warn().Int("estimate_seconds", seconds).Msg("Duration estimated from byte length")
	}

	key := fmt.Sprintf("episodes/%s/%s.wav", episodeID, uuid.New().String())
	audioURL, err := o.cfg.Sink.Put(ctx, key, final)
	if err != nil {
		observability.RecordStorageWrite(false)
		return o.fail(ctx, job, err.Error()), nil
	}
	observability.RecordStorageWrite(true)
	observability.RecordMergedBytes(int64(len(final)))
	observability.RecordAudioDuration(seconds)

	job.Status = jobs.StatusCompleted
	job.AudioURL = audioURL
	job.DurationSeconds = seconds
	job.FileSizeBytes = int64(len(final))
	job.ErrorMessage = ""
	if err := o.cfg.Store.Put(ctx, episodeID, job); err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}
	observability.RecordJobEnd(time.Since(job.CreatedAt).Seconds())

	logger.Info().
		Str("audio_url", audioURL).
		Int("duration_seconds", seconds).
		Int64("file_size_bytes", job.FileSizeBytes).
		Msg("Generation job completed")

	return job, nil
}

// Await polls under the caller's cadence until the job reaches a
// terminal state, the attempt budget runs out, or the context is
// cancelled. The last observed job is returned alongside any loop error.
func (o *Orchestrator) Await(ctx context.Context, episodeID string, policy resilience.PollPolicy) (*jobs.GenerationJob, error) {
	var last *jobs.GenerationJob
	err := resilience.AwaitCompletion(ctx, policy, func(ctx context.Context) (bool, error) {
		job, err := o.Poll(ctx, episodeID)
		if err != nil {
			return false, err
		}
		last = job
		return job.IsTerminal(), nil
	})
	return last, err
}

// fail moves the job to its terminal failed state and persists it
func (o *Orchestrator) fail(ctx context.Context, job *jobs.GenerationJob, message string) *jobs.GenerationJob {
	job.Status = jobs.StatusFailed
	job.ErrorMessage = message

	if err := o.cfg.Store.Put(ctx, job.ID, job); err != nil {
		o.logger.Error().Err(err).Str("episode_id", job.ID).Msg("Failed to persist failed job")
	}
	observability.RecordJobEnd(time.Since(job.CreatedAt).Seconds())
	observability.RecordError("generation", "orchestrator")

	o.logger.Error().Str("episode_id", job.ID).Str("error", message).Msg("Generation job failed")

	return job
}

// reconstruct turns the provider's result references into one playable
// asset. A playlist reference routes through the segmented-stream
// assembler; a plain reference downloads directly; multiple references
// from a chunked submission merge into a single container. References
// resolve strictly in order; order is the playback sequence.
func (o *Orchestrator) reconstruct(ctx context.Context, refs []string) ([]byte, error) {
	parts := make([][]byte, 0, len(refs))
	for i, ref := range refs {
		var data []byte
		var err error
		if isPlaylistRef(ref) {
			data, err = o.cfg.Assembler.Assemble(ctx, ref)
		} else {
			data, err = o.download(ctx, ref)
		}
		if err != nil {
			return nil, fmt.Errorf("result %d of %d: %w", i+1, len(refs), err)
		}
		parts = append(parts, data)
	}

	if len(parts) == 1 {
		return parts[0], nil
	}
	return wav.Merge(parts)
}

// download fetches one result reference in full
func (o *Orchestrator) download(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.cfg.Fetch.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d downloading %s", resp.StatusCode, ref)
	}

	return io.ReadAll(resp.Body)
}

// isPlaylistRef reports whether a result reference points at a
// segmented-stream playlist rather than a single file
func isPlaylistRef(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return strings.HasSuffix(ref, ".m3u8")
	}
	return strings.HasSuffix(u.Path, ".m3u8")
}

// extractResultRefs pulls the audio references out of a completion
// payload. Providers return either a bare URL string, a list of URLs, or
// objects carrying a url/path/audio_url field.
func extractResultRefs(data json.RawMessage) ([]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty completion payload")
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil && asString != "" {
		return []string{asString}, nil
	}

	var asStrings []string
	if err := json.Unmarshal(data, &asStrings); err == nil && len(asStrings) > 0 {
		return asStrings, nil
	}

	type refObject struct {
		URL      string `json:"url"`
		Path     string `json:"path"`
		AudioURL string `json:"audio_url"`
	}
	pick := func(r refObject) string {
		if r.URL != "" {
			return r.URL
		}
		if r.AudioURL != "" {
			return r.AudioURL
		}
		return r.Path
	}

	var asObjects []refObject
	if err := json.Unmarshal(data, &asObjects); err == nil && len(asObjects) > 0 {
		refs := make([]string, 0, len(asObjects))
		for _, r := range asObjects {
			if ref := pick(r); ref != "" {
				refs = append(refs, ref)
			}
		}
		if len(refs) > 0 {
			return refs, nil
		}
	}

	var asObject refObject
	if err := json.Unmarshal(data, &asObject); err == nil {
		if ref := pick(asObject); ref != "" {
			return []string{ref}, nil
		}
	}

	return nil, fmt.Errorf("no audio reference in payload %s", truncate(string(data), 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
