package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalSink writes objects under a directory on disk and returns URLs
// under a configured base, for deployments where the audio directory is
// served statically.
type LocalSink struct {
	dir     string
	baseURL string
}

// NewLocalSink creates a sink rooted at dir. The directory is created on
// first write, not on construction.
func NewLocalSink(dir, baseURL string) *LocalSink {
	return &LocalSink{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Put writes data to dir/key, creating parent directories as needed
func (s *LocalSink) Put(ctx context.Context, key string, data []byte) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: invalid key %q", ErrStorage, key)
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return s.baseURL + "/" + key, nil
}

// Writable probes the sink directory, for readiness checks
func (s *LocalSink) Writable(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	probe := filepath.Join(s.dir, ".probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	os.Remove(probe)

	return nil
}
