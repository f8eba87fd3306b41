package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrStorage reports a failed sink write
var ErrStorage = errors.New("storage write failed")

// Sink is the object-storage collaborator: write bytes under a key, get
// back a public URL for the stored object.
type Sink interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// MemorySink is an in-process Sink for tests
type MemorySink struct {
	mu      sync.Mutex
	BaseURL string
	Objects map[string][]byte
}

// NewMemorySink creates an empty in-process sink
func NewMemorySink(baseURL string) *MemorySink {
	return &MemorySink{
		BaseURL: baseURL,
		Objects: make(map[string][]byte),
	}
}

// Put stores the bytes in memory and returns a URL under BaseURL
func (s *MemorySink) Put(ctx context.Context, key string, data []byte) (string, error) {
	if key == "" {
		return "", errors.New("empty storage key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.Objects[key] = stored

	return s.BaseURL + "/" + key, nil
}
