package jobs

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Store errors
var (
	ErrNotFound  = errors.New("job not found")
	ErrInvalidID = errors.New("invalid episode id")
)

// Store is the job record store. One generation job is keyed by its
// episode id; writes fully replace the record.
type Store interface {
	// Get retrieves the job for an episode, or ErrNotFound
	Get(ctx context.Context, episodeID string) (*GenerationJob, error)

	// Put saves the job record for an episode
	Put(ctx context.Context, episodeID string, job *GenerationJob) error
}

// MemoryStore is an in-process Store for tests and single-node runs
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]GenerationJob
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]GenerationJob)}
}

// Get retrieves a copy of the stored job
func (s *MemoryStore) Get(ctx context.Context, episodeID string) (*GenerationJob, error) {
	if episodeID == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[episodeID]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

// Put stores a copy of the job
func (s *MemoryStore) Put(ctx context.Context, episodeID string, job *GenerationJob) error {
	if episodeID == "" {
		return ErrInvalidID
	}
	if job == nil {
		return errors.New("nil job")
	}

	job.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[episodeID] = *job
	return nil
}
