package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupRedisStore creates a test Redis store with miniredis
func setupRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewRedisStore(client, opts...), mr
}

func TestRedisStore_GetNotFound(t *testing.T) {
	store, _ := setupRedisStore(t)

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_InvalidID(t *testing.T) {
	store, _ := setupRedisStore(t)

	_, err := store.Get(context.Background(), "")
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("Expected ErrInvalidID, got %v", err)
	}
}

func TestRedisStore_PutAndGet(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	job := &GenerationJob{
		ID:             "ep-42",
		ProviderJobIDs: []string{"ev-1"},
		Status:         StatusCompleted,
		AudioURL:       "http://localhost:8080/audio/ep-42.wav",
		DurationSeconds: 93,
		FileSizeBytes:  2976044,
		CreatedAt:      time.Now(),
	}

	if err := store.Put(ctx, "ep-42", job); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	loaded, err := store.Get(ctx, "ep-42")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if loaded.Status != StatusCompleted {
		t.Errorf("Expected status completed, got %s", loaded.Status)
	}
	if loaded.AudioURL != job.AudioURL {
		t.Errorf("Expected AudioURL %q, got %q", job.AudioURL, loaded.AudioURL)
	}
	if loaded.DurationSeconds != 93 {
		t.Errorf("Expected DurationSeconds 93, got %d", loaded.DurationSeconds)
	}
}

func TestRedisStore_Overwrite(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	store.Put(ctx, "ep-1", &GenerationJob{ID: "ep-1", Status: StatusPending})
	store.Put(ctx, "ep-1", &GenerationJob{ID: "ep-1", Status: StatusFailed, ErrorMessage: "boom"})

	loaded, err := store.Get(ctx, "ep-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.Status != StatusFailed || loaded.ErrorMessage != "boom" {
		t.Errorf("Put must fully replace the record, got %+v", loaded)
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := setupRedisStore(t, WithTTL(time.Hour))
	ctx := context.Background()

	store.Put(ctx, "ep-1", &GenerationJob{ID: "ep-1", Status: StatusCompleted})

	// Fast-forward time in miniredis past the TTL
	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "ep-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after TTL expiry, got %v", err)
	}
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	store, mr := setupRedisStore(t, WithPrefix("testprefix"))
	ctx := context.Background()

	store.Put(ctx, "ep-1", &GenerationJob{ID: "ep-1", Status: StatusPending})

	if !mr.Exists("testprefix:job:ep-1") {
		t.Error("Expected record under the configured key prefix")
	}
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr := setupRedisStore(t)

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	mr.Close()
	if err := store.Ping(context.Background()); err == nil {
		t.Error("Expected Ping to fail after server close")
	}
}
