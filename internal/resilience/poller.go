package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted reports a poll loop that ran out of attempts before the
// underlying job completed
var ErrExhausted = errors.New("poll attempts exhausted")

// PollPolicy is the caller-side retry policy for a generation job:
// bounded attempts at a fixed interval. The core exposes only a single
// non-blocking poll; this policy owns the cadence.
type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPollPolicy returns the default policy: 30 attempts 10s apart,
// bounding a job wait at five minutes.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxAttempts: 30,
		Interval:    10 * time.Second,
	}
}

// PollFunc performs one poll. It returns done=true when the job reached
// a terminal state; a non-nil error aborts the loop immediately.
type PollFunc func(ctx context.Context) (done bool, err error)

// AwaitCompletion drives fn at the policy's fixed interval until it
// reports done, fails, the attempts run out, or ctx is cancelled. The
// first attempt runs immediately.
func AwaitCompletion(ctx context.Context, policy PollPolicy, fn PollFunc) error {
	if policy.MaxAttempts <= 0 {
		return fmt.Errorf("invalid poll policy: MaxAttempts must be positive, got %d", policy.MaxAttempts)
	}

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		// Don't sleep after the last attempt
		if attempt == policy.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Interval):
		}
	}

	return fmt.Errorf("%w: job still processing after %d attempts", ErrExhausted, policy.MaxAttempts)
}
