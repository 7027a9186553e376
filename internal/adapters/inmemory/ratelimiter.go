package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/ratelimit"
)

// RateLimiter is an in-memory sliding-window fake, grounded on the same
// fake-repository idiom as ContextCache.
type RateLimiter struct {
	mu    sync.Mutex
	calls map[string][]time.Time
}

// NewRateLimiter returns an empty in-memory RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{calls: map[string][]time.Time{}}
}

func (r *RateLimiter) Check(_ context.Context, organizationID string, window time.Duration, quota int64) (ratelimit.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	cutoff := now.Add(-window)

	calls := r.calls[organizationID]
	kept := calls[:0]
	for _, at := range calls {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if int64(len(kept)) >= quota {
		retryAfter := window
		if len(kept) > 0 {
			retryAfter = kept[0].Add(window).Sub(now)
			if retryAfter <= 0 {
				retryAfter = time.Second
			}
		}

		r.calls[organizationID] = kept

		return ratelimit.Result{
			Allowed:    false,
			Limit:      quota,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}

	kept = append(kept, now)
	r.calls[organizationID] = kept

	return ratelimit.Result{
		Allowed:   true,
		Limit:     quota,
		Remaining: quota - int64(len(kept)),
	}, nil
}

// Clear resets all recorded calls, for test isolation between cases.
func (r *RateLimiter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = map[string][]time.Time{}
}
