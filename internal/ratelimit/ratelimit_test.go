package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/adapters/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCheck_S8 grounds scenario S8: plan {N=10, W=60s}; the 11th call
// within the window fails with retry_after in (0, 60].
func TestCheck_S8(t *testing.T) {
	limiter := inmemory.NewRateLimiter()
	ctx := context.Background()
	window := 60 * time.Second

	for i := 0; i < 10; i++ {
		res, err := limiter.Check(ctx, "org-1", window, 10)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d should be allowed", i+1)
	}

	res, err := limiter.Check(ctx, "org-1", window, 10)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, window)
}

// TestCheck_Invariant6_NoUnderflow grounds invariant 6: remaining is
// never negative, and retry_after is always > 0 when rejected.
func TestCheck_Invariant6_NoUnderflow(t *testing.T) {
	limiter := inmemory.NewRateLimiter()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		res, err := limiter.Check(ctx, "org-1", time.Minute, 5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Remaining, int64(0))
		if !res.Allowed {
			assert.Greater(t, res.RetryAfter, time.Duration(0))
		}
	}
}

func TestCheck_SeparateOrganizationsDoNotShareWindow(t *testing.T) {
	limiter := inmemory.NewRateLimiter()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := limiter.Check(ctx, "org-a", time.Minute, 5)
		require.NoError(t, err)
	}

	res, err := limiter.Check(ctx, "org-b", time.Minute, 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
