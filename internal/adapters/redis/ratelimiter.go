package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/platform/mredis"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"
	"github.com/airweave-ai/ingestion-core/internal/ratelimit"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:org:"

// RateLimiter is the Redis sorted-set sliding-window implementation.
// Each admitted call ZADDs a member scored at the current unix-nano
// timestamp; admission first ZREMRANGEBYSCOREs everything older than
// (now - window), then ZCARDs to get count_within_W.
type RateLimiter struct {
	conn *mredis.Connection
}

// New returns a RateLimiter backed by conn.
func New(conn *mredis.Connection) *RateLimiter {
	return &RateLimiter{conn: conn}
}

func (r *RateLimiter) Check(ctx context.Context, organizationID string, window time.Duration, quota int64) (ratelimit.Result, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "ratelimit.check")
	defer span.End()

	rds, err := r.conn.GetClient(ctx)
	if err != nil {
		return ratelimit.Result{}, fmt.Errorf("ratelimit: get redis client: %w", err)
	}

	key := rateLimitKeyPrefix + organizationID
	now := time.Now().UTC()
	windowStart := now.Add(-window)

	if err := rds.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", windowStart.UnixNano())).Err(); err != nil {
		return ratelimit.Result{}, fmt.Errorf("ratelimit: trim window: %w", err)
	}

	count, err := rds.ZCard(ctx, key).Result()
	if err != nil {
		return ratelimit.Result{}, fmt.Errorf("ratelimit: count window: %w", err)
	}

	if count >= quota {
		retryAfter, err := r.retryAfter(ctx, rds, key, window)
		if err != nil {
			return ratelimit.Result{}, err
		}

		return ratelimit.Result{
			Allowed:    false,
			Limit:      quota,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}

	member := goredis.Z{Score: float64(now.UnixNano()), Member: uuid.New().String()}
	if err := rds.ZAdd(ctx, key, member).Err(); err != nil {
		return ratelimit.Result{}, fmt.Errorf("ratelimit: record call: %w", err)
	}
	rds.Expire(ctx, key, window)

	return ratelimit.Result{
		Allowed:   true,
		Limit:     quota,
		Remaining: quota - count - 1,
	}, nil
}

// retryAfter returns the time until the oldest in-window call ages out.
func (r *RateLimiter) retryAfter(ctx context.Context, rds *goredis.Client, key string, window time.Duration) (time.Duration, error) {
	oldest, err := rds.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: oldest entry: %w", err)
	}

	if len(oldest) == 0 {
		return window, nil
	}

	oldestAt := time.Unix(0, int64(oldest[0].Score))
	retryAfter := oldestAt.Add(window).Sub(time.Now().UTC())

	if retryAfter <= 0 {
		retryAfter = time.Second
	}

	return retryAfter, nil
}
