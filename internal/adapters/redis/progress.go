package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/platform/mredis"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"
)

// ProgressPublisher is the Redis-backed eventbus.ProgressPublisher. It
// republishes on a Redis pub/sub channel rather than persisting
// anything: a missed progress tick is not replayed, callers poll the
// source of truth (SyncJob) for anything they can't afford to miss.
type ProgressPublisher struct {
	conn *mredis.Connection
}

// NewProgressPublisher returns a ProgressPublisher backed by conn.
func NewProgressPublisher(conn *mredis.Connection) *ProgressPublisher {
	return &ProgressPublisher{conn: conn}
}

// PublishProgress satisfies eventbus.ProgressPublisher.
func (p *ProgressPublisher) PublishProgress(ctx context.Context, _ string, channel string, snapshot map[string]any) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "redis.progress_publisher.publish_progress")
	defer span.End()

	rds, err := p.conn.GetClient(ctx)
	if err != nil {
		return fmt.Errorf("redis progress: get client: %w", err)
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("redis progress: marshal snapshot: %w", err)
	}

	if err := rds.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("redis progress: publish: %w", err)
	}

	return nil
}
