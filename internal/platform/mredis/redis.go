// Package mredis is the redis connection hub backing the context cache and
// the rate limiter's sliding-window counters.
package mredis

import (
	"context"

	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"

	"github.com/redis/go-redis/v9"
)

// Connection is a hub which deals with redis connections.
type Connection struct {
	ConnectionStringSource string
	Client                 *redis.Client
	Connected              bool
	Logger                 mlog.Logger
}

// Connect keeps a singleton connection with redis.
func (rc *Connection) Connect(ctx context.Context) error {
	rc.Logger.Info("connecting to redis...")

	opts, err := redis.ParseURL(rc.ConnectionStringSource)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(opts)

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rc.Logger.Errorf("redis ping failed: %v", err)
		return err
	}

	rc.Logger.Info("connected to redis")

	rc.Connected = true
	rc.Client = rdb

	return nil
}

// GetClient returns the redis client, connecting lazily if necessary.
func (rc *Connection) GetClient(ctx context.Context) (*redis.Client, error) {
	if rc.Client == nil {
		if err := rc.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return rc.Client, nil
}
</content>
