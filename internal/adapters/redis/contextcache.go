// Package redis adapts internal/cache and internal/ratelimit onto the
// shared Redis connection.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/cache"
	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mredis"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"

	goredis "github.com/redis/go-redis/v9"
)

const (
	orgKeyPrefix     = "ctxcache:org:"
	userKeyPrefix    = "ctxcache:user:"
	apiKeyKeyPrefix  = "ctxcache:apikey:"
)

// ContextCache is the Redis-backed ContextCache. A miss or a backend
// error is always treated as a full cache miss — the context cache never
// surfaces errors to callers, per the §4.1 failure policy.
type ContextCache struct {
	conn *mredis.Connection
}

// New returns a ContextCache backed by conn.
func New(conn *mredis.Connection) *ContextCache {
	return &ContextCache{conn: conn}
}

func (c *ContextCache) client(ctx context.Context) (*goredis.Client, bool) {
	rds, err := c.conn.GetClient(ctx)
	if err != nil {
		return nil, false
	}
	return rds, true
}

func (c *ContextCache) GetOrganization(ctx context.Context, organizationID string) (domain.Organization, bool, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "cache.get_organization")
	defer span.End()

	rds, ok := c.client(ctx)
	if !ok {
		return domain.Organization{}, false, nil
	}

	raw, err := rds.Get(ctx, orgKeyPrefix+organizationID).Bytes()
	if errors.Is(err, goredis.Nil) || err != nil {
		return domain.Organization{}, false, nil
	}

	var org domain.Organization
	if err := json.Unmarshal(raw, &org); err != nil {
		return domain.Organization{}, false, nil
	}

	return org, true, nil
}

func (c *ContextCache) SetOrganization(ctx context.Context, org domain.Organization) error {
	rds, ok := c.client(ctx)
	if !ok {
		return nil
	}

	raw, err := json.Marshal(org)
	if err != nil {
		return fmt.Errorf("redis contextcache: marshal organization: %w", err)
	}

	return rds.Set(ctx, orgKeyPrefix+org.ID, raw, cache.TTL).Err()
}

func (c *ContextCache) InvalidateOrganization(ctx context.Context, organizationID string) error {
	rds, ok := c.client(ctx)
	if !ok {
		return nil
	}
	return rds.Del(ctx, orgKeyPrefix+organizationID).Err()
}

func (c *ContextCache) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	rds, ok := c.client(ctx)
	if !ok {
		return domain.User{}, false, nil
	}

	raw, err := rds.Get(ctx, userKeyPrefix+email).Bytes()
	if errors.Is(err, goredis.Nil) || err != nil {
		return domain.User{}, false, nil
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, false, nil
	}

	return user, true, nil
}

func (c *ContextCache) SetUserByEmail(ctx context.Context, user domain.User) error {
	rds, ok := c.client(ctx)
	if !ok {
		return nil
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("redis contextcache: marshal user: %w", err)
	}

	return rds.Set(ctx, userKeyPrefix+user.Email, raw, cache.TTL).Err()
}

func (c *ContextCache) InvalidateUserByEmail(ctx context.Context, email string) error {
	rds, ok := c.client(ctx)
	if !ok {
		return nil
	}
	return rds.Del(ctx, userKeyPrefix+email).Err()
}

func (c *ContextCache) GetAPIKeyOrganizationID(ctx context.Context, rawKey string) (string, bool, error) {
	rds, ok := c.client(ctx)
	if !ok {
		return "", false, nil
	}

	digest := cache.HashAPIKey(rawKey)

	orgID, err := rds.Get(ctx, apiKeyKeyPrefix+digest).Result()
	if errors.Is(err, goredis.Nil) || err != nil {
		return "", false, nil
	}

	return orgID, true, nil
}

func (c *ContextCache) SetAPIKeyOrganizationID(ctx context.Context, rawKey, organizationID string) error {
	rds, ok := c.client(ctx)
	if !ok {
		return nil
	}

	digest := cache.HashAPIKey(rawKey)
	return rds.Set(ctx, apiKeyKeyPrefix+digest, organizationID, cache.TTL).Err()
}

func (c *ContextCache) InvalidateAPIKeyOrganizationID(ctx context.Context, rawKey string) error {
	rds, ok := c.client(ctx)
	if !ok {
		return nil
	}

	digest := cache.HashAPIKey(rawKey)
	return rds.Del(ctx, apiKeyKeyPrefix+digest).Err()
}
