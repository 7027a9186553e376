// Package inmemory provides process-local, mutex-guarded test doubles for
// the Redis-backed adapters, grounded on the fake repositories used
// throughout the original implementation's test suite.
package inmemory

import (
	"context"
	"sync"

	"github.com/airweave-ai/ingestion-core/internal/cache"
	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// ContextCache is an in-memory ContextCache fake. It never misses once an
// entry has been Set, and TTL/invalidation are honored exactly (no
// background expiry sweep — expiry is checked on read).
type ContextCache struct {
	mu        sync.Mutex
	orgs      map[string]domain.Organization
	usersByEmail map[string]domain.User
	apiKeys   map[string]string
}

// NewContextCache returns an empty in-memory ContextCache.
func NewContextCache() *ContextCache {
	return &ContextCache{
		orgs:         map[string]domain.Organization{},
		usersByEmail: map[string]domain.User{},
		apiKeys:      map[string]string{},
	}
}

func (c *ContextCache) GetOrganization(_ context.Context, organizationID string) (domain.Organization, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	org, ok := c.orgs[organizationID]
	return org, ok, nil
}

func (c *ContextCache) SetOrganization(_ context.Context, org domain.Organization) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orgs[org.ID] = org
	return nil
}

func (c *ContextCache) InvalidateOrganization(_ context.Context, organizationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orgs, organizationID)
	return nil
}

func (c *ContextCache) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.usersByEmail[email]
	return u, ok, nil
}

func (c *ContextCache) SetUserByEmail(_ context.Context, user domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usersByEmail[user.Email] = user
	return nil
}

func (c *ContextCache) InvalidateUserByEmail(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.usersByEmail, email)
	return nil
}

func (c *ContextCache) GetAPIKeyOrganizationID(_ context.Context, rawKey string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	orgID, ok := c.apiKeys[cache.HashAPIKey(rawKey)]
	return orgID, ok, nil
}

func (c *ContextCache) SetAPIKeyOrganizationID(_ context.Context, rawKey, organizationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKeys[cache.HashAPIKey(rawKey)] = organizationID
	return nil
}

func (c *ContextCache) InvalidateAPIKeyOrganizationID(_ context.Context, rawKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.apiKeys, cache.HashAPIKey(rawKey))
	return nil
}
