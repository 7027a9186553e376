// Package cache defines the context cache contract: memoized lookups for
// organization by id, user by email, and api-key by its hash, on the hot
// ingress path ahead of every core operation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// TTL is the adapter-default staleness bound for attributes not
// explicitly invalidated (plan changes, feature flags).
const TTL = 30 * time.Second

// ContextCache memoizes the three hot-path lookups. Implementations must
// be safe for concurrent use: the cache is process-wide. A miss is
// treated as a cache-layer concern only — callers always fall back to the
// system of record and backfill via the Set* methods.
type ContextCache interface {
	GetOrganization(ctx context.Context, organizationID string) (domain.Organization, bool, error)
	SetOrganization(ctx context.Context, org domain.Organization) error
	InvalidateOrganization(ctx context.Context, organizationID string) error

	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	SetUserByEmail(ctx context.Context, user domain.User) error
	InvalidateUserByEmail(ctx context.Context, email string) error

	// GetAPIKeyOrganizationID resolves a raw api key to its owning
	// organization id. Callers must pass the raw key; HashAPIKey is
	// applied internally so the raw key never becomes part of a cache
	// key or a log line.
	GetAPIKeyOrganizationID(ctx context.Context, rawKey string) (string, bool, error)
	SetAPIKeyOrganizationID(ctx context.Context, rawKey, organizationID string) error
	InvalidateAPIKeyOrganizationID(ctx context.Context, rawKey string) error
}

// HashAPIKey returns the SHA-256 hex digest (64 chars) used as the cache
// key for an api key lookup. The digest never contains any substring of
// the raw key by construction (invariant 2 / scenario S3).
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}
