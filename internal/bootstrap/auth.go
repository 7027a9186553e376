package bootstrap

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// organizationFinder is the subset of postgres.OrganizationRepository
// the auth resolver needs.
type organizationFinder interface {
	Load(ctx context.Context, organizationID string) (domain.Organization, error)
	FindByAPIKeyHash(ctx context.Context, hash string) (domain.Organization, error)
}

// contextCache is the subset of redis.ContextCache / inmemory.ContextCache
// the auth resolver needs; both adapters already satisfy it.
type contextCache interface {
	GetAPIKeyOrganizationID(ctx context.Context, rawKey string) (string, bool, error)
	SetAPIKeyOrganizationID(ctx context.Context, rawKey, organizationID string) error
	GetOrganization(ctx context.Context, organizationID string) (domain.Organization, bool, error)
	SetOrganization(ctx context.Context, org domain.Organization) error
}

// authResolver implements httpin.AuthResolver.
//
// An API key authenticates a bare organization: no acting user, no
// membership role, so RequireRole always refuses it regardless of the
// minimum role (API-key callers never pass an admin-only route).
//
// A bearer token is an Auth0-issued JWT whose custom claims name the
// acting user, organization, and membership role directly — this core
// keeps no membership table of its own, so the token is the source of
// truth for role once its signature verifies.
type authResolver struct {
	orgs      organizationFinder
	cache     contextCache
	jwtSecret []byte
}

func newAuthResolver(orgs organizationFinder, cache contextCache, jwtSecret []byte) *authResolver {
	return &authResolver{orgs: orgs, cache: cache, jwtSecret: jwtSecret}
}

func hashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ResolveAPIKey satisfies httpin.AuthResolver.
func (a *authResolver) ResolveAPIKey(ctx context.Context, apiKey string) (domain.ApiContext, error) {
	if orgID, ok, err := a.cache.GetAPIKeyOrganizationID(ctx, apiKey); err == nil && ok {
		org, err := a.loadOrganization(ctx, orgID)
		if err != nil {
			return domain.ApiContext{}, err
		}

		return domain.ApiContext{AuthMethod: domain.AuthMethodAPIKey, Organization: org}, nil
	}

	org, err := a.orgs.FindByAPIKeyHash(ctx, hashAPIKey(apiKey))
	if err != nil {
		return domain.ApiContext{}, fmt.Errorf("bootstrap: resolve api key: %w", err)
	}

	if err := a.cache.SetAPIKeyOrganizationID(ctx, apiKey, org.ID); err != nil {
		return domain.ApiContext{}, fmt.Errorf("bootstrap: cache api key: %w", err)
	}

	return domain.ApiContext{AuthMethod: domain.AuthMethodAPIKey, Organization: org}, nil
}

// bearerClaims is the subset of an Auth0 access token this core reads.
type bearerClaims struct {
	OrganizationID string `json:"org_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// ResolveBearerToken satisfies httpin.AuthResolver.
func (a *authResolver) ResolveBearerToken(ctx context.Context, token string) (domain.ApiContext, error) {
	parsed, err := jwt.ParseWithClaims(token, &bearerClaims{}, func(*jwt.Token) (any, error) {
		return a.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.ApiContext{}, fmt.Errorf("bootstrap: resolve bearer token: %w", err)
	}

	claims, ok := parsed.Claims.(*bearerClaims)
	if !ok || claims.OrganizationID == "" {
		return domain.ApiContext{}, fmt.Errorf("bootstrap: resolve bearer token: missing org_id claim")
	}

	org, err := a.loadOrganization(ctx, claims.OrganizationID)
	if err != nil {
		return domain.ApiContext{}, err
	}

	return domain.ApiContext{
		AuthMethod:     domain.AuthMethodAuth0,
		Organization:   org,
		User:           &domain.User{ID: claims.Subject, Email: claims.Email},
		MembershipRole: domain.Role(claims.Role),
	}, nil
}

func (a *authResolver) loadOrganization(ctx context.Context, organizationID string) (domain.Organization, error) {
	if org, ok, err := a.cache.GetOrganization(ctx, organizationID); err == nil && ok {
		return org, nil
	}

	org, err := a.orgs.Load(ctx, organizationID)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("bootstrap: load organization %s: %w", organizationID, err)
	}

	if err := a.cache.SetOrganization(ctx, org); err != nil {
		return domain.Organization{}, fmt.Errorf("bootstrap: cache organization %s: %w", organizationID, err)
	}

	return org, nil
}
