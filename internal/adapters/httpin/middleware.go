// Package httpin is the minimal inbound HTTP surface: source connection
// lifecycle, collection refresh, and job listing, fronted by fiber and
// the §7 error taxonomy.
package httpin

import (
	"context"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"
	"github.com/airweave-ai/ingestion-core/pkg/coreerrors"
	nethttp "github.com/airweave-ai/ingestion-core/pkg/net/http"

	"github.com/gofiber/fiber/v2"
)

const localsApiContext = "apiContext"

// AuthResolver exchanges a request's credential (api key or bearer token)
// for the ApiContext it authorizes. Implementations live outside this
// package: an api-key lookup against the organization store, or an auth0
// JWT verifier.
type AuthResolver interface {
	ResolveAPIKey(ctx context.Context, apiKey string) (domain.ApiContext, error)
	ResolveBearerToken(ctx context.Context, token string) (domain.ApiContext, error)
}

// WithAuth resolves the caller's ApiContext from the X-Api-Key or
// Authorization header and stores it on the fiber context, refusing the
// request with UnauthorizedError when neither credential is present or
// the resolver rejects it.
func WithAuth(resolver AuthResolver, logger mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" || c.Path() == "/version" {
			return c.Next()
		}

		ctx := c.UserContext()

		var apiCtx domain.ApiContext
		var err error

		switch {
		case c.Get("X-Api-Key") != "":
			apiCtx, err = resolver.ResolveAPIKey(ctx, c.Get("X-Api-Key"))
		case c.Get("Authorization") != "":
			apiCtx, err = resolver.ResolveBearerToken(ctx, bearerToken(c.Get("Authorization")))
		default:
			err = coreerrors.UnauthorizedError{
				Code:    "MISSING_CREDENTIAL",
				Title:   "Unauthorized",
				Message: "request carries no X-Api-Key or Authorization credential",
			}
		}

		if err != nil {
			return nethttp.WithError(c, err)
		}

		apiCtx.RequestID = c.Get("X-Correlation-ID")
		apiCtx.Logger = tracking.NewLoggerFromContext(ctx)

		c.Locals(localsApiContext, apiCtx)
		c.SetUserContext(tracking.ContextWithLogger(ctx, apiCtx.Logger))

		return c.Next()
	}
}

// RequireRole refuses the request unless the caller's ApiContext carries
// at least min membership role. API-key and system auth paths carry no
// membership and are always refused.
func RequireRole(min domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiCtx, ok := c.Locals(localsApiContext).(domain.ApiContext)
		if !ok {
			return nethttp.WithError(c, coreerrors.UnauthorizedError{
				Code:    "MISSING_CONTEXT",
				Title:   "Unauthorized",
				Message: "no authenticated context on request",
			})
		}

		if apiCtx.IsAPIKeyAuth() {
			return nethttp.WithError(c, coreerrors.ValidateBusinessError(coreerrors.ErrAPIKeyAuthForbidden, "ApiContext"))
		}

		if !apiCtx.HasRole(min) {
			return nethttp.WithError(c, coreerrors.ValidateBusinessError(coreerrors.ErrAdminRoleRequired, "ApiContext"))
		}

		return c.Next()
	}
}

// apiContextFromFiber retrieves the ApiContext WithAuth attached.
func apiContextFromFiber(c *fiber.Ctx) domain.ApiContext {
	apiCtx, _ := c.Locals(localsApiContext).(domain.ApiContext)
	return apiCtx
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return header
}
