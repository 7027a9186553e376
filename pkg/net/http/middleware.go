package http

import (
	"strings"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
)

// WithCorrelationID stamps every request with an X-Correlation-ID, generating
// one when the caller didn't supply it.
func WithCorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cid := c.Get(headerCorrelationID)
		if cid == "" {
			cid = uuid.New().String()
		}

		c.Set(headerCorrelationID, cid)
		c.Request().Header.Set(headerCorrelationID, cid)

		return c.Next()
	}
}

// WithCORS enables CORS with the given allowed origin list.
func WithCORS(allowOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		AllowHeaders:     "Accept, Content-Type, Content-Length, Authorization, " + headerAPIKey,
		AllowCredentials: true,
	})
}

// WithLogging is a CLF-style access log middleware; it attaches a
// request-scoped logger (carrying the correlation id) to the request
// context via tracking.ContextWithLogger.
func WithLogging(base mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" {
			return c.Next()
		}

		start := time.Now().UTC()
		cid := c.Get(headerCorrelationID)

		logger := base.WithFields(headerCorrelationID, cid)
		c.SetUserContext(tracking.ContextWithLogger(c.UserContext(), logger))

		err := c.Next()

		logger.Infof("%s %s %s %d %s", c.IP(), c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))

		return err
	}
}

// GetRemoteAddress returns the caller's IP, honoring X-Real-Ip/X-Forwarded-For
// proxy headers before falling back to the raw connection address.
func GetRemoteAddress(c *fiber.Ctx) string {
	if realIP := c.Get(headerRealIP); realIP != "" {
		return realIP
	}

	if forwardedFor := c.Get(headerForwardedFor); forwardedFor != "" {
		parts := strings.Split(forwardedFor, ",")
		return strings.TrimSpace(parts[0])
	}

	return c.IP()
}
</content>
