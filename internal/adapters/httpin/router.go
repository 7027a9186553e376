package httpin

import (
	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	nethttp "github.com/airweave-ai/ingestion-core/pkg/net/http"
	"github.com/airweave-ai/ingestion-core/pkg/mmodel"

	"github.com/gofiber/fiber/v2"
)

// Version is stamped into the /version response at build time.
var Version = "dev"

// NewRouter assembles the fiber app: correlation id, CORS, access
// logging, auth, then the source connection and collection routes.
// Mutating routes require at least admin membership; api-key and plain
// member auth are refused by RequireRole.
func NewRouter(logger mlog.Logger, allowOrigins string, auth AuthResolver, sch *CollectionHandler, sc *SourceConnectionHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return nethttp.WithError(c, err)
		},
	})

	app.Use(nethttp.WithCorrelationID())
	app.Use(nethttp.WithCORS(allowOrigins))
	app.Use(nethttp.WithLogging(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return nethttp.OK(c, fiber.Map{"status": "ok"})
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return nethttp.OK(c, fiber.Map{"version": Version})
	})

	app.Use(WithAuth(auth, logger))

	app.Post("/collections/:id/refresh_all", RequireRole(domain.RoleAdmin), sch.RefreshAll)

	app.Post("/source-connections", RequireRole(domain.RoleAdmin), nethttp.WithBody(new(mmodel.CreateSourceConnectionInput), sc.Create))
	app.Delete("/source-connections/:id", RequireRole(domain.RoleAdmin), sc.Delete)
	app.Get("/source-connections/:id/jobs", RequireRole(domain.RoleMember), sc.ListJobs)

	return app
}
