package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	"github.com/airweave-ai/ingestion-core/pkg"
)

// HTTPServer runs the inbound fiber surface and shuts it down gracefully
// on SIGINT/SIGTERM.
type HTTPServer struct {
	app    *httpApp
	logger mlog.Logger
}

// NewHTTPServer returns a pkg.App wrapping app.
func NewHTTPServer(app *httpApp, logger mlog.Logger) *HTTPServer {
	return &HTTPServer{app: app, logger: logger}
}

// Run satisfies pkg.App. It blocks until the process receives a
// shutdown signal, then gives in-flight requests 10 seconds to drain.
func (s *HTTPServer) Run(_ *pkg.Launcher) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Infof("http server listening on %s", s.app.address)

		if err := s.app.handler.Listen(s.app.address); err != nil {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	s.logger.Info("http server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.app.handler.ShutdownWithContext(ctx)
}
