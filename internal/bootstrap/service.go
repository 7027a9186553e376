package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	"github.com/airweave-ai/ingestion-core/internal/platform/mtelemetry"
	"github.com/airweave-ai/ingestion-core/internal/platform/mzap"
	"github.com/airweave-ai/ingestion-core/pkg"
)

// Service is the application glue: one Config, one Container, one
// Launcher running the HTTP surface and the job-polling worker side by
// side. This is the only thing cmd/syncworker's main.go constructs.
type Service struct {
	Config    *Config
	Logger    mlog.Logger
	Telemetry *mtelemetry.Telemetry
	container *Container
}

// NewService loads configuration, initializes logging and telemetry,
// and wires the full adapter graph.
func NewService(ctx context.Context) (*Service, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: new service: %w", err)
	}

	logger := mzap.InitializeLogger()

	var telemetry *mtelemetry.Telemetry
	if cfg.EnableTelemetry {
		telemetry, err = (&mtelemetry.Telemetry{
			ServiceName:               cfg.OtelServiceName,
			ServiceVersion:            cfg.OtelServiceVersion,
			DeploymentEnv:             cfg.OtelDeploymentEnv,
			CollectorExporterEndpoint: cfg.OtelColExporterEndpoint,
		}).Initialize(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: initialize telemetry: %w", err)
		}
	}

	container, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: new service: %w", err)
	}

	return &Service{Config: cfg, Logger: logger, Telemetry: telemetry, container: container}, nil
}

// Run starts the HTTP server and the job-polling worker and blocks until
// both have shut down.
func (s *Service) Run() {
	httpServer := NewHTTPServer(s.container.HTTPApp, s.Logger)
	worker := NewWorker(
		s.container.Jobs,
		s.container.Syncs,
		s.container.Scheduler,
		time.Duration(s.Config.JobPollInterval)*time.Second,
		s.Logger,
	)

	pkg.NewLauncher(
		pkg.WithLogger(s.Logger),
		pkg.RunApp("http", httpServer),
		pkg.RunApp("worker", worker),
	).Run()

	if s.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.Telemetry.Shutdown(ctx); err != nil {
			s.Logger.Errorf("telemetry shutdown: %v", err)
		}
	}
}
