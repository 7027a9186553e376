// Package bootstrap is the composition root: it reads Config from the
// environment, connects every adapter to its platform connection hub,
// and wires the resulting graph into the Service that cmd/syncworker
// runs.
package bootstrap

import (
	"fmt"

	"github.com/airweave-ai/ingestion-core/pkg"
)

// Config is the top level configuration struct for the entire
// application, populated from the process environment.
type Config struct {
	EnvName  string `env:"ENV_NAME"`
	LogLevel string `env:"LOG_LEVEL"`

	ServerAddress string `env:"SERVER_ADDRESS"`
	AllowOrigins  string `env:"ALLOW_ORIGINS"`

	OtelServiceName           string `env:"OTEL_RESOURCE_SERVICE_NAME"`
	OtelServiceVersion        string `env:"OTEL_RESOURCE_SERVICE_VERSION"`
	OtelDeploymentEnv         string `env:"OTEL_RESOURCE_DEPLOYMENT_ENVIRONMENT"`
	OtelColExporterEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTelemetry           bool   `env:"ENABLE_TELEMETRY"`

	PostgresPrimaryDSN  string `env:"POSTGRES_PRIMARY_DSN"`
	PostgresReplicaDSN  string `env:"POSTGRES_REPLICA_DSN"`
	PostgresDBName      string `env:"POSTGRES_DB_NAME"`
	PostgresMigrations  string `env:"POSTGRES_MIGRATIONS_PATH"`

	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB_NAME"`

	RedisURI string `env:"REDIS_URI"`

	RabbitMQURI      string `env:"RABBITMQ_URI"`
	RabbitMQExchange string `env:"RABBITMQ_WEBHOOK_EXCHANGE"`
	WebhookQueue     string `env:"RABBITMQ_WEBHOOK_QUEUE"`
	WebhookSecret    string `env:"WEBHOOK_SIGNING_SECRET"`
	WebhookRateLimit float64 `env:"WEBHOOK_DELIVERY_RATE_PER_SECOND"`

	DestinationGRPCTarget string `env:"DESTINATION_GRPC_TARGET"`
	EmbeddingGRPCTarget   string `env:"EMBEDDING_GRPC_TARGET"`

	JWTSigningSecret string `env:"JWT_SIGNING_SECRET"`

	JobPollInterval int64 `env:"JOB_POLL_INTERVAL_SECONDS"`
}

// LoadConfig populates a Config from the process environment, applying
// local-dev defaults for anything an operator is unlikely to set
// explicitly.
func LoadConfig() (*Config, error) {
	pkg.InitLocalEnvConfig()

	cfg := &Config{
		JobPollInterval: 5,
		WebhookRateLimit: 10,
	}

	if err := pkg.SetConfigFromEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: load config: %w", err)
	}

	if cfg.ServerAddress == "" {
		cfg.ServerAddress = ":8080"
	}

	if cfg.JobPollInterval <= 0 {
		cfg.JobPollInterval = 5
	}

	return cfg, nil
}
