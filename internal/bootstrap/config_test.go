package bootstrap

import (
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV_NAME", "test")
	t.Setenv("SERVER_ADDRESS", "")
	t.Setenv("JOB_POLL_INTERVAL_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerAddress != ":8080" {
		t.Errorf("expected default ServerAddress ':8080', got %q", cfg.ServerAddress)
	}

	if cfg.JobPollInterval != 5 {
		t.Errorf("expected default JobPollInterval 5, got %d", cfg.JobPollInterval)
	}

	if cfg.WebhookRateLimit != 10 {
		t.Errorf("expected default WebhookRateLimit 10, got %v", cfg.WebhookRateLimit)
	}
}

func TestLoadConfig_OverridesFromEnv(t *testing.T) {
	t.Setenv("ENV_NAME", "test")
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("JOB_POLL_INTERVAL_SECONDS", "30")
	t.Setenv("POSTGRES_PRIMARY_DSN", "postgres://primary")
	t.Setenv("JWT_SIGNING_SECRET", "shh")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerAddress != ":9090" {
		t.Errorf("expected ServerAddress ':9090', got %q", cfg.ServerAddress)
	}

	if cfg.JobPollInterval != 30 {
		t.Errorf("expected JobPollInterval 30, got %d", cfg.JobPollInterval)
	}

	if cfg.PostgresPrimaryDSN != "postgres://primary" {
		t.Errorf("expected PostgresPrimaryDSN override, got %q", cfg.PostgresPrimaryDSN)
	}

	if cfg.JWTSigningSecret != "shh" {
		t.Errorf("expected JWTSigningSecret override, got %q", cfg.JWTSigningSecret)
	}
}

func TestLoadConfig_NegativePollIntervalFallsBackToDefault(t *testing.T) {
	t.Setenv("ENV_NAME", "test")
	t.Setenv("JOB_POLL_INTERVAL_SECONDS", "-1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.JobPollInterval != 5 {
		t.Errorf("expected JobPollInterval to fall back to 5, got %d", cfg.JobPollInterval)
	}
}
