package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "PAYGATE_TIMEOUT_SECONDS")
	unsetEnvWithCleanup(t, "WEBHOOK_RATE_LIMIT_PER_MINUTE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default server port 8080, got %q", cfg.ServerPort)
	}
	if cfg.LedgerEventExchange != "famtree.events" {
		t.Fatalf("expected default exchange, got %q", cfg.LedgerEventExchange)
	}
	if cfg.PaygateTimeoutSeconds != 10 {
		t.Fatalf("expected default paygate timeout 10, got %d", cfg.PaygateTimeoutSeconds)
	}
	if cfg.WebhookRateLimitPerMin != 120 {
		t.Fatalf("expected default webhook rate limit 120, got %d", cfg.WebhookRateLimitPerMin)
	}
}

func TestLoadConfig_UsesWebhookSecretAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "PAYGATE_WEBHOOK_SECRET")
	setEnvWithCleanup(t, "LEDGER_WEBHOOK_SECRET", "alias-secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PaygateWebhookSecret != "alias-secret" {
		t.Fatalf("expected webhook secret from alias env var, got %q", cfg.PaygateWebhookSecret)
	}
}

func TestLoadConfig_WebhookSecretTakesPrecedenceOverAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "PAYGATE_WEBHOOK_SECRET", "primary-secret")
	setEnvWithCleanup(t, "LEDGER_WEBHOOK_SECRET", "alias-secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PaygateWebhookSecret != "primary-secret" {
		t.Fatalf("expected PAYGATE_WEBHOOK_SECRET to win, got %q", cfg.PaygateWebhookSecret)
	}
}

func TestLoadConfig_ClampsPaygateTimeout(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "PAYGATE_TIMEOUT_SECONDS", "900")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PaygateTimeoutSeconds != 60 {
		t.Fatalf("expected timeout capped at 60, got %d", cfg.PaygateTimeoutSeconds)
	}
}

func TestLoadConfig_PortOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9999")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9999" {
		t.Fatalf("expected PORT to override SERVER_PORT, got %q", cfg.ServerPort)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		}
	})
}
