// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Validates(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Gateways.Push.Enabled() || cfg.Gateways.Redirect.Enabled() {
		t.Error("gateways must be disabled without credentials")
	}
	if cfg.Notify.Email.Configured() || cfg.Notify.Chat.Configured() {
		t.Error("notification channels must be unconfigured by default")
	}
	if cfg.Notify.Chat.DocumentDelay != 2*time.Second {
		t.Errorf("DocumentDelay = %v, want 2s", cfg.Notify.Chat.DocumentDelay)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "short" }, "JWT_SECRET"},
		{"production without jwt", func(c *Config) { c.Server.Environment = "production" }, "JWT_SECRET"},
		{"currency", func(c *Config) { c.Gateways.DefaultCurrency = "RUPEE" }, "DEFAULT_CURRENCY"},
		{"merchant key length", func(c *Config) {
			c.Gateways.Redirect.MerchantID = "MID"
			c.Gateways.Redirect.MerchantKey = "short"
			c.Gateways.Redirect.CallbackURL = "https://example.org/cb"
		}, "REDIRECT_MERCHANT_KEY"},
		{"redirect callback", func(c *Config) {
			c.Gateways.Redirect.MerchantID = "MID"
			c.Gateways.Redirect.MerchantKey = "0123456789abcdef"
		}, "REDIRECT_CALLBACK_URL"},
		{"push base url", func(c *Config) {
			c.Gateways.Push.SecretKey = "sk_test"
			c.Gateways.Push.WebhookSecret = "whsec"
			c.Gateways.Push.BaseURL = "ftp://x"
		}, "PUSH_GATEWAY_BASE_URL"},
		{"frontend url", func(c *Config) { c.URLs.Frontend = "not a url" }, "FRONTEND_URL"},
		{"timezone", func(c *Config) { c.Receipt.Timezone = "Mars/Olympus" }, "RECEIPT_TIMEZONE"},
		{"events backend", func(c *Config) { c.Events.Backend = "kafka" }, "EVENTS_BACKEND"},
		{"nats url", func(c *Config) {
			c.Events.Backend = "nats"
			c.Events.NATSURL = ""
		}, "NATS_URL"},
		{"embedded store", func(c *Config) {
			c.Events.Backend = "nats"
			c.Events.EmbeddedServer = true
			c.Events.EmbeddedStoreDir = ""
		}, "NATS_STORE_DIR"},
		{"reconcile batch", func(c *Config) {
			c.Reconcile.Enabled = true
			c.Reconcile.BatchSize = 0
		}, "RECONCILE_BATCH_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"HTTP_PORT":             "server.port",
		"PUSH_WEBHOOK_SECRET":   "gateways.push.webhook_secret",
		"REDIRECT_MERCHANT_KEY": "gateways.redirect.merchant_key",
		"SMTP_HOST":             "notify.email.host",
		"WHATSAPP_ACCESS_TOKEN": "notify.chat.access_token",
		"FRONTEND_URL":          "urls.frontend",
		"HOME":                  "",
		"PATH":                  "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
receipt:
  org_name: "Seva Trust"
database:
  path: ""
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("WHATSAPP_DOCUMENT_DELAY", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090 from file", cfg.Server.Port)
	}
	if cfg.Receipt.OrgName != "Seva Trust" {
		t.Errorf("org name = %q", cfg.Receipt.OrgName)
	}
	if cfg.Database.Path != "" {
		t.Errorf("database path = %q, want in-memory", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug from env", cfg.Logging.Level)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Notify.Chat.DocumentDelay != 500*time.Millisecond {
		t.Errorf("document delay = %v", cfg.Notify.Chat.DocumentDelay)
	}
}
