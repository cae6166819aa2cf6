// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/kindred/config.yaml",
	"/etc/kindred/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

const defaultDisclaimer = "Donations to this organisation are eligible for deduction under " +
	"Section 80G of the Income Tax Act, 1961. Please retain this receipt for your tax records."

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/kindred.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Security: SecurityConfig{
			TokenTTL:             24 * time.Hour,
			CORSOrigins:          []string{"*"},
			RateLimitReqs:        100,
			RateLimitWindow:      time.Minute,
			WebhookRateLimitReqs: 1000,
		},
		Gateways: GatewaysConfig{
			Push: PushGatewayConfig{
				BaseURL:            "https://api.stripe.com",
				SignatureTolerance: 5 * time.Minute,
			},
			Redirect: RedirectGatewayConfig{
				BaseURL:      "https://securegw-stage.paytm.in",
				Website:      "WEBSTAGING",
				IndustryType: "Retail",
				ChannelID:    "WEB",
			},
			DefaultCurrency: "INR",
			RequestTimeout:  30 * time.Second,
		},
		Receipt: ReceiptConfig{
			OrgName:    "Kindred Foundation",
			Disclaimer: defaultDisclaimer,
			Locale:     "en-IN",
			Timezone:   "Asia/Kolkata",
		},
		Notify: NotifyConfig{
			Email: EmailConfig{
				Port:     587,
				FromName: "Kindred Foundation",
				UseTLS:   true,
				Timeout:  30 * time.Second,
			},
			Chat: ChatConfig{
				BaseURL:            "https://graph.facebook.com/v19.0",
				TemplateLanguage:   "en",
				DocumentDelay:      2 * time.Second,
				RateLimitPerSecond: 10,
				Timeout:            30 * time.Second,
				DefaultCountryCode: "91",
			},
		},
		Events: EventsConfig{
			Backend:              "memory",
			NATSURL:              "nats://127.0.0.1:4222",
			EmbeddedPort:         4222,
			EmbeddedStoreDir:     "/data/nats",
			DurableName:          "receipt-dispatcher",
			BufferSize:           256,
			RetryCount:           3,
			RetryInitialInterval: 100 * time.Millisecond,
			ThrottlePerSecond:    0,
			PoisonQueueTopic:     "donation.poison",
			CloseTimeout:         30 * time.Second,
		},
		Dedupe: DedupeConfig{
			Path:            "/data/dedupe",
			ReceiptClaimTTL: 30 * 24 * time.Hour,
			WebhookEventTTL: 72 * time.Hour,
		},
		Reconcile: ReconcileConfig{
			Enabled:    false,
			Interval:   10 * time.Minute,
			StaleAfter: 30 * time.Minute,
			BatchSize:  50,
		},
		URLs: URLConfig{
			Frontend: "http://localhost:3000",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they come from env.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config keys.
// Unmapped variables are ignored so the process environment cannot leak
// into configuration by accident.
var envMappings = map[string]string{
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"jwt_secret":                  "security.jwt_secret",
	"jwt_token_ttl":               "security.token_ttl",
	"cors_origins":                "security.cors_origins",
	"rate_limit_requests":         "security.rate_limit_requests",
	"rate_limit_window":           "security.rate_limit_window",
	"webhook_rate_limit_requests": "security.webhook_rate_limit_requests",
	"disable_rate_limit":          "security.rate_limit_disabled",

	"default_currency":         "gateways.default_currency",
	"gateway_request_timeout":  "gateways.request_timeout",
	"push_gateway_base_url":    "gateways.push.base_url",
	"push_gateway_secret_key":  "gateways.push.secret_key",
	"push_gateway_public_key":  "gateways.push.publishable_key",
	"push_webhook_secret":      "gateways.push.webhook_secret",
	"push_signature_tolerance": "gateways.push.signature_tolerance",

	"redirect_gateway_base_url": "gateways.redirect.base_url",
	"redirect_merchant_id":      "gateways.redirect.merchant_id",
	"redirect_merchant_key":     "gateways.redirect.merchant_key",
	"redirect_website":          "gateways.redirect.website",
	"redirect_industry_type":    "gateways.redirect.industry_type",
	"redirect_channel_id":       "gateways.redirect.channel_id",
	"redirect_callback_url":     "gateways.redirect.callback_url",

	"receipt_org_name":        "receipt.org_name",
	"receipt_org_address":     "receipt.org_address",
	"receipt_registration_no": "receipt.registration_no",
	"receipt_disclaimer":      "receipt.disclaimer",
	"receipt_locale":          "receipt.locale",
	"receipt_timezone":        "receipt.timezone",

	"smtp_host":      "notify.email.host",
	"smtp_port":      "notify.email.port",
	"smtp_username":  "notify.email.username",
	"smtp_password":  "notify.email.password",
	"smtp_from":      "notify.email.from",
	"smtp_from_name": "notify.email.from_name",
	"smtp_use_tls":   "notify.email.use_tls",
	"smtp_timeout":   "notify.email.timeout",

	"whatsapp_base_url":          "notify.chat.base_url",
	"whatsapp_phone_number_id":   "notify.chat.phone_number_id",
	"whatsapp_access_token":      "notify.chat.access_token",
	"whatsapp_template_name":     "notify.chat.template_name",
	"whatsapp_template_language": "notify.chat.template_language",
	"whatsapp_document_delay":    "notify.chat.document_delay",
	"whatsapp_rate_limit":        "notify.chat.rate_limit_per_second",
	"whatsapp_timeout":           "notify.chat.timeout",
	"whatsapp_country_code":      "notify.chat.default_country_code",

	"events_backend":                "events.backend",
	"nats_url":                      "events.nats_url",
	"nats_durable_name":             "events.durable_name",
	"events_buffer_size":            "events.buffer_size",
	"events_retry_count":            "events.retry_count",
	"events_retry_initial_interval": "events.retry_initial_interval",
	"events_throttle_per_second":    "events.throttle_per_second",
	"events_poison_queue_topic":     "events.poison_queue_topic",
	"events_close_timeout":          "events.close_timeout",

	"dedupe_path":              "dedupe.path",
	"dedupe_receipt_claim_ttl": "dedupe.receipt_claim_ttl",
	"dedupe_webhook_event_ttl": "dedupe.webhook_event_ttl",

	"reconcile_enabled":     "reconcile.enabled",
	"reconcile_interval":    "reconcile.interval",
	"reconcile_stale_after": "reconcile.stale_after",
	"reconcile_batch_size":  "reconcile.batch_size",

	"frontend_url": "urls.frontend",
}

// envTransformFunc maps an environment variable name to its config key.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - PUSH_WEBHOOK_SECRET -> gateways.push.webhook_secret
//   - SMTP_HOST -> notify.email.host
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
