// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // receipts render in a named zone even on minimal images
)

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateGateways(); err != nil {
		return err
	}
	if err := c.validateReceipt(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateReconcile()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if err := validateHTTPURL(c.URLs.Frontend, "FRONTEND_URL"); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.IsProduction() && c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENVIRONMENT=production")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 || c.Security.WebhookRateLimitReqs <= 0 {
			return fmt.Errorf("rate limit request counts must be positive")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

func (c *Config) validateGateways() error {
	g := c.Gateways
	if len(g.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter ISO 4217 code, got %q", g.DefaultCurrency)
	}
	if g.RequestTimeout <= 0 {
		return fmt.Errorf("GATEWAY_REQUEST_TIMEOUT must be positive")
	}
	if g.Push.Enabled() {
		if err := validateHTTPURL(g.Push.BaseURL, "PUSH_GATEWAY_BASE_URL"); err != nil {
			return err
		}
		if g.Push.SignatureTolerance < 0 {
			return fmt.Errorf("PUSH_SIGNATURE_TOLERANCE must not be negative")
		}
	}
	if g.Redirect.Enabled() {
		if err := validateHTTPURL(g.Redirect.BaseURL, "REDIRECT_GATEWAY_BASE_URL"); err != nil {
			return err
		}
		switch len(g.Redirect.MerchantKey) {
		case 16, 24, 32:
		default:
			return fmt.Errorf("REDIRECT_MERCHANT_KEY must be 16, 24 or 32 characters")
		}
		if g.Redirect.CallbackURL == "" {
			return fmt.Errorf("REDIRECT_CALLBACK_URL is required when the redirect gateway is enabled")
		}
	}
	return nil
}

func (c *Config) validateReceipt() error {
	if c.Receipt.OrgName == "" {
		return fmt.Errorf("RECEIPT_ORG_NAME is required")
	}
	if _, err := time.LoadLocation(c.Receipt.Timezone); err != nil {
		return fmt.Errorf("RECEIPT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Backend {
	case "memory":
	case "nats":
		if c.Events.EmbeddedServer {
			if c.Events.EmbeddedStoreDir == "" {
				return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
			}
		} else if c.Events.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_BACKEND=nats")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be memory or nats, got %q", c.Events.Backend)
	}
	if c.Events.RetryCount < 0 {
		return fmt.Errorf("EVENTS_RETRY_COUNT must not be negative")
	}
	return nil
}

func (c *Config) validateReconcile() error {
	if !c.Reconcile.Enabled {
		return nil
	}
	if c.Reconcile.Interval <= 0 || c.Reconcile.StaleAfter <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL and RECONCILE_STALE_AFTER must be positive")
	}
	if c.Reconcile.BatchSize <= 0 {
		return fmt.Errorf("RECONCILE_BATCH_SIZE must be positive")
	}
	return nil
}

func validateHTTPURL(rawURL, fieldName string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %q", fieldName, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters", fieldName)
	}
	return nil
}
