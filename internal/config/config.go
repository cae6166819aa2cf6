// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package config loads Kindred's configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every optional setting
//  2. Config File: optional YAML file (CONFIG_PATH or ./config.yaml)
//  3. Environment Variables: explicit env name to key mapping, highest priority
//
// Gateways and notification channels are switched on by the presence of
// their credentials. A missing webhook secret disables that gateway's
// routes, and missing SMTP or chat credentials select the logging stub
// notifier instead of failing startup.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   LoggingConfig   `koanf:"logging"`
	Security  SecurityConfig  `koanf:"security"`
	Gateways  GatewaysConfig  `koanf:"gateways"`
	Receipt   ReceiptConfig   `koanf:"receipt"`
	Notify    NotifyConfig    `koanf:"notify"`
	Events    EventsConfig    `koanf:"events"`
	Dedupe    DedupeConfig    `koanf:"dedupe"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	URLs      URLConfig       `koanf:"urls"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB configuration. An empty Path opens an
// in-memory database.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_requests"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	// WebhookRateLimitReqs is applied to gateway callbacks per window. It is
	// kept well above the public limit because gateways retry in bursts.
	WebhookRateLimitReqs int  `koanf:"webhook_rate_limit_requests"`
	RateLimitDisabled    bool `koanf:"rate_limit_disabled"`
}

// GatewaysConfig groups both payment gateways.
type GatewaysConfig struct {
	Push            PushGatewayConfig     `koanf:"push"`
	Redirect        RedirectGatewayConfig `koanf:"redirect"`
	DefaultCurrency string                `koanf:"default_currency"`
	// RequestTimeout bounds every outbound gateway call, including status checks.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// PushGatewayConfig configures the push-model (signed webhook) gateway.
type PushGatewayConfig struct {
	BaseURL            string        `koanf:"base_url"`
	SecretKey          string        `koanf:"secret_key"`
	PublishableKey     string        `koanf:"publishable_key"`
	WebhookSecret      string        `koanf:"webhook_secret"`
	SignatureTolerance time.Duration `koanf:"signature_tolerance"`
}

// Enabled reports whether both the API key and the webhook secret are set.
func (p PushGatewayConfig) Enabled() bool {
	return p.SecretKey != "" && p.WebhookSecret != ""
}

// RedirectGatewayConfig configures the redirect-model (checksum) gateway.
type RedirectGatewayConfig struct {
	BaseURL      string `koanf:"base_url"`
	MerchantID   string `koanf:"merchant_id"`
	MerchantKey  string `koanf:"merchant_key"`
	Website      string `koanf:"website"`
	IndustryType string `koanf:"industry_type"`
	ChannelID    string `koanf:"channel_id"`
	CallbackURL  string `koanf:"callback_url"`
}

// Enabled reports whether merchant credentials are set.
func (r RedirectGatewayConfig) Enabled() bool {
	return r.MerchantID != "" && r.MerchantKey != ""
}

// ReceiptConfig holds organisation details printed on every receipt.
type ReceiptConfig struct {
	OrgName        string `koanf:"org_name"`
	OrgAddress     string `koanf:"org_address"`
	RegistrationNo string `koanf:"registration_no"`
	Disclaimer     string `koanf:"disclaimer"`
	Locale         string `koanf:"locale"`
	Timezone       string `koanf:"timezone"`
}

// NotifyConfig groups the receipt delivery channels.
type NotifyConfig struct {
	Email EmailConfig `koanf:"email"`
	Chat  ChatConfig  `koanf:"chat"`
}

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	From     string        `koanf:"from"`
	FromName string        `koanf:"from_name"`
	UseTLS   bool          `koanf:"use_tls"`
	Timeout  time.Duration `koanf:"timeout"`
}

// Configured reports whether SMTP delivery can be attempted.
func (e EmailConfig) Configured() bool {
	return e.Host != "" && e.From != ""
}

// ChatConfig configures chat-document delivery over the WhatsApp Cloud API.
type ChatConfig struct {
	BaseURL            string        `koanf:"base_url"`
	PhoneNumberID      string        `koanf:"phone_number_id"`
	AccessToken        string        `koanf:"access_token"`
	TemplateName       string        `koanf:"template_name"`
	TemplateLanguage   string        `koanf:"template_language"`
	DocumentDelay      time.Duration `koanf:"document_delay"`
	RateLimitPerSecond float64       `koanf:"rate_limit_per_second"`
	Timeout            time.Duration `koanf:"timeout"`
	DefaultCountryCode string        `koanf:"default_country_code"`
}

// Configured reports whether chat delivery can be attempted.
func (c ChatConfig) Configured() bool {
	return c.PhoneNumberID != "" && c.AccessToken != ""
}

// EventsConfig configures the donation event router.
type EventsConfig struct {
	// Backend is "memory" (in-process gochannel) or "nats".
	Backend              string        `koanf:"backend"`
	// NATSURL is ignored when EmbeddedServer starts a broker in-process.
	NATSURL              string        `koanf:"nats_url"`
	EmbeddedServer       bool          `koanf:"embedded_server"`
	EmbeddedPort         int           `koanf:"embedded_port"`
	EmbeddedStoreDir     string        `koanf:"embedded_store_dir"`
	DurableName          string        `koanf:"durable_name"`
	BufferSize           int64         `koanf:"buffer_size"`
	RetryCount           int           `koanf:"retry_count"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	ThrottlePerSecond    int64         `koanf:"throttle_per_second"`
	PoisonQueueTopic     string        `koanf:"poison_queue_topic"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// DedupeConfig configures the badger claim store. An empty Path keeps
// claims in memory, which only protects a single process lifetime.
type DedupeConfig struct {
	Path            string        `koanf:"path"`
	ReceiptClaimTTL time.Duration `koanf:"receipt_claim_ttl"`
	WebhookEventTTL time.Duration `koanf:"webhook_event_ttl"`
}

// ReconcileConfig configures the periodic sweep of stuck PENDING donations.
type ReconcileConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Interval   time.Duration `koanf:"interval"`
	StaleAfter time.Duration `koanf:"stale_after"`
	BatchSize  int           `koanf:"batch_size"`
}

// URLConfig holds public URLs used when redirecting the payer's browser.
type URLConfig struct {
	Frontend string `koanf:"frontend"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
