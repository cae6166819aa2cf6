// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package main

import (
	"time"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/gateway"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/payment"
	"github.com/tomtom215/kindred/internal/signature"
)

// newGateways returns a client for every gateway with credentials.
func newGateways(cfg *config.GatewaysConfig) []payment.PaymentGateway {
	var gateways []payment.PaymentGateway
	if cfg.Push.Enabled() {
		gateways = append(gateways, gateway.NewPushClient(&cfg.Push, cfg.RequestTimeout))
	} else {
		logging.Warn().Msg("Push gateway disabled (PUSH_GATEWAY_SECRET_KEY or PUSH_WEBHOOK_SECRET missing)")
	}
	if cfg.Redirect.Enabled() {
		gateways = append(gateways, gateway.NewRedirectClient(&cfg.Redirect, cfg.RequestTimeout))
	} else {
		logging.Warn().Msg("Redirect gateway disabled (REDIRECT_MERCHANT_ID or REDIRECT_MERCHANT_KEY missing)")
	}
	return gateways
}

func newIngestorOptions(cfg *config.GatewaysConfig, replay payment.ReplayCache, replayTTL time.Duration) payment.IngestorOptions {
	opts := payment.IngestorOptions{Replay: replay, ReplayTTL: replayTTL}
	if cfg.Push.Enabled() {
		opts.PushVerifier = signature.NewPushVerifier(cfg.Push.WebhookSecret)
		opts.PushVerifier.Tolerance = cfg.Push.SignatureTolerance
	}
	if cfg.Redirect.Enabled() {
		opts.RedirectVerifier = signature.NewRedirectVerifier(cfg.Redirect.MerchantKey)
	}
	return opts
}

func gatewayStatus(cfg *config.GatewaysConfig) map[string]bool {
	return map[string]bool{
		string(models.GatewayPush):     cfg.Push.Enabled(),
		string(models.GatewayRedirect): cfg.Redirect.Enabled(),
	}
}

// notifierStatus reports "live" or "log" per receipt channel.
func notifierStatus(cfg *config.NotifyConfig) map[string]string {
	mode := func(configured bool) string {
		if configured {
			return "live"
		}
		return "log"
	}
	return map[string]string{
		"email": mode(cfg.Email.Configured()),
		"chat":  mode(cfg.Chat.Configured()),
	}
}
