// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

/*
Package main is the entry point for the Kindred server.

Kindred accepts donations through two payment gateways, reconciles their
settlement notifications into a single donation state machine, keeps a
running total per campaign and delivers a PDF receipt to every donor who
paid.

# Application Architecture

	RootSupervisor ("kindred")
	├── MessagingSupervisor ("messaging-layer")
	│   └── Event router (receipt dispatcher)
	├── APISupervisor ("api-layer")
	│   └── HTTP server
	└── MaintenanceSupervisor ("maintenance-layer")
	    ├── Pending sweeper (RECONCILE_ENABLED=true)
	    └── Dedupe store GC

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml and environment
 2. Database: DuckDB donations and campaigns
 3. Dedupe store: BadgerDB receipt claims and webhook replay keys
 4. Events: watermill pub/sub (gochannel, or NATS JetStream with -tags nats)
 5. Gateways: push and redirect clients for every configured gateway
 6. Settlement: ingestor, ledger, initiator and reconciler
 7. Receipts: PDF generator and email/chat fan-out
 8. HTTP: chi router with JWT identity and casbin authorization

# Configuration

The gateways are enabled by their credentials:

	export PUSH_GATEWAY_SECRET_KEY=sk_live_...
	export PUSH_WEBHOOK_SECRET=whsec_...
	export REDIRECT_MERCHANT_ID=KINDRED0001
	export REDIRECT_MERCHANT_KEY=...
	export JWT_SECRET=$(openssl rand -base64 32)
	./kindred

Without SMTP_HOST or WHATSAPP_ACCESS_TOKEN the corresponding receipt
channel logs the delivery instead of sending it.

# Build Tags

	go build ./cmd/server               # in-process event bus
	go build -tags nats ./cmd/server    # NATS JetStream event bus

With -tags nats, NATS_EMBEDDED=true runs the JetStream broker in-process.

# Signal Handling

SIGINT and SIGTERM cancel the supervisor context. The HTTP server drains
for SHUTDOWN_TIMEOUT so in-flight gateway callbacks are recorded, then the
event router waits for receipt handlers to finish.
*/
package main
