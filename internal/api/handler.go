// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package api

import (
	"context"
	"time"

	"github.com/tomtom215/kindred/internal/auth"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/payment"
	"github.com/tomtom215/kindred/internal/receipt"
)

// Initiator starts donations.
type Initiator interface {
	Initiate(ctx context.Context, id auth.Identity, req *models.DonationRequest) (*payment.Initiation, error)
}

// DonationService answers owner and admin queries.
type DonationService interface {
	Get(ctx context.Context, id auth.Identity, orderID, action string) (*models.Donation, error)
	CancelRecurrence(ctx context.Context, id auth.Identity, orderID string) (*models.Donation, error)
	CampaignTitle(ctx context.Context, campaignID string) string
}

// SettlementIngestor applies gateway notifications.
type SettlementIngestor interface {
	HandlePush(ctx context.Context, body []byte, sigHeader string) (*payment.Outcome, error)
	HandleRedirect(ctx context.Context, params map[string]string) (*payment.Outcome, error)
}

// Reconciler runs on-demand gateway status checks.
type Reconciler interface {
	Reconcile(ctx context.Context, orderID string) (*payment.Outcome, error)
}

// ReceiptRenderer renders receipt PDFs.
type ReceiptRenderer interface {
	Render(in receipt.Input) ([]byte, error)
}

// Pinger reports store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunningChecker reports whether a background component is running.
type RunningChecker interface {
	IsRunning() bool
}

// Deps are the services a Handler serves. Nil Reconciler or Events are
// allowed; the affected routes report unavailability.
type Deps struct {
	Initiator   Initiator
	Donations   DonationService
	Ingestor    SettlementIngestor
	Reconciler  Reconciler
	Receipts    ReceiptRenderer
	Store       Pinger
	Events      RunningChecker
	FrontendURL string
	// Gateways and Notifiers describe the configured integrations for /ready.
	Gateways  map[string]bool
	Notifiers map[string]string
}

// Handler implements the HTTP endpoints.
type Handler struct {
	deps      Deps
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps, startTime: time.Now()}
}
