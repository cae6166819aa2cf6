// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package payment owns the donation lifecycle.
//
// The Initiator creates PENDING donations and asks a gateway for a payment
// handle. The Ingestor verifies gateway notifications and advances the
// donation exactly once with a conditional update; on the PENDING to
// COMPLETED edge it updates the campaign ledger and publishes a
// donation.completed event. The Reconciler asks the gateway directly when
// a notification never arrives.
//
// Every dependency is an interface so tests run against fakes or an
// in-memory DuckDB store.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/kindred/internal/database"
	"github.com/tomtom215/kindred/internal/gateway"
	"github.com/tomtom215/kindred/internal/models"
)

var (
	ErrInvalidAmount      = errors.New("amount must be a positive value with at most two decimal places")
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrCampaignEnded      = errors.New("campaign has ended")
	ErrCurrencyMismatch   = errors.New("currency does not match campaign currency")
	ErrDonationNotFound   = errors.New("donation not found")
	ErrUnsupportedGateway = errors.New("payment gateway not configured")
	ErrNotOwner           = errors.New("donation belongs to another user")
	ErrNotRecurring       = errors.New("donation is not an active recurring donation")
	ErrMalformedPayload   = errors.New("malformed notification payload")
)

// Store is the persistence the payment services need.
type Store interface {
	CreateDonation(ctx context.Context, d *models.Donation) error
	GetDonationByOrderID(ctx context.Context, orderID string) (*models.Donation, error)
	SetGatewayRef(ctx context.Context, orderID, ref string) error
	CompleteIfPending(ctx context.Context, orderID string, s database.Settlement) (bool, error)
	FailIfPending(ctx context.Context, orderID string, s database.Settlement) (bool, error)
	CancelRecurrence(ctx context.Context, orderID string, at time.Time) (bool, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int, gateways ...models.Gateway) ([]*models.Donation, error)
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
}

// PaymentGateway is an outbound gateway client.
type PaymentGateway interface {
	Gateway() models.Gateway
	CreatePaymentHandle(ctx context.Context, req gateway.PaymentRequest) (*gateway.PaymentHandle, error)
	FetchStatus(ctx context.Context, q gateway.StatusQuery) (*models.Settlement, error)
}

// Dispatcher hands completed donations to receipt delivery.
type Dispatcher interface {
	DispatchCompleted(ctx context.Context, d *models.Donation) error
}

// ReplayCache remembers push event ids already seen.
type ReplayCache interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Result is what applying a settlement did.
type Result string

const (
	// ResultCompleted: the donation moved PENDING -> COMPLETED.
	ResultCompleted Result = "completed"
	// ResultFailed: the donation moved PENDING -> FAILED.
	ResultFailed Result = "failed"
	// ResultDuplicate: the donation already had this outcome, or a failure
	// arrived for a COMPLETED donation.
	ResultDuplicate Result = "duplicate"
	// ResultConflict: a success arrived for a FAILED donation. Never applied.
	ResultConflict Result = "conflict"
	ResultPending  Result = "pending"
	ResultIgnored  Result = "ignored"
	// ResultSettled: a status check found the donation already settled.
	ResultSettled Result = "settled"
)

// Outcome reports the state of a donation after a settlement was applied.
type Outcome struct {
	Result     Result                `json:"result"`
	OrderID    string                `json:"order_id"`
	DonationID string                `json:"donation_id,omitempty"`
	Status     models.DonationStatus `json:"status,omitempty"`
	Message    string                `json:"message,omitempty"`
}

func outcomeFor(result Result, d *models.Donation, message string) *Outcome {
	return &Outcome{
		Result:     result,
		OrderID:    d.OrderID,
		DonationID: d.ID,
		Status:     d.Status,
		Message:    message,
	}
}

func dbSettlement(s *models.Settlement) database.Settlement {
	return database.Settlement{
		TransactionID: s.TransactionID,
		PaymentMethod: s.PaymentMethod,
		SettledAt:     s.SettledAt,
		Raw:           s.Raw,
	}
}
