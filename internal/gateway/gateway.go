// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package gateway talks to the two payment gateways: creating a payment
// handle before the payer is charged and checking an order's authoritative
// status during reconciliation.
//
// Every call is bounded by the client timeout and runs through a circuit
// breaker. Errors are classified so callers can tell a transient outage
// (ErrGatewayUnavailable, safe to retry, never a reason to fail a donation)
// from a definitive refusal (ErrGatewayRejected).
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tomtom215/kindred/internal/models"
)

var (
	// ErrGatewayUnavailable covers timeouts, network errors, 5xx, 429 and an
	// open circuit breaker. The operation may be retried.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected covers 4xx responses and explicit refusals.
	ErrGatewayRejected = errors.New("payment gateway rejected request")
	// ErrNoPaymentHandle is returned by a status check for an order that
	// never received a gateway reference. It wraps ErrGatewayRejected.
	ErrNoPaymentHandle = fmt.Errorf("%w: no payment handle recorded", ErrGatewayRejected)
)

// PaymentRequest describes the handle to create for a new donation.
type PaymentRequest struct {
	DonationID  string
	OrderID     string
	Amount      decimal.Decimal
	Currency    string
	CustomerID  string
	DonorName   string
	DonorEmail  string
	DonorPhone  string
	Description string
}

// PaymentHandle is what the payer's client needs to complete payment.
type PaymentHandle struct {
	Gateway models.Gateway `json:"gateway"`
	// Reference is the intent id (push) or transaction token (redirect).
	Reference    string `json:"reference"`
	ClientSecret string `json:"client_secret,omitempty"`
	MerchantID   string `json:"merchant_id,omitempty"`
	PaymentURL   string `json:"payment_url,omitempty"`
}

// StatusQuery identifies the order whose status is requested.
type StatusQuery struct {
	OrderID    string
	GatewayRef string
}

// Client is implemented by each gateway.
type Client interface {
	Gateway() models.Gateway
	CreatePaymentHandle(ctx context.Context, req PaymentRequest) (*PaymentHandle, error)
	FetchStatus(ctx context.Context, q StatusQuery) (*models.Settlement, error)
}
