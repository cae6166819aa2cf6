// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package models

// Push gateway event types.
const (
	PushEventPaymentSucceeded = "payment_intent.succeeded"
	PushEventPaymentFailed    = "payment_intent.payment_failed"
	PushEventPaymentCanceled  = "payment_intent.canceled"
)

// PushEvent is the JSON envelope of a push-model gateway webhook.
type PushEvent struct {
	ID       string        `json:"id"`
	Object   string        `json:"object"`
	Type     string        `json:"type"`
	Created  int64         `json:"created"`
	Livemode bool          `json:"livemode"`
	Data     PushEventData `json:"data"`
}

// PushEventData wraps the object the event is about.
type PushEventData struct {
	Object PaymentIntent `json:"object"`
}

// PaymentIntent is the subset of the gateway's payment intent we read.
type PaymentIntent struct {
	ID                 string            `json:"id"`
	Object             string            `json:"object"`
	Amount             int64             `json:"amount"`
	AmountReceived     int64             `json:"amount_received"`
	Currency           string            `json:"currency"`
	Status             string            `json:"status"`
	ClientSecret       string            `json:"client_secret,omitempty"`
	LatestCharge       string            `json:"latest_charge,omitempty"`
	PaymentMethodTypes []string          `json:"payment_method_types,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	LastPaymentError   *PaymentError     `json:"last_payment_error,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	Created            int64             `json:"created"`
}

// PaymentError describes why a payment attempt failed.
type PaymentError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// OrderID returns the order id we attached as metadata at initiation.
func (p *PaymentIntent) OrderID() string {
	return p.Metadata["order_id"]
}

// TransactionID returns the charge id, or the intent id when no charge exists.
func (p *PaymentIntent) TransactionID() string {
	if p.LatestCharge != "" {
		return p.LatestCharge
	}
	return p.ID
}

// PaymentMethod returns the first payment method type, e.g. "card".
func (p *PaymentIntent) PaymentMethod() string {
	if len(p.PaymentMethodTypes) == 0 {
		return ""
	}
	return p.PaymentMethodTypes[0]
}

// FailureMessage returns the best available human-readable failure reason.
func (p *PaymentIntent) FailureMessage() string {
	if p.LastPaymentError != nil && p.LastPaymentError.Message != "" {
		return p.LastPaymentError.Message
	}
	return p.CancellationReason
}
