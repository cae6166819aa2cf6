// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementOutcome is the normalised result a gateway reports for an order.
type SettlementOutcome string

const (
	OutcomeSucceeded SettlementOutcome = "succeeded"
	OutcomeFailed    SettlementOutcome = "failed"
	OutcomePending   SettlementOutcome = "pending"
	// OutcomeIgnored marks event types we do not act on. They are
	// acknowledged without mutation so new gateway events never count as failures.
	OutcomeIgnored SettlementOutcome = "ignored"
)

// Settlement is a gateway notification or status check result after
// verification and parsing, independent of which gateway produced it.
type Settlement struct {
	Gateway       Gateway
	EventID       string
	EventType     string
	OrderID       string
	Outcome       SettlementOutcome
	TransactionID string
	PaymentMethod string
	SettledAt     time.Time
	// Amount is what the gateway says was charged, when it says so.
	Amount   *decimal.Decimal
	Currency string
	Message  string
	Raw      []byte
}
