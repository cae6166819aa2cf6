// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// DonationStatus is the lifecycle state of a donation.
//
//	PENDING -> COMPLETED
//	PENDING -> FAILED
//
// COMPLETED and FAILED are terminal.
type DonationStatus string

const (
	StatusPending   DonationStatus = "PENDING"
	StatusCompleted DonationStatus = "COMPLETED"
	StatusFailed    DonationStatus = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s DonationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s DonationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Gateway identifies which payment gateway handles a donation.
type Gateway string

const (
	// GatewayPush is the signed-webhook gateway (payment intents).
	GatewayPush Gateway = "push"
	// GatewayRedirect is the browser-redirect gateway with checksummed parameters.
	GatewayRedirect Gateway = "redirect"
)

// Valid reports whether g is a known gateway.
func (g Gateway) Valid() bool {
	return g == GatewayPush || g == GatewayRedirect
}

// RecurrenceInterval is the charge interval for recurring donations.
type RecurrenceInterval string

const (
	RecurrenceMonthly   RecurrenceInterval = "monthly"
	RecurrenceQuarterly RecurrenceInterval = "quarterly"
	RecurrenceYearly    RecurrenceInterval = "yearly"
)

// Donation is the central record of a single gift.
//
// Amount and Currency never change after creation. Status moves at most
// once out of PENDING; the recurrence cancellation timestamp is the only
// field written after settlement.
type Donation struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	Gateway       Gateway         `json:"gateway"`
	GatewayRef    string          `json:"gateway_ref,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        DonationStatus  `json:"status"`

	UserID     string `json:"user_id,omitempty"`
	DonorName  string `json:"donor_name,omitempty"`
	DonorEmail string `json:"donor_email,omitempty"`
	DonorPhone string `json:"donor_phone,omitempty"`
	Anonymous  bool   `json:"anonymous"`
	CampaignID string `json:"campaign_id,omitempty"`
	Message    string `json:"message,omitempty"`

	PaymentMethod string     `json:"payment_method,omitempty"`
	RawResponse   []byte     `json:"-"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`

	Recurring             bool               `json:"recurring"`
	RecurrenceInterval    RecurrenceInterval `json:"recurrence_interval,omitempty"`
	RecurrenceCancelledAt *time.Time         `json:"recurrence_cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AmountMinor returns the amount in minor currency units (paise, cents).
func (d *Donation) AmountMinor() int64 {
	return ToMinor(d.Amount)
}

// DisplayName returns the donor's printable name.
func (d *Donation) DisplayName() string {
	if d.Anonymous || d.DonorName == "" {
		return AnonymousDonor
	}
	return d.DonorName
}

// AnonymousDonor is printed in place of the payer's name for anonymous gifts.
const AnonymousDonor = "Anonymous Donor"

// ToMinor converts a decimal amount to minor units, truncating beyond two places.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

// FromMinor converts minor units back to a decimal amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// HasSubMinorPrecision reports whether amount carries more than two decimal places.
func HasSubMinorPrecision(amount decimal.Decimal) bool {
	return !amount.Shift(2).Equal(amount.Shift(2).Truncate(0))
}

const orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderID returns a fresh external order id: "DON", a UTC timestamp and
// a 6 character random suffix, e.g. DON20260314093015K7Q2ZD.
func NewOrderID(now time.Time) (string, error) {
	suffix := make([]byte, 6)
	limit := big.NewInt(int64(len(orderIDAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate order id: %w", err)
		}
		suffix[i] = orderIDAlphabet[n.Int64()]
	}
	return "DON" + now.UTC().Format("20060102150405") + string(suffix), nil
}
