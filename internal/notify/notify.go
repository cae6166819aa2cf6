// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package notify delivers donation receipts to donors.
//
// Each delivery channel implements Notifier. Channels with credentials get
// a real implementation at startup; the rest get a LogNotifier that records
// what would have been sent. FanOut runs every channel concurrently and
// reports success when at least one channel delivered.
//
// Security:
//   - Credentials are never logged
//   - Recipients are masked in logs and results
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ChannelName identifies a delivery channel.
type ChannelName string

const (
	ChannelEmail ChannelName = "email"
	ChannelChat  ChannelName = "chat"
)

// Delivery is one receipt to send.
type Delivery struct {
	DonationID    string
	OrderID       string
	DonorName     string
	DonorEmail    string
	DonorPhone    string
	Amount        decimal.Decimal
	Currency      string
	CampaignTitle string
	Receipt       []byte
	Filename      string
}

// ChannelResult is the outcome of one channel.
type ChannelResult struct {
	Channel ChannelName `json:"channel"`
	Success bool        `json:"success"`
	// Skipped is set when the donor gave no address for this channel.
	Skipped bool `json:"skipped,omitempty"`
	// Stubbed is set when the channel is not configured and only logged.
	Stubbed   bool          `json:"stubbed,omitempty"`
	Recipient string        `json:"recipient,omitempty"`
	ErrorCode string        `json:"error_code,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Notifier delivers a receipt over one channel. Failures are reported in
// the result, never as a panic or error return.
type Notifier interface {
	Channel() ChannelName
	Notify(ctx context.Context, d *Delivery) ChannelResult
}

// Error codes for failed deliveries.
const (
	ErrorCodeConnectionFailed = "CONNECTION_FAILED"
	ErrorCodeAuthFailed       = "AUTH_FAILED"
	ErrorCodeTimeout          = "TIMEOUT"
	ErrorCodeRateLimited      = "RATE_LIMITED"
	ErrorCodeRejected         = "REJECTED"
	ErrorCodeCircuitOpen      = "CIRCUIT_OPEN"
	ErrorCodeUnknown          = "UNKNOWN"
)

func failed(channel ChannelName, recipient, code string, err error) ChannelResult {
	return ChannelResult{
		Channel:   channel,
		Recipient: recipient,
		ErrorCode: code,
		Error:     err.Error(),
	}
}
