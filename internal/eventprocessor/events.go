// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/kindred/internal/logging"
)

// TopicDonationCompleted carries one message per PENDING to COMPLETED transition.
const TopicDonationCompleted = "donation.completed"

// Metadata keys set on every message.
const (
	MetadataEventType     = "event_type"
	MetadataCorrelationID = "correlation_id"
)

// DonationCompleted is published after a donation settles successfully.
type DonationCompleted struct {
	DonationID  string    `json:"donation_id"`
	OrderID     string    `json:"order_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewDonationCompletedMessage encodes evt. The message UUID is the order id
// so a broker with message-id deduplication drops republished copies.
func NewDonationCompletedMessage(ctx context.Context, evt DonationCompleted) (*message.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", TopicDonationCompleted, err)
	}
	msg := message.NewMessage(evt.OrderID, payload)
	msg.Metadata.Set(MetadataEventType, TopicDonationCompleted)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}
	return msg, nil
}

// DecodeDonationCompleted decodes a message payload.
func DecodeDonationCompleted(msg *message.Message) (DonationCompleted, error) {
	var evt DonationCompleted
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return evt, fmt.Errorf("decode %s event %s: %w", TopicDonationCompleted, msg.UUID, err)
	}
	if evt.OrderID == "" {
		return evt, fmt.Errorf("decode %s event %s: missing order id", TopicDonationCompleted, msg.UUID)
	}
	return evt, nil
}
