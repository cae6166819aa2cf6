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

	"github.com/tomtom215/kindred/internal/models"
)

// Dispatcher publishes donation lifecycle events.
type Dispatcher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewDispatcher creates a Dispatcher on publisher.
func NewDispatcher(publisher message.Publisher) *Dispatcher {
	return &Dispatcher{publisher: publisher, now: time.Now}
}

// DispatchCompleted publishes a DonationCompleted event for d. It returns
// once the message is handed to the backend; delivery happens asynchronously.
func (d *Dispatcher) DispatchCompleted(ctx context.Context, donation *models.Donation) error {
	completedAt := d.now().UTC()
	if donation.SettledAt != nil {
		completedAt = donation.SettledAt.UTC()
	}
	msg, err := NewDonationCompletedMessage(ctx, DonationCompleted{
		DonationID:  donation.ID,
		OrderID:     donation.OrderID,
		CompletedAt: completedAt,
	})
	if err != nil {
		return err
	}
	if err := d.publisher.Publish(TopicDonationCompleted, msg); err != nil {
		return fmt.Errorf("publish %s for %s: %w", TopicDonationCompleted, donation.OrderID, err)
	}
	return nil
}
