// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

//go:build nats

package eventprocessor

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/kindred/internal/config"
)

func TestEmbeddedNATS_RoundTrip(t *testing.T) {
	cfg := &config.EventsConfig{
		Backend:          "nats",
		EmbeddedServer:   true,
		EmbeddedPort:     -1,
		EmbeddedStoreDir: t.TempDir(),
		DurableName:      "receipt-test",
		RetryCount:       1,
		CloseTimeout:     5 * time.Second,
	}
	ps, err := NewPubSub(cfg, nil)
	if err != nil {
		t.Fatalf("NewPubSub: %v", err)
	}
	t.Cleanup(func() { _ = ps.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	messages, err := ps.Subscriber.Subscribe(ctx, TopicDonationCompleted)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	msg, err := NewDonationCompletedMessage(ctx, DonationCompleted{DonationID: "d-1", OrderID: "DON1", CompletedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if err := ps.Publisher.Publish(TopicDonationCompleted, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-messages:
		evt, err := DecodeDonationCompleted(got)
		got.Ack()
		if err != nil {
			t.Fatal(err)
		}
		if evt.OrderID != "DON1" {
			t.Errorf("order id = %q, want DON1", evt.OrderID)
		}
	case <-ctx.Done():
		t.Fatal("no message received from embedded NATS")
	}
}
