// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package payment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tomtom215/kindred/internal/database"
	"github.com/tomtom215/kindred/internal/models"
)

func TestLedger_ConcurrentCompletionsSum(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	seedCampaign(t, env.store, "camp-1", nil)
	seedDonation(t, env.store, "DON40", models.GatewayRedirect, "100.00", "camp-1")
	seedDonation(t, env.store, "DON41", models.GatewayPush, "250.00", "camp-1")

	var wg sync.WaitGroup
	for _, s := range []*models.Settlement{
		{Gateway: models.GatewayRedirect, OrderID: "DON40", Outcome: models.OutcomeSucceeded},
		{Gateway: models.GatewayPush, OrderID: "DON41", Outcome: models.OutcomeSucceeded},
	} {
		wg.Add(1)
		go func(s *models.Settlement) {
			defer wg.Done()
			if _, err := env.ingestor.Apply(context.Background(), s); err != nil {
				t.Errorf("Apply(%s): %v", s.OrderID, err)
			}
		}(s)
	}
	wg.Wait()

	mustRaised(t, env.store, "camp-1", "350")
}

func TestLedger_Credit(t *testing.T) {
	t.Parallel()
	l := NewLedger()
	if c := l.Credit(&models.Donation{OrderID: "DON"}); c != nil {
		t.Errorf("Credit without campaign = %+v, want nil", c)
	}
	c := l.Credit(&models.Donation{OrderID: "DON", CampaignID: "camp-1", Amount: decimal.RequireFromString("99.50")})
	if c == nil || c.CampaignID != "camp-1" || c.AmountMinor != 9950 {
		t.Errorf("Credit = %+v, want camp-1/9950", c)
	}
}

func TestLedger_FailedCreditLeavesDonationPending(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	seedDonation(t, env.store, "DON42", models.GatewayRedirect, "120.00", "camp-late")

	s := &models.Settlement{Gateway: models.GatewayRedirect, OrderID: "DON42", Outcome: models.OutcomeSucceeded}
	if _, err := env.ingestor.Apply(ctx, s); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("Apply with missing campaign err = %v, want ErrNotFound", err)
	}
	mustStatus(t, env.store, "DON42", models.StatusPending)
	if got := env.dispatcher.count(); got != 0 {
		t.Errorf("dispatches = %d, want 0", got)
	}

	// The gateway's retry lands once the campaign row exists.
	seedCampaign(t, env.store, "camp-late", nil)
	outcome, err := env.ingestor.Apply(ctx, s)
	if err != nil {
		t.Fatalf("retry Apply: %v", err)
	}
	if outcome.Result != ResultCompleted {
		t.Errorf("retry result = %s, want completed", outcome.Result)
	}
	if _, err := env.ingestor.Apply(ctx, s); err != nil {
		t.Fatalf("duplicate Apply: %v", err)
	}
	mustStatus(t, env.store, "DON42", models.StatusCompleted)
	mustRaised(t, env.store, "camp-late", "120")
}
