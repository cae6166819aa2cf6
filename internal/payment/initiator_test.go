// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/kindred/internal/auth"
	"github.com/tomtom215/kindred/internal/gateway"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/validation"
)

func TestInitiate_CreatesPendingDonation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	seedCampaign(t, store, "camp-1", nil)
	gw := &fakeGateway{name: models.GatewayPush}
	initiator := NewInitiator(store, "inr", gw)

	donor := auth.Identity{User: &auth.Principal{UserID: "user-1", Role: auth.RoleDonor}}
	got, err := initiator.Initiate(context.Background(), donor, &models.DonationRequest{
		Amount:     "1500.00",
		Gateway:    "push",
		DonorName:  " Asha Rao ",
		DonorEmail: "asha@example.org",
		CampaignID: "camp-1",
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if got.Currency != "INR" || got.Amount != "1500.00" || got.GatewayRef != "ref_"+got.OrderID {
		t.Errorf("initiation = %+v", got)
	}

	d, err := store.GetDonationByOrderID(context.Background(), got.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != models.StatusPending || d.UserID != "user-1" || d.DonorName != "Asha Rao" {
		t.Errorf("donation = %s/%s/%q", d.Status, d.UserID, d.DonorName)
	}
	if d.GatewayRef != got.GatewayRef {
		t.Errorf("gateway_ref = %q, want %q", d.GatewayRef, got.GatewayRef)
	}
}

func TestInitiate_Rejections(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ended := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)
	seedCampaign(t, store, "ended", &ended)
	seedCampaign(t, store, "open", &future)

	tests := []struct {
		name    string
		req     models.DonationRequest
		wantErr error
	}{
		{"unknown campaign", models.DonationRequest{Amount: "10", Gateway: "push", CampaignID: "nope"}, ErrCampaignNotFound},
		{"ended campaign", models.DonationRequest{Amount: "10", Gateway: "push", CampaignID: "ended"}, ErrCampaignEnded},
		{"currency mismatch", models.DonationRequest{Amount: "10", Gateway: "push", Currency: "USD", CampaignID: "open"}, ErrCurrencyMismatch},
		{"gateway not configured", models.DonationRequest{Amount: "10", Gateway: "redirect"}, ErrUnsupportedGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gw := &fakeGateway{name: models.GatewayPush}
			initiator := NewInitiator(store, "INR", gw)
			req := tt.req
			_, err := initiator.Initiate(context.Background(), auth.Anonymous, &req)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if n := gw.creates.Load(); n != 0 {
				t.Errorf("gateway called %d times, want 0", n)
			}
		})
	}
}

func TestInitiate_ValidationError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		req  models.DonationRequest
	}{
		{"zero amount", models.DonationRequest{Amount: "0", Gateway: "push"}},
		{"negative amount", models.DonationRequest{Amount: "-5", Gateway: "push"}},
		{"sub-paise amount", models.DonationRequest{Amount: "10.005", Gateway: "push"}},
		{"not a number", models.DonationRequest{Amount: "ten", Gateway: "push"}},
		{"unknown gateway", models.DonationRequest{Amount: "10", Gateway: "cash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gw := &fakeGateway{name: models.GatewayPush}
			initiator := NewInitiator(newTestStore(t), "INR", gw)
			req := tt.req
			_, err := initiator.Initiate(context.Background(), auth.Anonymous, &req)
			var verr *validation.RequestValidationError
			if !errors.As(err, &verr) {
				t.Errorf("err = %v, want *validation.RequestValidationError", err)
			}
			if n := gw.creates.Load(); n != 0 {
				t.Errorf("gateway called %d times, want 0", n)
			}
		})
	}
}

func TestInitiate_TrimsAmount(t *testing.T) {
	t.Parallel()
	initiator := NewInitiator(newTestStore(t), "INR", &fakeGateway{name: models.GatewayPush})
	got, err := initiator.Initiate(context.Background(), auth.Anonymous, &models.DonationRequest{Amount: " 250.5 ", Gateway: "push"})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if got.Amount != "250.50" {
		t.Errorf("amount = %q, want 250.50", got.Amount)
	}
}

func TestInitiate_GatewayFailure(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		err         error
		wantPending int
	}{
		{"rejection fails the donation", fmt.Errorf("%w: status 400", gateway.ErrGatewayRejected), 0},
		{"outage leaves it pending", fmt.Errorf("%w: status 503", gateway.ErrGatewayUnavailable), 1},
		{"timeout leaves it pending", fmt.Errorf("%w: %v", gateway.ErrGatewayUnavailable, context.DeadlineExceeded), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newTestStore(t)
			initiator := NewInitiator(store, "INR", &fakeGateway{name: models.GatewayRedirect, handleErr: tt.err})

			_, err := initiator.Initiate(context.Background(), auth.Anonymous, &models.DonationRequest{Amount: "10", Gateway: "redirect"})
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}

			pending, err := store.ListPendingBefore(context.Background(), time.Now().Add(time.Hour), 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(pending) != tt.wantPending {
				t.Errorf("pending donations = %d, want %d", len(pending), tt.wantPending)
			}
		})
	}
}

func TestInitiate_RecurringDefaultsToMonthly(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	initiator := NewInitiator(store, "INR", &fakeGateway{name: models.GatewayPush})

	got, err := initiator.Initiate(context.Background(), auth.Anonymous, &models.DonationRequest{
		Amount: "99.50", Gateway: "push", Recurring: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	d, err := store.GetDonationByOrderID(context.Background(), got.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Recurring || d.RecurrenceInterval != models.RecurrenceMonthly {
		t.Errorf("recurrence = %v/%q, want true/monthly", d.Recurring, d.RecurrenceInterval)
	}
}
