// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tomtom215/kindred/internal/auth"
	"github.com/tomtom215/kindred/internal/models"
)

func newTestDonations(t *testing.T) (*Donations, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	authz, err := auth.NewAuthorizer()
	if err != nil {
		t.Fatal(err)
	}
	err = env.store.CreateDonation(context.Background(), &models.Donation{
		ID:                 uuid.NewString(),
		OrderID:            "DON50",
		Gateway:            models.GatewayPush,
		Amount:             decimal.NewFromInt(500),
		Currency:           "INR",
		Status:             models.StatusPending,
		UserID:             "owner",
		Recurring:          true,
		RecurrenceInterval: models.RecurrenceMonthly,
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewDonations(env.store, authz), env
}

func TestDonations_Get(t *testing.T) {
	t.Parallel()
	svc, _ := newTestDonations(t)

	owner := auth.Identity{User: &auth.Principal{UserID: "owner", Role: auth.RoleDonor}}
	stranger := auth.Identity{User: &auth.Principal{UserID: "other", Role: auth.RoleDonor}}
	admin := auth.Identity{User: &auth.Principal{UserID: "root", Role: auth.RoleAdmin}}

	tests := []struct {
		name    string
		id      auth.Identity
		orderID string
		wantErr error
	}{
		{"owner", owner, "DON50", nil},
		{"admin", admin, "DON50", nil},
		{"stranger", stranger, "DON50", ErrNotOwner},
		{"anonymous", auth.Anonymous, "DON50", ErrNotOwner},
		{"missing", admin, "NOPE", ErrDonationNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Get(context.Background(), tt.id, tt.orderID, auth.ActionRead)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDonations_CancelRecurrence(t *testing.T) {
	t.Parallel()
	svc, _ := newTestDonations(t)
	owner := auth.Identity{User: &auth.Principal{UserID: "owner", Role: auth.RoleDonor}}

	d, err := svc.CancelRecurrence(context.Background(), owner, "DON50")
	if err != nil {
		t.Fatalf("CancelRecurrence: %v", err)
	}
	if d.RecurrenceCancelledAt == nil {
		t.Error("RecurrenceCancelledAt not set")
	}
	if _, err := svc.CancelRecurrence(context.Background(), owner, "DON50"); !errors.Is(err, ErrNotRecurring) {
		t.Errorf("second cancel err = %v, want ErrNotRecurring", err)
	}
}

func TestDonations_CampaignTitle(t *testing.T) {
	t.Parallel()
	svc, env := newTestDonations(t)
	seedCampaign(t, env.store, "camp-1", nil)

	if got := svc.CampaignTitle(context.Background(), "camp-1"); got != "School Meals" {
		t.Errorf("title = %q, want School Meals", got)
	}
	if got := svc.CampaignTitle(context.Background(), "missing"); got != "" {
		t.Errorf("title = %q, want empty", got)
	}
}
