// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package payment

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/kindred/internal/auth"
	"github.com/tomtom215/kindred/internal/database"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/models"
)

// Authorizer decides whether an identity may act on a donation.
type Authorizer interface {
	CanAccessDonation(id auth.Identity, ownerUserID, action string) (bool, error)
}

// Donations answers owner and admin queries about single donations.
type Donations struct {
	store Store
	authz Authorizer
	now   func() time.Time
}

// NewDonations creates a Donations service.
func NewDonations(store Store, authz Authorizer) *Donations {
	return &Donations{store: store, authz: authz, now: time.Now}
}

// Get loads the donation for orderID if id may perform action on it.
func (s *Donations) Get(ctx context.Context, id auth.Identity, orderID, action string) (*models.Donation, error) {
	d, err := s.store.GetDonationByOrderID(ctx, orderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrDonationNotFound
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.authz.CanAccessDonation(id, d.UserID, action)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotOwner
	}
	return d, nil
}

// CampaignTitle returns the title of campaignID, "" when unknown.
func (s *Donations) CampaignTitle(ctx context.Context, campaignID string) string {
	if campaignID == "" {
		return ""
	}
	c, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logging.Ctx(ctx).Warn().Err(err).Str("campaign_id", campaignID).Msg("Campaign lookup failed")
		}
		return ""
	}
	return c.Title
}

// CancelRecurrence stops future charges of a recurring donation owned by id.
func (s *Donations) CancelRecurrence(ctx context.Context, id auth.Identity, orderID string) (*models.Donation, error) {
	d, err := s.Get(ctx, id, orderID, auth.ActionCancelRecurrence)
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	changed, err := s.store.CancelRecurrence(ctx, orderID, at)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrNotRecurring
	}
	d.RecurrenceCancelledAt = &at
	logging.Ctx(logging.ContextWithOrderID(ctx, orderID)).Info().Msg("Recurring donation cancelled")
	return d, nil
}
