// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/kindred/internal/database"
	"github.com/tomtom215/kindred/internal/dedupe"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/metrics"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/notify"
	"github.com/tomtom215/kindred/internal/receipt"
)

// ReceiptHandlerName is the router handler name of the receipt dispatcher.
const ReceiptHandlerName = "receipt-dispatcher"

// DonationReader loads what a receipt needs.
type DonationReader interface {
	GetDonationByOrderID(ctx context.Context, orderID string) (*models.Donation, error)
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
}

// Claimer grants a key to exactly one caller.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Renderer renders a receipt PDF.
type Renderer interface {
	Render(in receipt.Input) ([]byte, error)
}

// Deliverer fans a receipt out to the donor.
type Deliverer interface {
	Deliver(ctx context.Context, d *notify.Delivery) *notify.Report
}

// ReceiptHandler renders and delivers a receipt for each completed donation.
// The claim on dedupe.ReceiptKey makes fan-out happen at most once per
// order even when the broker redelivers the event.
type ReceiptHandler struct {
	donations DonationReader
	claims    Claimer
	renderer  Renderer
	fanout    Deliverer
	claimTTL  time.Duration
}

// NewReceiptHandler creates a ReceiptHandler.
func NewReceiptHandler(donations DonationReader, claims Claimer, renderer Renderer,
	fanout Deliverer, claimTTL time.Duration) *ReceiptHandler {
	return &ReceiptHandler{
		donations: donations,
		claims:    claims,
		renderer:  renderer,
		fanout:    fanout,
		claimTTL:  claimTTL,
	}
}

// Register subscribes the handler to TopicDonationCompleted on r.
func (h *ReceiptHandler) Register(r *Router, subscriber message.Subscriber) {
	r.AddConsumerHandler(ReceiptHandlerName, TopicDonationCompleted, subscriber, h.Handle)
}

// Handle processes one DonationCompleted message. Errors trigger a retry;
// delivery failures are logged and never returned.
func (h *ReceiptHandler) Handle(msg *message.Message) error {
	ctx := msg.Context()
	if id := msg.Metadata.Get(MetadataCorrelationID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}

	evt, err := DecodeDonationCompleted(msg)
	if err != nil {
		// A malformed payload will never decode; retrying cannot help.
		logging.Ctx(ctx).Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable event")
		metrics.DispatchErrorsTotal.Inc()
		return nil
	}
	ctx = logging.ContextWithOrderID(ctx, evt.OrderID)
	log := logging.Ctx(ctx)

	donation, err := h.donations.GetDonationByOrderID(ctx, evt.OrderID)
	if err != nil {
		return fmt.Errorf("load donation %s: %w", evt.OrderID, err)
	}
	if donation.Status != models.StatusCompleted {
		log.Warn().Str("status", string(donation.Status)).Msg("Skipping receipt for donation that is not completed")
		return nil
	}

	campaignTitle, err := h.campaignTitle(ctx, donation)
	if err != nil {
		return err
	}

	key := dedupe.ReceiptKey(donation.OrderID)
	claimed, err := h.claims.Claim(ctx, key, h.claimTTL)
	if err != nil {
		return fmt.Errorf("claim receipt %s: %w", donation.OrderID, err)
	}
	if !claimed {
		log.Debug().Msg("Receipt already dispatched, skipping redelivered event")
		return nil
	}

	pdf, err := h.renderer.Render(receipt.FromDonation(donation, campaignTitle))
	if err != nil {
		if relErr := h.claims.Release(ctx, key); relErr != nil {
			log.Error().Err(relErr).Msg("Failed to release receipt claim")
		}
		return fmt.Errorf("render receipt %s: %w", donation.OrderID, err)
	}

	name := donation.DonorName
	if donation.Anonymous {
		name = ""
	}
	report := h.fanout.Deliver(ctx, &notify.Delivery{
		DonationID:    donation.ID,
		OrderID:       donation.OrderID,
		DonorName:     name,
		DonorEmail:    donation.DonorEmail,
		DonorPhone:    donation.DonorPhone,
		Amount:        donation.Amount,
		Currency:      donation.Currency,
		CampaignTitle: campaignTitle,
		Receipt:       pdf,
		Filename:      receipt.Filename(donation.OrderID),
	})
	if !report.Success {
		log.Error().Interface("results", report.Results).
			Msg("Receipt could not be delivered on any channel, donation remains completed")
	}
	return nil
}

func (h *ReceiptHandler) campaignTitle(ctx context.Context, d *models.Donation) (string, error) {
	if d.CampaignID == "" {
		return "", nil
	}
	c, err := h.donations.GetCampaign(ctx, d.CampaignID)
	if errors.Is(err, database.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load campaign %s: %w", d.CampaignID, err)
	}
	return c.Title, nil
}
