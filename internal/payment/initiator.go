// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tomtom215/kindred/internal/auth"
	"github.com/tomtom215/kindred/internal/database"
	"github.com/tomtom215/kindred/internal/gateway"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/validation"
)

// Initiation is returned to the payer's client to continue at the gateway.
type Initiation struct {
	DonationID   string         `json:"donation_id"`
	OrderID      string         `json:"order_id"`
	Gateway      models.Gateway `json:"gateway"`
	GatewayRef   string         `json:"gateway_ref"`
	ClientSecret string         `json:"client_secret,omitempty"`
	MerchantID   string         `json:"merchant_id,omitempty"`
	PaymentURL   string         `json:"payment_url,omitempty"`
	Amount       string         `json:"amount"`
	Currency     string         `json:"currency"`
}

// Initiator creates PENDING donations and obtains gateway payment handles.
type Initiator struct {
	store           Store
	gateways        map[models.Gateway]PaymentGateway
	defaultCurrency string
	now             func() time.Time
}

// NewInitiator creates an Initiator. Gateways not passed are unsupported.
func NewInitiator(store Store, defaultCurrency string, gateways ...PaymentGateway) *Initiator {
	return &Initiator{
		store:           store,
		gateways:        gatewayMap(gateways),
		defaultCurrency: strings.ToUpper(defaultCurrency),
		now:             time.Now,
	}
}

func gatewayMap(gateways []PaymentGateway) map[models.Gateway]PaymentGateway {
	m := make(map[models.Gateway]PaymentGateway, len(gateways))
	for _, g := range gateways {
		if g != nil {
			m[g.Gateway()] = g
		}
	}
	return m
}

// Initiate validates req, records a PENDING donation owned by id (if
// authenticated) and requests a payment handle from the chosen gateway.
//
// Campaign checks run before any gateway call. When the gateway refuses
// the request the donation is marked FAILED. When it is unreachable or
// times out the donation stays PENDING, since the payment may exist on the
// gateway side, and the reconciler settles it later. Either way the
// gateway error is returned.
func (i *Initiator) Initiate(ctx context.Context, id auth.Identity, req *models.DonationRequest) (*Initiation, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() || models.HasSubMinorPrecision(amount) {
		return nil, ErrInvalidAmount
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = i.defaultCurrency
	}

	var campaign *models.Campaign
	if req.CampaignID != "" {
		campaign, err = i.store.GetCampaign(ctx, req.CampaignID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrCampaignNotFound
		}
		if err != nil {
			return nil, err
		}
		if campaign.Ended(i.now()) {
			return nil, ErrCampaignEnded
		}
		if campaign.Currency != "" && !strings.EqualFold(campaign.Currency, currency) {
			return nil, fmt.Errorf("%w: %s", ErrCurrencyMismatch, campaign.Currency)
		}
	}

	gw, ok := i.gateways[models.Gateway(req.Gateway)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, req.Gateway)
	}

	orderID, err := models.NewOrderID(i.now())
	if err != nil {
		return nil, err
	}
	d := &models.Donation{
		ID:                 uuid.NewString(),
		OrderID:            orderID,
		Gateway:            gw.Gateway(),
		Amount:             amount,
		Currency:           currency,
		Status:             models.StatusPending,
		UserID:             id.UserID(),
		DonorName:          strings.TrimSpace(req.DonorName),
		DonorEmail:         strings.TrimSpace(req.DonorEmail),
		DonorPhone:         strings.TrimSpace(req.DonorPhone),
		Anonymous:          req.Anonymous,
		CampaignID:         req.CampaignID,
		Message:            req.Message,
		Recurring:          req.Recurring,
		RecurrenceInterval: models.RecurrenceInterval(req.RecurrenceInterval),
		CreatedAt:          i.now().UTC(),
	}
	if d.Recurring && d.RecurrenceInterval == "" {
		d.RecurrenceInterval = models.RecurrenceMonthly
	}
	if err := i.store.CreateDonation(ctx, d); err != nil {
		return nil, err
	}

	ctx = logging.ContextWithOrderID(ctx, orderID)
	handle, err := gw.CreatePaymentHandle(ctx, gateway.PaymentRequest{
		DonationID:  d.ID,
		OrderID:     orderID,
		Amount:      amount,
		Currency:    currency,
		CustomerID:  d.UserID,
		DonorName:   d.DonorName,
		DonorEmail:  d.DonorEmail,
		DonorPhone:  d.DonorPhone,
		Description: description(campaign, orderID),
	})
	if err != nil {
		if !errors.Is(err, gateway.ErrGatewayRejected) {
			logging.Ctx(ctx).Warn().Err(err).Str("gateway", string(d.Gateway)).Msg("Payment handle request failed, donation left PENDING for reconciliation")
			return nil, err
		}
		logging.Ctx(ctx).Warn().Err(err).Str("gateway", string(d.Gateway)).Msg("Payment handle request rejected")
		if _, ferr := i.store.FailIfPending(ctx, orderID, database.Settlement{Raw: []byte(err.Error())}); ferr != nil {
			logging.Ctx(ctx).Error().Err(ferr).Msg("Failed to mark donation failed after gateway rejection")
		}
		return nil, err
	}

	if err := i.store.SetGatewayRef(ctx, orderID, handle.Reference); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("donation_id", d.ID).
		Str("gateway", string(d.Gateway)).
		Str("amount", amount.StringFixed(2)).
		Str("currency", currency).
		Msg("Donation initiated")

	return &Initiation{
		DonationID:   d.ID,
		OrderID:      orderID,
		Gateway:      d.Gateway,
		GatewayRef:   handle.Reference,
		ClientSecret: handle.ClientSecret,
		MerchantID:   handle.MerchantID,
		PaymentURL:   handle.PaymentURL,
		Amount:       amount.StringFixed(2),
		Currency:     currency,
	}, nil
}

func description(campaign *models.Campaign, orderID string) string {
	if campaign != nil && campaign.Title != "" {
		return "Donation to " + campaign.Title
	}
	return "Donation " + orderID
}
