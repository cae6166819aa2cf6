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

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/tomtom215/kindred/internal/database"
	"github.com/tomtom215/kindred/internal/dedupe"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/metrics"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/signature"
)

// IngestorOptions configures an Ingestor. A nil verifier disables that gateway.
type IngestorOptions struct {
	PushVerifier     *signature.PushVerifier
	RedirectVerifier *signature.RedirectVerifier
	// Replay suppresses push events whose id was already processed.
	Replay    ReplayCache
	ReplayTTL time.Duration
}

// Ingestor turns verified gateway notifications into state transitions.
type Ingestor struct {
	store      Store
	ledger     *Ledger
	dispatcher Dispatcher
	opts       IngestorOptions
	now        func() time.Time
}

// NewIngestor creates an Ingestor.
func NewIngestor(store Store, ledger *Ledger, dispatcher Dispatcher, opts IngestorOptions) *Ingestor {
	if opts.ReplayTTL <= 0 {
		opts.ReplayTTL = 72 * time.Hour
	}
	if ledger == nil {
		ledger = NewLedger()
	}
	return &Ingestor{
		store:      store,
		ledger:     ledger,
		dispatcher: dispatcher,
		opts:       opts,
		now:        time.Now,
	}
}

// HandlePush verifies and applies a push-model webhook. body must be the
// request body exactly as received.
func (i *Ingestor) HandlePush(ctx context.Context, body []byte, sigHeader string) (*Outcome, error) {
	if i.opts.PushVerifier == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, models.GatewayPush)
	}
	if err := i.opts.PushVerifier.Verify(body, sigHeader); err != nil {
		metrics.SignatureFailuresTotal.WithLabelValues(string(models.GatewayPush)).Inc()
		return nil, err
	}

	var event models.PushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	}

	s := pushSettlement(&event, body)
	if s.Outcome == models.OutcomeIgnored {
		logging.Ctx(ctx).Warn().
			Str("event_id", event.ID).
			Str("event_type", logging.SanitizeValue("event_type", event.Type)).
			Msg("Ignoring unhandled push event type")
		metrics.RecordSettlement(string(models.GatewayPush), string(ResultIgnored))
		return &Outcome{Result: ResultIgnored, OrderID: s.OrderID}, nil
	}

	var replayKey string
	if i.opts.Replay != nil && event.ID != "" {
		replayKey = dedupe.WebhookEventKey(string(models.GatewayPush), event.ID)
		claimed, err := i.opts.Replay.Claim(ctx, replayKey, i.opts.ReplayTTL)
		switch {
		case err != nil:
			logging.Ctx(ctx).Warn().Err(err).Str("event_id", event.ID).Msg("Replay cache unavailable, applying event")
			replayKey = ""
		case !claimed:
			logging.Ctx(ctx).Info().Str("event_id", event.ID).Msg("Push event already processed")
			metrics.RecordSettlement(string(models.GatewayPush), string(ResultDuplicate))
			return &Outcome{Result: ResultDuplicate, OrderID: s.OrderID}, nil
		}
	}

	outcome, err := i.Apply(ctx, s)
	if err != nil && replayKey != "" && !errors.Is(err, ErrDonationNotFound) {
		// Let the gateway's retry reach us again.
		if rerr := i.opts.Replay.Release(ctx, replayKey); rerr != nil {
			logging.Ctx(ctx).Warn().Err(rerr).Str("event_id", event.ID).Msg("Failed to release replay claim")
		}
	}
	return outcome, err
}

func pushSettlement(event *models.PushEvent, raw []byte) *models.Settlement {
	intent := &event.Data.Object
	s := &models.Settlement{
		Gateway:       models.GatewayPush,
		EventID:       event.ID,
		EventType:     event.Type,
		OrderID:       intent.OrderID(),
		TransactionID: intent.TransactionID(),
		PaymentMethod: intent.PaymentMethod(),
		Currency:      strings.ToUpper(intent.Currency),
		Message:       intent.FailureMessage(),
		Raw:           raw,
	}
	if event.Created > 0 {
		s.SettledAt = time.Unix(event.Created, 0).UTC()
	}

	switch event.Type {
	case models.PushEventPaymentSucceeded:
		s.Outcome = models.OutcomeSucceeded
		minor := intent.AmountReceived
		if minor == 0 {
			minor = intent.Amount
		}
		if minor > 0 {
			amount := models.FromMinor(minor)
			s.Amount = &amount
		}
	case models.PushEventPaymentFailed, models.PushEventPaymentCanceled:
		s.Outcome = models.OutcomeFailed
	default:
		s.Outcome = models.OutcomeIgnored
	}
	return s
}

// HandleRedirect verifies and applies a redirect-model callback.
func (i *Ingestor) HandleRedirect(ctx context.Context, params map[string]string) (*Outcome, error) {
	if i.opts.RedirectVerifier == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, models.GatewayRedirect)
	}
	ok, err := i.opts.RedirectVerifier.Verify(params)
	if err != nil || !ok {
		metrics.SignatureFailuresTotal.WithLabelValues(string(models.GatewayRedirect)).Inc()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", signature.ErrInvalidSignature, err)
		}
		return nil, signature.ErrInvalidSignature
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return i.Apply(ctx, i.redirectSettlement(models.RedirectCallbackFromParams(params), raw))
}

func (i *Ingestor) redirectSettlement(cb models.RedirectCallback, raw []byte) *models.Settlement {
	s := &models.Settlement{
		Gateway:       models.GatewayRedirect,
		EventType:     cb.Status,
		OrderID:       cb.OrderID,
		TransactionID: cb.TxnID,
		PaymentMethod: cb.PaymentMode,
		Currency:      cb.Currency,
		Message:       cb.RespMsg,
		Raw:           raw,
	}
	if t, ok := models.ParseRedirectTxnDate(cb.TxnDate); ok {
		s.SettledAt = t
	} else {
		s.SettledAt = i.now().UTC()
	}
	if amount, err := decimal.NewFromString(cb.TxnAmount); err == nil {
		s.Amount = &amount
	}

	switch cb.Status {
	case models.RedirectStatusSuccess:
		s.Outcome = models.OutcomeSucceeded
	case models.RedirectStatusFailure:
		s.Outcome = models.OutcomeFailed
	case models.RedirectStatusPending:
		s.Outcome = models.OutcomePending
	default:
		s.Outcome = models.OutcomeIgnored
	}
	return s
}

// Apply advances the donation named by s. It is shared by both gateway
// handlers and the reconciler.
//
// The transition is a single conditional UPDATE, so concurrent or repeated
// notifications complete a donation at most once. The campaign credit
// commits with that UPDATE. The donation.completed event follows only the
// call that won the transition; a dispatch failure is logged and counted,
// never returned.
func (i *Ingestor) Apply(ctx context.Context, s *models.Settlement) (*Outcome, error) {
	ctx = logging.ContextWithOrderID(ctx, s.OrderID)
	gw := string(s.Gateway)

	if s.Outcome == models.OutcomeIgnored {
		metrics.RecordSettlement(gw, string(ResultIgnored))
		return &Outcome{Result: ResultIgnored, OrderID: s.OrderID, Message: s.Message}, nil
	}

	d, err := i.load(ctx, s)
	if err != nil {
		return nil, err
	}

	var outcome *Outcome
	switch s.Outcome {
	case models.OutcomeSucceeded:
		outcome, err = i.complete(ctx, d, s)
	case models.OutcomeFailed:
		outcome, err = i.fail(ctx, d, s)
	default:
		outcome = outcomeFor(ResultPending, d, s.Message)
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordSettlement(gw, string(outcome.Result))
	return outcome, nil
}

func (i *Ingestor) load(ctx context.Context, s *models.Settlement) (*models.Donation, error) {
	d, err := i.store.GetDonationByOrderID(ctx, s.OrderID)
	if errors.Is(err, database.ErrNotFound) {
		logging.Ctx(ctx).Error().
			Str("gateway", string(s.Gateway)).
			Str("event_id", s.EventID).
			Str("transaction_id", s.TransactionID).
			Msg("Settlement for unknown order, gateway and application records diverge")
		metrics.RecordSettlement(string(s.Gateway), "unknown_order")
		return nil, fmt.Errorf("%w: %q", ErrDonationNotFound, s.OrderID)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (i *Ingestor) complete(ctx context.Context, d *models.Donation, s *models.Settlement) (*Outcome, error) {
	if s.Amount != nil && !s.Amount.Equal(d.Amount) {
		metrics.AmountMismatchTotal.WithLabelValues(string(s.Gateway)).Inc()
		logging.Ctx(ctx).Error().
			Str("expected", d.Amount.StringFixed(2)).
			Str("reported", s.Amount.StringFixed(2)).
			Msg("Settled amount differs from donation amount")
	}

	update := dbSettlement(s)
	update.Credit = i.ledger.Credit(d)
	changed, err := i.store.CompleteIfPending(ctx, d.OrderID, update)
	if changed || err != nil {
		i.ledger.Record(update.Credit, err)
	}
	if err != nil {
		if update.Credit != nil {
			logging.Ctx(ctx).Error().Err(err).Str("campaign_id", d.CampaignID).Msg("Completion rolled back, donation left PENDING")
		}
		return nil, err
	}
	if !changed {
		current, err := i.store.GetDonationByOrderID(ctx, d.OrderID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.StatusFailed {
			logging.Ctx(ctx).Warn().
				Str("transaction_id", s.TransactionID).
				Msg("Success reported for FAILED donation, not applied; needs manual review")
			return outcomeFor(ResultConflict, current, "success reported after failure"), nil
		}
		return outcomeFor(ResultDuplicate, current, ""), nil
	}

	settledAt := s.SettledAt
	if settledAt.IsZero() {
		settledAt = i.now().UTC()
	}
	d.Status = models.StatusCompleted
	d.SettledAt = &settledAt
	if s.TransactionID != "" {
		d.TransactionID = s.TransactionID
	}
	if s.PaymentMethod != "" {
		d.PaymentMethod = s.PaymentMethod
	}

	logging.Ctx(ctx).Info().
		Str("donation_id", d.ID).
		Str("gateway", string(s.Gateway)).
		Str("transaction_id", d.TransactionID).
		Msg("Donation completed")

	if i.dispatcher != nil {
		if err := i.dispatcher.DispatchCompleted(ctx, d); err != nil {
			metrics.DispatchErrorsTotal.Inc()
			logging.Ctx(ctx).Error().Err(err).Msg("Failed to dispatch receipt")
		}
	}
	return outcomeFor(ResultCompleted, d, ""), nil
}

func (i *Ingestor) fail(ctx context.Context, d *models.Donation, s *models.Settlement) (*Outcome, error) {
	changed, err := i.store.FailIfPending(ctx, d.OrderID, dbSettlement(s))
	if err != nil {
		return nil, err
	}
	if !changed {
		current, err := i.store.GetDonationByOrderID(ctx, d.OrderID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.StatusCompleted {
			logging.Ctx(ctx).Warn().Str("event_type", s.EventType).Msg("Failure reported for COMPLETED donation, ignored")
		}
		return outcomeFor(ResultDuplicate, current, s.Message), nil
	}
	d.Status = models.StatusFailed
	logging.Ctx(ctx).Info().Str("donation_id", d.ID).Str("reason", s.Message).Msg("Donation failed")
	return outcomeFor(ResultFailed, d, s.Message), nil
}
