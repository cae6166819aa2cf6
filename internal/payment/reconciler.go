// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/kindred/internal/database"
	"github.com/tomtom215/kindred/internal/gateway"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/metrics"
	"github.com/tomtom215/kindred/internal/models"
)

// DefaultStatusTimeout bounds one gateway status check.
const DefaultStatusTimeout = 30 * time.Second

// Reconciler settles PENDING donations by asking the gateway directly.
type Reconciler struct {
	store    Store
	ingestor *Ingestor
	gateways map[models.Gateway]PaymentGateway
	timeout  time.Duration
	now      func() time.Time
}

// NewReconciler creates a Reconciler. timeout <= 0 uses DefaultStatusTimeout.
func NewReconciler(store Store, ingestor *Ingestor, timeout time.Duration, gateways ...PaymentGateway) *Reconciler {
	if timeout <= 0 {
		timeout = DefaultStatusTimeout
	}
	return &Reconciler{
		store:    store,
		ingestor: ingestor,
		gateways: gatewayMap(gateways),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Reconcile checks one donation. Settled donations are reported as-is
// without a gateway call. A timeout or gateway outage returns
// gateway.ErrGatewayUnavailable and leaves the donation PENDING. A donation
// whose initiation never received a payment handle is failed.
func (r *Reconciler) Reconcile(ctx context.Context, orderID string) (*Outcome, error) {
	d, err := r.store.GetDonationByOrderID(ctx, orderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrDonationNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	if d.Status != models.StatusPending {
		return outcomeFor(ResultSettled, d, ""), nil
	}

	gw, ok := r.gateways[d.Gateway]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, d.Gateway)
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	s, err := gw.FetchStatus(checkCtx, gateway.StatusQuery{OrderID: d.OrderID, GatewayRef: d.GatewayRef})
	if errors.Is(err, gateway.ErrNoPaymentHandle) {
		// Initiation never got a handle back, so the donor had nothing to pay with.
		return r.ingestor.Apply(ctx, &models.Settlement{
			Gateway:   d.Gateway,
			EventType: "status:no_handle",
			OrderID:   d.OrderID,
			Outcome:   models.OutcomeFailed,
			Message:   "payment handle was never issued",
			Raw:       []byte(err.Error()),
		})
	}
	if err != nil {
		if errors.Is(checkCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, gateway.ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %v", gateway.ErrGatewayUnavailable, err)
		}
		return nil, fmt.Errorf("status check for %s: %w", orderID, err)
	}
	if s.OrderID == "" {
		s.OrderID = d.OrderID
	}
	if s.Gateway == "" {
		s.Gateway = d.Gateway
	}
	return r.ingestor.Apply(ctx, s)
}

// ReconcileSummary counts the results of one sweep.
type ReconcileSummary struct {
	Checked      int `json:"checked"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	StillPending int `json:"still_pending"`
	Unavailable  int `json:"unavailable"`
	Errors       int `json:"errors"`
}

// ReconcileStale checks up to limit PENDING donations created more than
// olderThan ago. Individual failures are counted, not returned; only a
// failure to list donations is an error.
func (r *Reconciler) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (ReconcileSummary, error) {
	var summary ReconcileSummary
	configured := make([]models.Gateway, 0, len(r.gateways))
	for g := range r.gateways {
		configured = append(configured, g)
	}
	if len(configured) == 0 {
		return summary, nil
	}
	pending, err := r.store.ListPendingBefore(ctx, r.now().Add(-olderThan), limit, configured...)
	if err != nil {
		return summary, err
	}

	for _, d := range pending {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Checked++
		outcome, err := r.Reconcile(ctx, d.OrderID)
		switch {
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			summary.Unavailable++
			metrics.ReconcileRunsTotal.WithLabelValues("unavailable").Inc()
		case err != nil:
			summary.Errors++
			metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
			logging.Ctx(logging.ContextWithOrderID(ctx, d.OrderID)).Warn().Err(err).Msg("Reconcile failed")
		case outcome.Status == models.StatusCompleted:
			summary.Completed++
			metrics.ReconcileRunsTotal.WithLabelValues("settled").Inc()
		case outcome.Status == models.StatusFailed:
			summary.Failed++
			metrics.ReconcileRunsTotal.WithLabelValues("settled").Inc()
		default:
			summary.StillPending++
			metrics.ReconcileRunsTotal.WithLabelValues("still_pending").Inc()
		}
	}
	return summary, nil
}
