// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package services

import (
	"context"
	"time"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/payment"
)

// Task is one run of a periodic job.
type Task func(ctx context.Context) error

// PeriodicService runs a task every interval until cancelled. Task errors
// are logged and the schedule continues; a panic escapes to suture, which
// restarts the service.
type PeriodicService struct {
	name       string
	interval   time.Duration
	task       Task
	runOnStart bool
}

// NewPeriodicService returns a job named name. A non-positive interval
// becomes one minute.
func NewPeriodicService(name string, interval time.Duration, runOnStart bool, task Task) *PeriodicService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PeriodicService{name: name, interval: interval, task: task, runOnStart: runOnStart}
}

// Serve implements suture.Service.
func (p *PeriodicService) Serve(ctx context.Context) error {
	if p.runOnStart {
		p.run(ctx)
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

func (p *PeriodicService) run(ctx context.Context) {
	start := time.Now()
	if err := p.task(logging.ContextWithNewCorrelationID(ctx)); err != nil && ctx.Err() == nil {
		logging.Warn().Err(err).Str("job", p.name).Dur("duration", time.Since(start)).Msg("Periodic job failed")
	}
}

// String implements fmt.Stringer for suture log events.
func (p *PeriodicService) String() string {
	return p.name
}

// StaleReconciler matches *payment.Reconciler.
type StaleReconciler interface {
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (payment.ReconcileSummary, error)
}

// NewPendingSweeper queries the gateway for donations stuck in PENDING
// longer than cfg.StaleAfter, cfg.BatchSize at a time.
func NewPendingSweeper(r StaleReconciler, cfg config.ReconcileConfig) *PeriodicService {
	return NewPeriodicService("pending-sweeper", cfg.Interval, false, func(ctx context.Context) error {
		summary, err := r.ReconcileStale(ctx, cfg.StaleAfter, cfg.BatchSize)
		if err != nil {
			return err
		}
		if summary.Checked > 0 {
			logging.Ctx(ctx).Info().
				Int("checked", summary.Checked).
				Int("completed", summary.Completed).
				Int("failed", summary.Failed).
				Int("still_pending", summary.StillPending).
				Int("unavailable", summary.Unavailable).
				Int("errors", summary.Errors).
				Msg("Pending donations reconciled")
		}
		return nil
	})
}

// GarbageCollector matches *dedupe.Store.
type GarbageCollector interface {
	RunGC() error
}

// NewDedupeGC reclaims space held by expired claims.
func NewDedupeGC(gc GarbageCollector, interval time.Duration) *PeriodicService {
	return NewPeriodicService("dedupe-gc", interval, false, func(context.Context) error {
		return gc.RunGC()
	})
}
