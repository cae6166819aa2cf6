// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package notify

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/metrics"
)

// Report summarises one fan-out.
type Report struct {
	OrderID string          `json:"order_id"`
	Success bool            `json:"success"`
	Results []ChannelResult `json:"results"`
}

// Delivered returns the channels that succeeded.
func (r *Report) Delivered() []ChannelName {
	var out []ChannelName
	for _, res := range r.Results {
		if res.Success {
			out = append(out, res.Channel)
		}
	}
	return out
}

// FanOut sends a receipt over every channel concurrently.
type FanOut struct {
	notifiers []Notifier
}

// NewFanOut creates a FanOut over notifiers.
func NewFanOut(notifiers ...Notifier) *FanOut {
	return &FanOut{notifiers: notifiers}
}

// Deliver runs every channel and waits for all of them. The report is
// successful when at least one channel delivered; skipped channels count
// neither way. Channel failures are logged and reported, never returned.
func (f *FanOut) Deliver(ctx context.Context, d *Delivery) *Report {
	results := make([]ChannelResult, len(f.notifiers))

	var wg sync.WaitGroup
	for i, n := range f.notifiers {
		wg.Add(1)
		go func(i int, n Notifier) {
			defer wg.Done()
			start := time.Now()
			res := notifySafely(ctx, n, d)
			res.Duration = time.Since(start)
			results[i] = res
		}(i, n)
	}
	wg.Wait()

	report := &Report{OrderID: d.OrderID, Results: results}
	log := logging.Ctx(ctx)
	for _, res := range results {
		switch {
		case res.Skipped:
			metrics.FanOutChannelTotal.WithLabelValues(string(res.Channel), "skipped").Inc()
		case res.Success:
			report.Success = true
			label := "success"
			if res.Stubbed {
				label = "stubbed"
			}
			metrics.FanOutChannelTotal.WithLabelValues(string(res.Channel), label).Inc()
		default:
			metrics.FanOutChannelTotal.WithLabelValues(string(res.Channel), "failure").Inc()
			log.Warn().
				Str("channel", string(res.Channel)).
				Str("recipient", res.Recipient).
				Str("error_code", res.ErrorCode).
				Str("error", res.Error).
				Msg("Receipt delivery failed on channel")
		}
	}

	if report.Success {
		metrics.FanOutTotal.WithLabelValues("success").Inc()
		log.Info().Interface("channels", report.Delivered()).Msg("Receipt delivered")
	} else {
		metrics.FanOutTotal.WithLabelValues("failure").Inc()
		log.Error().Msg("Receipt delivery failed on every channel")
	}
	return report
}

// notifySafely converts a panicking notifier into a failed result.
func notifySafely(ctx context.Context, n Notifier, d *Delivery) (res ChannelResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().Interface("panic", r).Str("channel", string(n.Channel())).
				Msg("Notifier panicked")
			res = ChannelResult{Channel: n.Channel(), ErrorCode: ErrorCodeUnknown, Error: "notifier panicked"}
		}
	}()
	return n.Notify(ctx, d)
}
