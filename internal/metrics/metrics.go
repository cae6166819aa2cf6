// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package metrics holds the Prometheus collectors for the settlement
// pipeline. Collectors register on the default registry through promauto
// and are exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Settlement pipeline

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_settlements_total",
			Help: "Settlement notifications processed, by gateway and outcome",
		},
		[]string{"gateway", "outcome"}, // outcome: completed, failed, duplicate, conflict, ignored, pending, not_found
	)

	SignatureFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_signature_failures_total",
			Help: "Inbound gateway messages rejected by signature or checksum verification",
		},
		[]string{"gateway"},
	)

	LedgerIncrementsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kindred_ledger_increments_total",
			Help: "Campaign raised totals incremented",
		},
	)

	LedgerIncrementErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kindred_ledger_increment_errors_total",
			Help: "Campaign increments that failed after a donation completed",
		},
	)

	AmountMismatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_settlement_amount_mismatch_total",
			Help: "Settlements whose reported amount differs from the donation amount",
		},
		[]string{"gateway"},
	)

	DispatchErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kindred_receipt_dispatch_errors_total",
			Help: "donation.completed events that could not be published",
		},
	)

	// Receipts and fan-out

	ReceiptRenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kindred_receipt_render_seconds",
			Help:    "Time spent rendering receipt PDFs",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	FanOutChannelTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_fanout_channel_total",
			Help: "Receipt deliveries per channel and result",
		},
		[]string{"channel", "result"}, // result: success, failure, skipped, stubbed
	)

	FanOutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_fanout_total",
			Help: "Receipt fan-outs by overall result",
		},
		[]string{"result"}, // success, failure, duplicate
	)

	// Gateways

	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_gateway_requests_total",
			Help: "Outbound gateway API calls",
		},
		[]string{"gateway", "operation", "result"}, // result: success, rejected, unavailable
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kindred_gateway_request_duration_seconds",
			Help:    "Outbound gateway API call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway", "operation"},
	)

	// Circuit breakers

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kindred_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_circuit_breaker_rejections_total",
			Help: "Calls rejected because a circuit breaker was open",
		},
		[]string{"name"},
	)

	// Reconciliation

	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_reconcile_total",
			Help: "Pending donation status checks, by result",
		},
		[]string{"result"}, // settled, still_pending, unavailable, error
	)

	// HTTP

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kindred_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kindred_api_active_requests",
			Help: "In-flight HTTP requests",
		},
	)
)

// RecordSettlement counts one processed settlement.
func RecordSettlement(gateway, outcome string) {
	SettlementsTotal.WithLabelValues(gateway, outcome).Inc()
}

// RecordGatewayRequest counts and times one outbound gateway call.
func RecordGatewayRequest(gateway, operation, result string, duration time.Duration) {
	GatewayRequestsTotal.WithLabelValues(gateway, operation, result).Inc()
	GatewayRequestDuration.WithLabelValues(gateway, operation).Observe(duration.Seconds())
}

// RecordAPIRequest counts and times one HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
