// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

/*
Package middleware provides HTTP middleware shared by every Kindred route.

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge
  - SecurityHeaders: conservative response headers for a JSON/PDF API

All three use the http.HandlerFunc -> http.HandlerFunc shape; the api
package adapts them to chi with chiMiddleware.

The endpoint label recorded by PrometheusMetrics is the chi route pattern
(for example /api/v1/donations/{orderId}), never the raw path, so order
ids do not create new series.
*/
package middleware
