// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/kindred/internal/metrics"
)

// maxResponseBytes caps gateway response bodies.
const maxResponseBytes = 1 << 20

// doRequest executes req through cb and classifies the outcome.
func doRequest(ctx context.Context, httpClient *http.Client, cb *gobreaker.CircuitBreaker[[]byte],
	gatewayName, operation string, req *http.Request) ([]byte, error) {
	start := time.Now()

	body, err := cb.Execute(func() ([]byte, error) {
		resp, err := httpClient.Do(req.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %v", ErrGatewayUnavailable, err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: HTTP %d", ErrGatewayUnavailable, resp.StatusCode)
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("%w: HTTP %d: %s", ErrGatewayRejected, resp.StatusCode, truncate(data, 200))
		}
		return data, nil
	})
	err = breakerError(cb.Name(), err)

	result := "success"
	switch {
	case errors.Is(err, ErrGatewayRejected):
		result = "rejected"
	case err != nil:
		result = "unavailable"
	}
	metrics.RecordGatewayRequest(gatewayName, operation, result, time.Since(start))
	return body, err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
