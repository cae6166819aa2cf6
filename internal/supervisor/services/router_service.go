// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/kindred/internal/logging"
)

// RouterRunner matches *eventprocessor.Router.
type RouterRunner interface {
	Run(ctx context.Context) error
	Close() error
}

// EventRouterService runs the donation event router under supervision.
// Run blocks until ctx is cancelled; the router closes itself on
// cancellation and Close is called again to wait out in-flight handlers.
type EventRouterService struct {
	router RouterRunner
	name   string
}

// NewEventRouterService wraps router.
func NewEventRouterService(router RouterRunner) *EventRouterService {
	return &EventRouterService{router: router, name: "event-router"}
}

// Serve implements suture.Service.
func (s *EventRouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		if closeErr := s.router.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Event router close failed")
		}
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("event router stopped: %w", err)
	}
	return errors.New("event router stopped unexpectedly")
}

// String implements fmt.Stringer for suture log events.
func (s *EventRouterService) String() string {
	return s.name
}
