// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/kindred/internal/config"
)

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond limits handled messages per second, 0 disables.
	ThrottlePerSecond int64

	// PoisonQueueTopic receives messages that still fail after all retries.
	PoisonQueueTopic string
}

// RouterConfigFrom maps event configuration onto router settings.
func RouterConfigFrom(cfg *config.EventsConfig) RouterConfig {
	return RouterConfig{
		CloseTimeout:         cfg.CloseTimeout,
		RetryMaxRetries:      cfg.RetryCount,
		RetryInitialInterval: cfg.RetryInitialInterval,
		RetryMaxInterval:     30 * time.Second,
		RetryMultiplier:      2.0,
		ThrottlePerSecond:    cfg.ThrottlePerSecond,
		PoisonQueueTopic:     cfg.PoisonQueueTopic,
	}
}

// Router wraps the Watermill Router with the middleware chain every
// consumer shares.
type Router struct {
	router   *message.Router
	config   RouterConfig
	handlers map[string]*message.Handler
}

// NewRouter creates a router. Middleware, outer to inner:
//  1. Poison queue - park messages that exhausted retries
//  2. Recoverer - turn handler panics into errors
//  3. Retry - exponential backoff
//  4. Throttle - optional rate limit
func NewRouter(cfg RouterConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = NewLogger()
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	if poisonPublisher != nil && cfg.PoisonQueueTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(poisonPublisher, cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poisonQueue)
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	if cfg.ThrottlePerSecond > 0 {
		wmRouter.AddMiddleware(middleware.NewThrottle(cfg.ThrottlePerSecond, time.Second).Middleware)
	}

	return &Router{
		router:   wmRouter,
		config:   cfg,
		handlers: make(map[string]*message.Handler),
	}, nil
}

// AddConsumerHandler registers a handler that produces no output messages.
func (r *Router) AddConsumerHandler(name, topic string, subscriber message.Subscriber,
	handler message.NoPublishHandlerFunc) *message.Handler {
	h := r.router.AddConsumerHandler(name, topic, subscriber, handler)
	r.handlers[name] = h
	return h
}

// Run starts the router and blocks until ctx is cancelled or Close is called.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel closed once the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// IsRunning reports whether the router is processing messages.
func (r *Router) IsRunning() bool {
	return r.router.IsRunning()
}

// Close stops the router, waiting up to CloseTimeout for in-flight messages.
func (r *Router) Close() error {
	return r.router.Close()
}
