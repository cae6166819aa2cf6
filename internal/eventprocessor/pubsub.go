// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package eventprocessor

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/logging"
)

// PubSub is a paired publisher and subscriber on one backend.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	close      func() error
}

// Close closes both sides.
func (p *PubSub) Close() error {
	if p.close != nil {
		return p.close()
	}
	return nil
}

// NewLogger returns a watermill logger writing through zerolog.
func NewLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewPubSub opens the configured backend: an in-process channel for
// "memory" or NATS JetStream for "nats" (requires the nats build tag).
func NewPubSub(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*PubSub, error) {
	if logger == nil {
		logger = NewLogger()
	}
	switch cfg.Backend {
	case "", "memory":
		return newMemoryPubSub(cfg, logger), nil
	case "nats":
		return newNATSPubSub(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// newMemoryPubSub keeps every published message for the process lifetime
// and replays them to each new subscription. A donation.completed event
// published before the router subscribes, or while it restarts, is
// delivered once it subscribes; replays of already delivered events stop
// at the receipt claim.
func newMemoryPubSub(cfg *config.EventsConfig, logger watermill.LoggerAdapter) *PubSub {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
		Persistent:          true,
	}, logger)
	return &PubSub{Publisher: ch, Subscriber: ch, close: ch.Close}
}
