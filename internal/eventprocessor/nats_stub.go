// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

//go:build !nats

package eventprocessor

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/kindred/internal/config"
)

// ErrNATSNotCompiled is returned for backend "nats" in builds without the nats tag.
var ErrNATSNotCompiled = errors.New("events backend nats requires building with -tags nats")

func newNATSPubSub(*config.EventsConfig, watermill.LoggerAdapter) (*PubSub, error) {
	return nil, ErrNATSNotCompiled
}
