// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

//go:build nats

package eventprocessor

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/kindred/internal/config"
)

func newNATSPubSub(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*PubSub, error) {
	url := cfg.NATSURL
	var embedded *EmbeddedServer
	if cfg.EmbeddedServer {
		var err error
		if embedded, err = NewEmbeddedServer(cfg); err != nil {
			return nil, err
		}
		url = embedded.ClientURL()
		logger.Info("Embedded NATS server started", watermill.LogFields{"url": url})
	}
	shutdownEmbedded := func() {
		if embedded != nil {
			embedded.Shutdown()
		}
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			// The message UUID is the order id, so JetStream drops a
			// second publish for the same order within its dedupe window.
			TrackMsgId: true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		shutdownEmbedded()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.DurableName,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			AckAsync:      false,
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.MaxDeliver(cfg.RetryCount + 5),
				natsgo.AckWait(30 * time.Second),
				natsgo.DeliverAll(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		shutdownEmbedded()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	logger.Info("NATS event backend connected", watermill.LogFields{"url": url})
	return &PubSub{
		Publisher:  pub,
		Subscriber: sub,
		close: func() error {
			err := errors.Join(sub.Close(), pub.Close())
			shutdownEmbedded()
			return err
		},
	}, nil
}
