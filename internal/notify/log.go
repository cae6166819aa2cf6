// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package notify

import (
	"context"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/logging"
)

// LogNotifier stands in for an unconfigured channel. It logs the intended
// delivery and reports it as a stubbed success.
type LogNotifier struct {
	channel ChannelName
}

// NewLogNotifier creates a stub for channel.
func NewLogNotifier(channel ChannelName) *LogNotifier {
	return &LogNotifier{channel: channel}
}

// Channel implements Notifier.
func (n *LogNotifier) Channel() ChannelName { return n.channel }

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, d *Delivery) ChannelResult {
	var recipient string
	switch n.channel {
	case ChannelEmail:
		recipient = logging.SanitizeEmail(d.DonorEmail)
	case ChannelChat:
		recipient = logging.SanitizePhone(d.DonorPhone)
	}
	if recipient == "" {
		return ChannelResult{Channel: n.channel, Skipped: true}
	}

	logging.Ctx(ctx).Info().
		Str("channel", string(n.channel)).
		Str("recipient", recipient).
		Int("attachment_bytes", len(d.Receipt)).
		Msg("Channel not configured, receipt delivery logged only")

	return ChannelResult{Channel: n.channel, Success: true, Stubbed: true, Recipient: recipient}
}

// NewNotifiers returns one notifier per channel: the real one when its
// credentials are configured, otherwise a LogNotifier.
func NewNotifiers(cfg *config.NotifyConfig) []Notifier {
	notifiers := make([]Notifier, 0, 2)

	if cfg.Email.Configured() {
		notifiers = append(notifiers, NewEmailNotifier(cfg.Email))
	} else {
		logging.Warn().Msg("SMTP not configured, email receipts will be logged only")
		notifiers = append(notifiers, NewLogNotifier(ChannelEmail))
	}

	if cfg.Chat.Configured() {
		notifiers = append(notifiers, NewChatNotifier(cfg.Chat))
	} else {
		logging.Warn().Msg("Chat API not configured, chat receipts will be logged only")
		notifiers = append(notifiers, NewLogNotifier(ChannelChat))
	}
	return notifiers
}
