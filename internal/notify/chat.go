// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/metrics"
	"github.com/tomtom215/kindred/internal/receipt"
)

const chatBreakerName = "chat-notifier"

var errChatRejected = errors.New("chat API rejected request")

// ChatNotifier delivers the receipt as a document over a WhatsApp Cloud
// API style messaging endpoint: an acknowledgment message, a fixed pause,
// a media upload and finally a document message referencing the upload.
type ChatNotifier struct {
	cfg        config.ChatConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewChatNotifier creates a chat notifier.
func NewChatNotifier(cfg config.ChatConfig) *ChatNotifier {
	limit := rate.Inf
	if cfg.RateLimitPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimitPerSecond)
	}
	return &ChatNotifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    newChatBreaker(),
		sleep:      sleepContext,
	}
}

func newChatBreaker() *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(chatBreakerName).Set(0)
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        chatBreakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			var v float64
			switch to {
			case gobreaker.StateHalfOpen:
				v = 1
			case gobreaker.StateOpen:
				v = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(v)
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errChatRejected)
		},
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Channel implements Notifier.
func (n *ChatNotifier) Channel() ChannelName { return ChannelChat }

// Notify implements Notifier.
func (n *ChatNotifier) Notify(ctx context.Context, d *Delivery) ChannelResult {
	to := NormalizePhone(d.DonorPhone, n.cfg.DefaultCountryCode)
	if to == "" {
		return ChannelResult{Channel: ChannelChat, Skipped: true}
	}
	recipient := logging.SanitizePhone(to)

	if err := n.sendJSON(ctx, n.ackMessage(to, d)); err != nil {
		return failed(ChannelChat, recipient, classifyChatError(err), fmt.Errorf("send acknowledgment: %w", err))
	}

	// The document is sent after a fixed pause so it arrives after the
	// acknowledgment on the donor's device.
	if err := n.sleep(ctx, n.cfg.DocumentDelay); err != nil {
		return failed(ChannelChat, recipient, ErrorCodeTimeout, err)
	}

	filename := d.Filename
	if filename == "" {
		filename = receipt.Filename(d.OrderID)
	}
	mediaID, err := n.uploadMedia(ctx, filename, d.Receipt)
	if err != nil {
		return failed(ChannelChat, recipient, classifyChatError(err), fmt.Errorf("upload receipt: %w", err))
	}

	doc := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "document",
		"document": map[string]string{
			"id":       mediaID,
			"caption":  "Donation receipt " + d.OrderID,
			"filename": filename,
		},
	}
	if err := n.sendJSON(ctx, doc); err != nil {
		return failed(ChannelChat, recipient, classifyChatError(err), fmt.Errorf("send document: %w", err))
	}
	return ChannelResult{Channel: ChannelChat, Success: true, Recipient: recipient}
}

func (n *ChatNotifier) ackMessage(to string, d *Delivery) map[string]any {
	name := d.DonorName
	if name == "" {
		name = "Donor"
	}
	amount := strings.TrimSpace(d.Currency + " " + receipt.FormatAmount(d.Amount))

	if n.cfg.TemplateName != "" {
		return map[string]any{
			"messaging_product": "whatsapp",
			"to":                to,
			"type":              "template",
			"template": map[string]any{
				"name":     n.cfg.TemplateName,
				"language": map[string]string{"code": n.cfg.TemplateLanguage},
				"components": []map[string]any{{
					"type": "body",
					"parameters": []map[string]string{
						{"type": "text", "text": name},
						{"type": "text", "text": amount},
						{"type": "text", "text": d.OrderID},
					},
				}},
			},
		}
	}
	return map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]string{
			"body": fmt.Sprintf("Dear %s, thank you for your donation of %s. Your receipt for order %s follows.",
				name, amount, d.OrderID),
		},
	}
}

func (n *ChatNotifier) sendJSON(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = n.do(ctx, "messages", "application/json", body)
	return err
}

func (n *ChatNotifier) uploadMedia(ctx context.Context, filename string, pdf []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("messaging_product", "whatsapp")
	_ = mw.WriteField("type", "application/pdf")
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)},
		"Content-Type":        {"application/pdf"},
	})
	if err != nil {
		return "", err
	}
	if _, err := part.Write(pdf); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	resp, err := n.do(ctx, "media", mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return "", err
	}
	var media struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &media); err != nil || media.ID == "" {
		return "", fmt.Errorf("%w: media upload returned no id", errChatRejected)
	}
	return media.ID, nil
}

// do posts body to the phone number's endpoint through the limiter and breaker.
func (n *ChatNotifier) do(ctx context.Context, endpoint, contentType string, body []byte) ([]byte, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	url := strings.TrimRight(n.cfg.BaseURL, "/") + "/" + n.cfg.PhoneNumberID + "/" + endpoint

	resp, err := n.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+n.cfg.AccessToken)

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: HTTP %d", errChatRejected, resp.StatusCode)
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("chat API error: HTTP %d", resp.StatusCode)
		}
		return data, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRejections.WithLabelValues(chatBreakerName).Inc()
	}
	return resp, err
}

func classifyChatError(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrorCodeCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeTimeout
	case errors.Is(err, errChatRejected):
		if strings.Contains(err.Error(), "HTTP 401") || strings.Contains(err.Error(), "HTTP 403") {
			return ErrorCodeAuthFailed
		}
		return ErrorCodeRejected
	case strings.Contains(err.Error(), "HTTP 429"):
		return ErrorCodeRateLimited
	default:
		return ErrorCodeConnectionFailed
	}
}

// NormalizePhone reduces a phone number to digits with a country code.
// Ten-digit local numbers get defaultCountryCode. Returns "" when the
// input holds too few digits to be a phone number.
func NormalizePhone(phone, defaultCountryCode string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) < 10:
		return ""
	case len(digits) == 10:
		return defaultCountryCode + digits
	case len(digits) == 11 && digits[0] == '0':
		return defaultCountryCode + digits[1:]
	default:
		return digits
	}
}
