// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/models"
)

// PushClient creates and queries payment intents on the push-model gateway.
type PushClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// NewPushClient creates a push gateway client.
func NewPushClient(cfg *config.PushGatewayConfig, timeout time.Duration) *PushClient {
	return &PushClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    NewBreaker("push-gateway", DefaultBreakerSettings()),
	}
}

// Gateway implements Client.
func (c *PushClient) Gateway() models.Gateway { return models.GatewayPush }

// CreatePaymentHandle creates a payment intent tagged with the order id.
// The order id doubles as the idempotency key so a retried initiation
// cannot create a second intent.
func (c *PushClient) CreatePaymentHandle(ctx context.Context, req PaymentRequest) (*PaymentHandle, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(models.ToMinor(req.Amount), 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[order_id]", req.OrderID)
	form.Set("metadata[donation_id]", req.DonationID)
	if req.CustomerID != "" {
		form.Set("metadata[user_id]", req.CustomerID)
	}
	if req.Description != "" {
		form.Set("description", req.Description)
	}
	if req.DonorEmail != "" {
		form.Set("receipt_email", req.DonorEmail)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build payment intent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Idempotency-Key", req.OrderID)
	c.authorize(httpReq)

	body, err := doRequest(ctx, c.httpClient, c.breaker, string(models.GatewayPush), "create", httpReq)
	if err != nil {
		return nil, err
	}

	var intent models.PaymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("%w: decode payment intent: %v", ErrGatewayRejected, err)
	}
	if intent.ID == "" || intent.ClientSecret == "" {
		return nil, fmt.Errorf("%w: payment intent missing id or client secret", ErrGatewayRejected)
	}

	logging.Ctx(ctx).Debug().Str("intent_id", intent.ID).Msg("Payment intent created")
	return &PaymentHandle{
		Gateway:      models.GatewayPush,
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// FetchStatus retrieves the payment intent recorded as the donation's
// gateway reference and maps it to a settlement outcome.
func (c *PushClient) FetchStatus(ctx context.Context, q StatusQuery) (*models.Settlement, error) {
	if q.GatewayRef == "" {
		return nil, fmt.Errorf("%w for order %s", ErrNoPaymentHandle, q.OrderID)
	}

	httpReq, err := http.NewRequest(http.MethodGet, c.baseURL+"/v1/payment_intents/"+url.PathEscape(q.GatewayRef), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	c.authorize(httpReq)

	body, err := doRequest(ctx, c.httpClient, c.breaker, string(models.GatewayPush), "status", httpReq)
	if err != nil {
		return nil, err
	}

	var intent models.PaymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("%w: decode payment intent: %v", ErrGatewayRejected, err)
	}
	return PushIntentSettlement(&intent, body, q.OrderID), nil
}

func (c *PushClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
}

// PushIntentSettlement maps a payment intent's status to a settlement.
// A failed attempt leaves the intent in requires_payment_method with a
// last_payment_error, which is reported as failed.
func PushIntentSettlement(intent *models.PaymentIntent, raw []byte, fallbackOrderID string) *models.Settlement {
	orderID := intent.OrderID()
	if orderID == "" {
		orderID = fallbackOrderID
	}

	s := &models.Settlement{
		Gateway:       models.GatewayPush,
		EventType:     "status:" + intent.Status,
		OrderID:       orderID,
		TransactionID: intent.TransactionID(),
		PaymentMethod: intent.PaymentMethod(),
		Currency:      strings.ToUpper(intent.Currency),
		Raw:           raw,
	}

	switch {
	case intent.Status == "succeeded":
		s.Outcome = models.OutcomeSucceeded
		amount := models.FromMinor(intent.AmountReceived)
		if intent.AmountReceived == 0 {
			amount = models.FromMinor(intent.Amount)
		}
		s.Amount = &amount
	case intent.Status == "canceled":
		s.Outcome = models.OutcomeFailed
		s.Message = intent.FailureMessage()
	case intent.Status == "requires_payment_method" && intent.LastPaymentError != nil:
		s.Outcome = models.OutcomeFailed
		s.Message = intent.FailureMessage()
	default:
		s.Outcome = models.OutcomePending
	}
	return s
}
