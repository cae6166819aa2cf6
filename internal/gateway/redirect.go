// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/signature"
)

// RedirectClient initiates transactions on the redirect-model gateway and
// queries their status. Request bodies are signed with the merchant key;
// the signature covers the exact serialized body bytes.
type RedirectClient struct {
	baseURL     string
	merchantID  string
	website     string
	callbackURL string
	signer      *signature.RedirectVerifier
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[[]byte]
}

// NewRedirectClient creates a redirect gateway client.
func NewRedirectClient(cfg *config.RedirectGatewayConfig, timeout time.Duration) *RedirectClient {
	return &RedirectClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		merchantID:  cfg.MerchantID,
		website:     cfg.Website,
		callbackURL: cfg.CallbackURL,
		signer:      signature.NewRedirectVerifier(cfg.MerchantKey),
		httpClient:  &http.Client{Timeout: timeout},
		breaker:     NewBreaker("redirect-gateway", DefaultBreakerSettings()),
	}
}

// Gateway implements Client.
func (c *RedirectClient) Gateway() models.Gateway { return models.GatewayRedirect }

type redirectHead struct {
	Signature string `json:"signature,omitempty"`
	TokenType string `json:"tokenType,omitempty"`
}

type redirectEnvelope struct {
	Head redirectHead    `json:"head"`
	Body json.RawMessage `json:"body"`
}

type redirectResultInfo struct {
	ResultStatus string `json:"resultStatus"`
	ResultCode   string `json:"resultCode"`
	ResultMsg    string `json:"resultMsg"`
}

type redirectMoney struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type initiateBody struct {
	RequestType string        `json:"requestType"`
	MID         string        `json:"mid"`
	WebsiteName string        `json:"websiteName"`
	OrderID     string        `json:"orderId"`
	CallbackURL string        `json:"callbackUrl"`
	TxnAmount   redirectMoney `json:"txnAmount"`
	UserInfo    struct {
		CustID    string `json:"custId"`
		Email     string `json:"email,omitempty"`
		Mobile    string `json:"mobile,omitempty"`
		FirstName string `json:"firstName,omitempty"`
	} `json:"userInfo"`
}

type initiateResponse struct {
	ResultInfo redirectResultInfo `json:"resultInfo"`
	TxnToken   string             `json:"txnToken"`
}

type statusBody struct {
	MID     string `json:"mid"`
	OrderID string `json:"orderId"`
}

type statusResponse struct {
	ResultInfo  redirectResultInfo `json:"resultInfo"`
	TxnID       string             `json:"txnId"`
	BankTxnID   string             `json:"bankTxnId"`
	OrderID     string             `json:"orderId"`
	TxnAmount   string             `json:"txnAmount"`
	TxnType     string             `json:"txnType"`
	GatewayName string             `json:"gatewayName"`
	PaymentMode string             `json:"paymentMode"`
	TxnDate     string             `json:"txnDate"`
}

// CreatePaymentHandle requests a transaction token for the order. The
// payer's browser then posts the token to PaymentURL.
func (c *RedirectClient) CreatePaymentHandle(ctx context.Context, req PaymentRequest) (*PaymentHandle, error) {
	body := initiateBody{
		RequestType: "Payment",
		MID:         c.merchantID,
		WebsiteName: c.website,
		OrderID:     req.OrderID,
		CallbackURL: c.callbackURL,
		TxnAmount: redirectMoney{
			Value:    req.Amount.StringFixed(2),
			Currency: strings.ToUpper(req.Currency),
		},
	}
	body.UserInfo.CustID = customerID(req)
	body.UserInfo.Email = req.DonorEmail
	body.UserInfo.Mobile = req.DonorPhone
	body.UserInfo.FirstName = req.DonorName

	query := url.Values{"mid": {c.merchantID}, "orderId": {req.OrderID}}
	respBody, err := c.post(ctx, "create", "/theia/api/v1/initiateTransaction?"+query.Encode(), body)
	if err != nil {
		return nil, err
	}

	var resp initiateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode initiate response: %v", ErrGatewayRejected, err)
	}
	if resp.ResultInfo.ResultStatus != "S" || resp.TxnToken == "" {
		return nil, fmt.Errorf("%w: %s (%s)", ErrGatewayRejected, resp.ResultInfo.ResultMsg, resp.ResultInfo.ResultCode)
	}

	logging.Ctx(ctx).Debug().Str("txn_token", logging.SanitizeToken(resp.TxnToken)).Msg("Transaction token issued")
	return &PaymentHandle{
		Gateway:    models.GatewayRedirect,
		Reference:  resp.TxnToken,
		MerchantID: c.merchantID,
		PaymentURL: c.baseURL + "/theia/api/v1/showPaymentPage?" + query.Encode(),
	}, nil
}

// FetchStatus asks the gateway for the authoritative status of an order.
func (c *RedirectClient) FetchStatus(ctx context.Context, q StatusQuery) (*models.Settlement, error) {
	respBody, err := c.post(ctx, "status", "/v3/order/status", statusBody{MID: c.merchantID, OrderID: q.OrderID})
	if err != nil {
		return nil, err
	}

	var resp statusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode status response: %v", ErrGatewayRejected, err)
	}

	s := &models.Settlement{
		Gateway:       models.GatewayRedirect,
		EventType:     "status:" + resp.ResultInfo.ResultStatus,
		OrderID:       q.OrderID,
		TransactionID: resp.TxnID,
		PaymentMethod: resp.PaymentMode,
		Message:       resp.ResultInfo.ResultMsg,
		Raw:           respBody,
	}
	if at, ok := models.ParseRedirectTxnDate(resp.TxnDate); ok {
		s.SettledAt = at
	}

	switch resp.ResultInfo.ResultStatus {
	case models.RedirectStatusSuccess:
		s.Outcome = models.OutcomeSucceeded
		if amount, err := decimal.NewFromString(resp.TxnAmount); err == nil {
			s.Amount = &amount
		}
	case models.RedirectStatusFailure:
		s.Outcome = models.OutcomeFailed
	default:
		s.Outcome = models.OutcomePending
	}
	return s, nil
}

// post signs body, sends it, verifies the response signature when present
// and returns the response body object.
func (c *RedirectClient) post(ctx context.Context, operation, path string, body any) ([]byte, error) {
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	sig, err := c.signer.SignString(string(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("sign request body: %w", err)
	}
	payload, err := json.Marshal(redirectEnvelope{
		Head: redirectHead{Signature: sig},
		Body: bodyJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	raw, err := doRequest(ctx, c.httpClient, c.breaker, string(models.GatewayRedirect), operation, httpReq)
	if err != nil {
		return nil, err
	}

	var env redirectEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: decode response envelope: %v", ErrGatewayRejected, err)
	}
	if env.Head.Signature != "" {
		ok, err := c.signer.VerifyString(string(env.Body), env.Head.Signature)
		if err != nil || !ok {
			return nil, fmt.Errorf("%w: response signature mismatch", ErrGatewayRejected)
		}
	}
	return env.Body, nil
}

func customerID(req PaymentRequest) string {
	if req.CustomerID != "" {
		return req.CustomerID
	}
	return "CUST_" + req.OrderID
}
