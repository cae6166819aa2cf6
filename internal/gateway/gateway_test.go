// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/signature"
)

const testMerchantKey = "0123456789abcdef"

func newTestPushClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *PushClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPushClient(&config.PushGatewayConfig{BaseURL: srv.URL, SecretKey: "sk_test_key"}, timeout)
}

func newTestRedirectClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *RedirectClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRedirectClient(&config.RedirectGatewayConfig{
		BaseURL:     srv.URL,
		MerchantID:  "MID123",
		MerchantKey: testMerchantKey,
		Website:     "WEBSTAGING",
		CallbackURL: "https://kindred.example/api/v1/webhooks/redirect",
	}, timeout)
}

func TestPushClient_CreatePaymentHandle(t *testing.T) {
	t.Parallel()

	type captured struct {
		form       url.Values
		auth, idem string
	}
	seen := make(chan captured, 1)
	client := newTestPushClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		seen <- captured{form: r.PostForm, auth: r.Header.Get("Authorization"), idem: r.Header.Get("Idempotency-Key")}
		_, _ = io.WriteString(w, `{"id":"pi_123","client_secret":"pi_123_secret_abc","status":"requires_payment_method"}`)
	}, time.Second)

	handle, err := client.CreatePaymentHandle(context.Background(), PaymentRequest{
		DonationID: "d-1",
		OrderID:    "DON20260101120000ABC123",
		Amount:     decimal.RequireFromString("1500"),
		Currency:   "INR",
		DonorEmail: "asha@example.org",
	})
	if err != nil {
		t.Fatalf("CreatePaymentHandle() error = %v", err)
	}
	if handle.Reference != "pi_123" || handle.ClientSecret != "pi_123_secret_abc" {
		t.Errorf("handle = %+v", handle)
	}
	got := <-seen
	gotAuth, gotIdem, gotForm := got.auth, got.idem, got.form
	if gotAuth != "Bearer sk_test_key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotIdem != "DON20260101120000ABC123" {
		t.Errorf("Idempotency-Key = %q", gotIdem)
	}
	if gotForm.Get("amount") != "150000" {
		t.Errorf("amount = %q, want 150000", gotForm.Get("amount"))
	}
	if gotForm.Get("currency") != "inr" {
		t.Errorf("currency = %q, want inr", gotForm.Get("currency"))
	}
	if gotForm.Get("metadata[order_id]") != "DON20260101120000ABC123" {
		t.Errorf("metadata[order_id] = %q", gotForm.Get("metadata[order_id]"))
	}
}

func TestPushClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"bad request", http.StatusBadRequest, ErrGatewayRejected},
		{"unauthorized", http.StatusUnauthorized, ErrGatewayRejected},
		{"rate limited", http.StatusTooManyRequests, ErrGatewayUnavailable},
		{"server error", http.StatusInternalServerError, ErrGatewayUnavailable},
		{"bad gateway", http.StatusBadGateway, ErrGatewayUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestPushClient(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":{"message":"nope"}}`, tt.status)
			}, time.Second)

			_, err := client.FetchStatus(context.Background(), StatusQuery{OrderID: "DON1", GatewayRef: "pi_1"})
			if !errors.Is(err, tt.want) {
				t.Errorf("FetchStatus() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPushClient_FetchStatusTimeout(t *testing.T) {
	t.Parallel()

	client := newTestPushClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	_, err := client.FetchStatus(context.Background(), StatusQuery{OrderID: "DON1", GatewayRef: "pi_1"})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("FetchStatus() error = %v, want ErrGatewayUnavailable", err)
	}
}

func TestPushClient_FetchStatusWithoutReference(t *testing.T) {
	t.Parallel()

	client := newTestPushClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("unexpected request")
	}, time.Second)

	_, err := client.FetchStatus(context.Background(), StatusQuery{OrderID: "DON1"})
	if !errors.Is(err, ErrNoPaymentHandle) || !errors.Is(err, ErrGatewayRejected) {
		t.Fatalf("FetchStatus() error = %v, want ErrNoPaymentHandle", err)
	}
}

func TestPushIntentSettlement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		intent     models.PaymentIntent
		want       models.SettlementOutcome
		wantAmount string
	}{
		{
			name:       "succeeded",
			intent:     models.PaymentIntent{ID: "pi_1", Status: "succeeded", AmountReceived: 150000, Metadata: map[string]string{"order_id": "DON1"}},
			want:       models.OutcomeSucceeded,
			wantAmount: "1500",
		},
		{
			name:   "canceled",
			intent: models.PaymentIntent{ID: "pi_1", Status: "canceled", CancellationReason: "abandoned"},
			want:   models.OutcomeFailed,
		},
		{
			name:   "attempt failed",
			intent: models.PaymentIntent{ID: "pi_1", Status: "requires_payment_method", LastPaymentError: &models.PaymentError{Message: "card declined"}},
			want:   models.OutcomeFailed,
		},
		{
			name:   "never attempted",
			intent: models.PaymentIntent{ID: "pi_1", Status: "requires_payment_method"},
			want:   models.OutcomePending,
		},
		{
			name:   "processing",
			intent: models.PaymentIntent{ID: "pi_1", Status: "processing"},
			want:   models.OutcomePending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := PushIntentSettlement(&tt.intent, nil, "DON1")
			if s.Outcome != tt.want {
				t.Errorf("Outcome = %q, want %q", s.Outcome, tt.want)
			}
			if s.OrderID != "DON1" {
				t.Errorf("OrderID = %q, want DON1", s.OrderID)
			}
			if tt.wantAmount != "" {
				if s.Amount == nil || !s.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
					t.Errorf("Amount = %v, want %s", s.Amount, tt.wantAmount)
				}
			}
		})
	}
}

// redirectServer verifies the request signature and answers with a signed body.
func redirectServer(t *testing.T, respond func(body map[string]any) any) http.HandlerFunc {
	t.Helper()
	verifier := signature.NewRedirectVerifier(testMerchantKey)
	return func(w http.ResponseWriter, r *http.Request) {
		var env redirectEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		ok, err := verifier.VerifyString(string(env.Body), env.Head.Signature)
		if err != nil || !ok {
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		var body map[string]any
		_ = json.Unmarshal(env.Body, &body)

		out, _ := json.Marshal(respond(body))
		sig, _ := verifier.SignString(string(out))
		_ = json.NewEncoder(w).Encode(redirectEnvelope{Head: redirectHead{Signature: sig}, Body: out})
	}
}

func TestRedirectClient_CreatePaymentHandle(t *testing.T) {
	t.Parallel()

	seen := make(chan map[string]any, 1)
	client := newTestRedirectClient(t, redirectServer(t, func(body map[string]any) any {
		seen <- body
		return map[string]any{
			"resultInfo": map[string]string{"resultStatus": "S", "resultCode": "0000", "resultMsg": "Success"},
			"txnToken":   "tok_abcdef123456",
		}
	}), time.Second)

	handle, err := client.CreatePaymentHandle(context.Background(), PaymentRequest{
		OrderID:  "DON20260101120000XYZ789",
		Amount:   decimal.RequireFromString("1500"),
		Currency: "INR",
	})
	if err != nil {
		t.Fatalf("CreatePaymentHandle() error = %v", err)
	}
	if handle.Reference != "tok_abcdef123456" || handle.MerchantID != "MID123" {
		t.Errorf("handle = %+v", handle)
	}
	if handle.PaymentURL == "" {
		t.Error("PaymentURL is empty")
	}
	gotBody := <-seen
	amount, _ := gotBody["txnAmount"].(map[string]any)
	if amount["value"] != "1500.00" {
		t.Errorf("txnAmount.value = %v, want 1500.00", amount["value"])
	}
}

func TestRedirectClient_CreatePaymentHandleRefused(t *testing.T) {
	t.Parallel()

	client := newTestRedirectClient(t, redirectServer(t, func(map[string]any) any {
		return map[string]any{
			"resultInfo": map[string]string{"resultStatus": "F", "resultCode": "1001", "resultMsg": "Invalid order"},
		}
	}), time.Second)

	_, err := client.CreatePaymentHandle(context.Background(), PaymentRequest{
		OrderID: "DON1", Amount: decimal.RequireFromString("10"), Currency: "INR",
	})
	if !errors.Is(err, ErrGatewayRejected) {
		t.Fatalf("error = %v, want ErrGatewayRejected", err)
	}
}

func TestRedirectClient_FetchStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status string
		want   models.SettlementOutcome
	}{
		{models.RedirectStatusSuccess, models.OutcomeSucceeded},
		{models.RedirectStatusFailure, models.OutcomeFailed},
		{models.RedirectStatusPending, models.OutcomePending},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()
			client := newTestRedirectClient(t, redirectServer(t, func(body map[string]any) any {
				return map[string]any{
					"resultInfo":  map[string]string{"resultStatus": tt.status, "resultMsg": "msg"},
					"txnId":       "T123",
					"orderId":     body["orderId"],
					"txnAmount":   "1500.00",
					"paymentMode": "UPI",
					"txnDate":     "2026-01-01 17:30:00.0",
				}
			}), time.Second)

			s, err := client.FetchStatus(context.Background(), StatusQuery{OrderID: "DON1"})
			if err != nil {
				t.Fatalf("FetchStatus() error = %v", err)
			}
			if s.Outcome != tt.want {
				t.Errorf("Outcome = %q, want %q", s.Outcome, tt.want)
			}
			if s.TransactionID != "T123" || s.PaymentMethod != "UPI" {
				t.Errorf("settlement = %+v", s)
			}
			wantAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
			if !s.SettledAt.Equal(wantAt) {
				t.Errorf("SettledAt = %v, want %v", s.SettledAt, wantAt)
			}
		})
	}
}

func TestRedirectClient_ResponseSignatureMismatch(t *testing.T) {
	t.Parallel()

	client := newTestRedirectClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"head":{"signature":"bm90LWEtcmVhbC1zaWduYXR1cmUtYXQtYWxs"},"body":{"resultInfo":{"resultStatus":"TXN_SUCCESS"}}}`)
	}, time.Second)

	_, err := client.FetchStatus(context.Background(), StatusQuery{OrderID: "DON1"})
	if !errors.Is(err, ErrGatewayRejected) {
		t.Fatalf("error = %v, want ErrGatewayRejected", err)
	}
}

func TestRedirectClient_FetchStatusTimeout(t *testing.T) {
	t.Parallel()

	client := newTestRedirectClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	_, err := client.FetchStatus(context.Background(), StatusQuery{OrderID: "DON1"})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("FetchStatus() error = %v, want ErrGatewayUnavailable", err)
	}
}

func TestBreaker_OpensOnRepeatedFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestPushClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, time.Second)

	settings := DefaultBreakerSettings()
	for i := 0; i < int(settings.MinRequests)+3; i++ {
		_, err := client.FetchStatus(context.Background(), StatusQuery{OrderID: "DON1", GatewayRef: "pi_1"})
		if !errors.Is(err, ErrGatewayUnavailable) {
			t.Fatalf("call %d: error = %v, want ErrGatewayUnavailable", i, err)
		}
	}
	if got := calls.Load(); got != int32(settings.MinRequests) {
		t.Errorf("server saw %d calls, want %d once the breaker opened", got, settings.MinRequests)
	}
}

func TestBreaker_RejectionsDoNotTrip(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestPushClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, time.Second)

	for i := 0; i < 10; i++ {
		_, _ = client.FetchStatus(context.Background(), StatusQuery{OrderID: "DON1", GatewayRef: "pi_1"})
	}
	if got := calls.Load(); got != 10 {
		t.Errorf("server saw %d calls, want 10", got)
	}
}
