// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package payment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/database"
	"github.com/tomtom215/kindred/internal/dedupe"
	"github.com/tomtom215/kindred/internal/gateway"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/signature"
)

const (
	testPushSecret  = "whsec_test_secret"
	testMerchantKey = "abcdefghijklmnop" // 16 bytes, AES-128
)

func newTestStore(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: "", Threads: 1, MaxMemory: "256MB"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedCampaign(t *testing.T, store *database.DB, id string, endDate *time.Time) {
	t.Helper()
	err := store.CreateCampaign(context.Background(), &models.Campaign{
		ID:       id,
		Title:    "School Meals",
		Goal:     decimal.NewFromInt(100000),
		Currency: "INR",
		EndDate:  endDate,
	})
	if err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
}

func seedDonation(t *testing.T, store *database.DB, orderID string, gw models.Gateway, amount, campaignID string) *models.Donation {
	t.Helper()
	d := &models.Donation{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		Gateway:    gw,
		GatewayRef: "pi_" + orderID,
		Amount:     decimal.RequireFromString(amount),
		Currency:   "INR",
		Status:     models.StatusPending,
		DonorName:  "Asha Rao",
		CampaignID: campaignID,
	}
	if err := store.CreateDonation(context.Background(), d); err != nil {
		t.Fatalf("seed donation: %v", err)
	}
	return d
}

func mustStatus(t *testing.T, store *database.DB, orderID string, want models.DonationStatus) {
	t.Helper()
	d, err := store.GetDonationByOrderID(context.Background(), orderID)
	if err != nil {
		t.Fatalf("GetDonationByOrderID(%s): %v", orderID, err)
	}
	if d.Status != want {
		t.Fatalf("status of %s = %s, want %s", orderID, d.Status, want)
	}
}

func mustRaised(t *testing.T, store *database.DB, campaignID, want string) {
	t.Helper()
	c, err := store.GetCampaign(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if !c.Raised.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("raised = %s, want %s", c.Raised, want)
	}
}

type recordingDispatcher struct {
	mu     sync.Mutex
	orders []string
	err    error
}

func (r *recordingDispatcher) DispatchCompleted(_ context.Context, d *models.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, d.OrderID)
	return r.err
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type testEnv struct {
	store      *database.DB
	dispatcher *recordingDispatcher
	ingestor   *Ingestor
	push       *signature.PushVerifier
	redirect   *signature.RedirectVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newTestStore(t)
	replay, err := dedupe.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = replay.Close() })

	env := &testEnv{
		store:      store,
		dispatcher: &recordingDispatcher{},
		push:       signature.NewPushVerifier(testPushSecret),
		redirect:   signature.NewRedirectVerifier(testMerchantKey),
	}
	env.ingestor = NewIngestor(store, NewLedger(), env.dispatcher, IngestorOptions{
		PushVerifier:     env.push,
		RedirectVerifier: env.redirect,
		Replay:           replay,
		ReplayTTL:        time.Hour,
	})
	return env
}

func pushBody(eventID, eventType, orderID string, amountMinor int64) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": %q,
  "created": 1767268800,
  "data": {"object": {
    "id": "pi_%s",
    "object": "payment_intent",
    "amount": %d,
    "amount_received": %d,
    "currency": "inr",
    "status": "succeeded",
    "latest_charge": "ch_%s",
    "payment_method_types": ["card"],
    "metadata": {"order_id": %q}
  }}
}`, eventID, eventType, orderID, amountMinor, amountMinor, orderID, orderID))
}

func (e *testEnv) signPush(body []byte) string {
	return e.push.Sign(body, time.Now())
}

func (e *testEnv) redirectParams(t *testing.T, orderID, status, amount string) map[string]string {
	t.Helper()
	params := map[string]string{
		"MID":         "KINDRED01",
		"ORDERID":     orderID,
		"TXNID":       "T" + orderID,
		"TXNAMOUNT":   amount,
		"CURRENCY":    "INR",
		"STATUS":      status,
		"RESPCODE":    "01",
		"RESPMSG":     "Txn Success",
		"PAYMENTMODE": "UPI",
		"TXNDATE":     "2026-01-01 17:30:00.0",
	}
	checksum, err := e.redirect.Sign(params)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	params[models.RedirectParamChecksum] = checksum
	return params
}

// fakeGateway is a scripted PaymentGateway.
type fakeGateway struct {
	name       models.Gateway
	handleErr  error
	status     *models.Settlement
	statusErr  error
	block      bool
	creates    atomic.Int32
	statusHits atomic.Int32
}

func (f *fakeGateway) Gateway() models.Gateway { return f.name }

func (f *fakeGateway) CreatePaymentHandle(_ context.Context, req gateway.PaymentRequest) (*gateway.PaymentHandle, error) {
	f.creates.Add(1)
	if f.handleErr != nil {
		return nil, f.handleErr
	}
	return &gateway.PaymentHandle{
		Gateway:      f.name,
		Reference:    "ref_" + req.OrderID,
		ClientSecret: "secret_" + req.OrderID,
	}, nil
}

func (f *fakeGateway) FetchStatus(ctx context.Context, q gateway.StatusQuery) (*models.Settlement, error) {
	f.statusHits.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	s := *f.status
	s.OrderID = q.OrderID
	return &s, nil
}

func nowForTest() time.Time { return time.Now() }
