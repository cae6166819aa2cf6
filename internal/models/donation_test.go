// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDonationStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   DonationStatus
		terminal bool
		valid    bool
	}{
		{StatusPending, false, true},
		{StatusCompleted, true, true},
		{StatusFailed, true, true},
		{DonationStatus("REFUNDED"), false, false},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
		if got := tt.status.Valid(); got != tt.valid {
			t.Errorf("%s.Valid() = %v, want %v", tt.status, got, tt.valid)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount string
		minor  int64
	}{
		{"1500", 150000},
		{"1500.00", 150000},
		{"0.01", 1},
		{"99.99", 9999},
		{"100.5", 10050},
	}
	for _, tt := range tests {
		d := decimal.RequireFromString(tt.amount)
		if got := ToMinor(d); got != tt.minor {
			t.Errorf("ToMinor(%s) = %d, want %d", tt.amount, got, tt.minor)
		}
		if back := FromMinor(tt.minor); !back.Equal(d) {
			t.Errorf("FromMinor(%d) = %s, want %s", tt.minor, back, d)
		}
	}

	if !HasSubMinorPrecision(decimal.RequireFromString("1.001")) {
		t.Error("1.001 has sub-minor precision")
	}
	if HasSubMinorPrecision(decimal.RequireFromString("1.10")) {
		t.Error("1.10 has no sub-minor precision")
	}
}

func TestNewOrderID(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 30, 15, 0, time.UTC)
	pattern := regexp.MustCompile(`^DON20260314093015[A-Z0-9]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := NewOrderID(now)
		if err != nil {
			t.Fatal(err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("order id %q does not match pattern", id)
		}
		seen[id] = true
	}
	if len(seen) < 45 {
		t.Errorf("expected mostly unique suffixes, got %d distinct of 50", len(seen))
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	d := &Donation{DonorName: "Asha Rao"}
	if d.DisplayName() != "Asha Rao" {
		t.Errorf("DisplayName = %q", d.DisplayName())
	}
	d.Anonymous = true
	if d.DisplayName() != AnonymousDonor {
		t.Errorf("anonymous DisplayName = %q", d.DisplayName())
	}
	if (&Donation{}).DisplayName() != AnonymousDonor {
		t.Error("nameless donation should print as anonymous")
	}
}

func TestCampaignEnded(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if (&Campaign{}).Ended(now) {
		t.Error("campaign without end date never ends")
	}
	if !(&Campaign{EndDate: &past}).Ended(now) {
		t.Error("campaign with past end date has ended")
	}
	if (&Campaign{EndDate: &future}).Ended(now) {
		t.Error("campaign with future end date is open")
	}
}

func TestPaymentIntentAccessors(t *testing.T) {
	t.Parallel()

	pi := PaymentIntent{ID: "pi_1", Metadata: map[string]string{"order_id": "DON1"}}
	if pi.OrderID() != "DON1" {
		t.Errorf("OrderID = %q", pi.OrderID())
	}
	if pi.TransactionID() != "pi_1" {
		t.Errorf("TransactionID fallback = %q", pi.TransactionID())
	}
	pi.LatestCharge = "ch_9"
	if pi.TransactionID() != "ch_9" {
		t.Errorf("TransactionID = %q", pi.TransactionID())
	}
	if pi.PaymentMethod() != "" {
		t.Errorf("PaymentMethod = %q", pi.PaymentMethod())
	}
	pi.PaymentMethodTypes = []string{"card", "upi"}
	if pi.PaymentMethod() != "card" {
		t.Errorf("PaymentMethod = %q", pi.PaymentMethod())
	}
	pi.CancellationReason = "abandoned"
	if pi.FailureMessage() != "abandoned" {
		t.Errorf("FailureMessage = %q", pi.FailureMessage())
	}
	pi.LastPaymentError = &PaymentError{Message: "card declined"}
	if pi.FailureMessage() != "card declined" {
		t.Errorf("FailureMessage = %q", pi.FailureMessage())
	}
}

func TestParseRedirectTxnDate(t *testing.T) {
	t.Parallel()

	got, ok := ParseRedirectTxnDate("2026-03-14 15:00:00.0")
	if !ok {
		t.Fatal("expected parse")
	}
	want := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, ok := ParseRedirectTxnDate(""); ok {
		t.Error("empty date should not parse")
	}
	if _, ok := ParseRedirectTxnDate("yesterday"); ok {
		t.Error("garbage should not parse")
	}
}

func TestRedirectCallbackFromParams(t *testing.T) {
	t.Parallel()

	cb := RedirectCallbackFromParams(map[string]string{
		"ORDERID": "DON1", "TXNID": "T1", "STATUS": RedirectStatusSuccess,
		"PAYMENTMODE": "UPI", "BANKTXNID": "B1", "RESPMSG": "ok",
	})
	if cb.OrderID != "DON1" || cb.TxnID != "T1" || cb.Status != RedirectStatusSuccess ||
		cb.PaymentMode != "UPI" || cb.BankTxnID != "B1" || cb.RespMsg != "ok" {
		t.Errorf("unexpected callback: %+v", cb)
	}
}
