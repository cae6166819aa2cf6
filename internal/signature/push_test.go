// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPushVerifier_Verify(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_760_000_000, 0)
	v := &PushVerifier{Secret: []byte("whsec_test"), Tolerance: 5 * time.Minute, Now: func() time.Time { return now }}
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	valid := v.Sign(payload, now)

	// Header computed independently of Sign.
	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write([]byte(fmt.Sprintf("%d.%s", now.Unix(), payload)))
	manual := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(mac.Sum(nil)))

	tests := []struct {
		name    string
		payload []byte
		header  string
		wantErr error
	}{
		{"valid", payload, valid, nil},
		{"valid manual", payload, manual, nil},
		{"second v1 matches", payload, fmt.Sprintf("t=%d,v1=%s,%s", now.Unix(), hex.EncodeToString([]byte("nope")), valid[len(fmt.Sprintf("t=%d,", now.Unix())):]), nil},
		{"tampered body", []byte(`{"id":"evt_1","type":"payment_intent.succeeded "}`), valid, ErrInvalidSignature},
		{"wrong secret", payload, (&PushVerifier{Secret: []byte("other")}).Sign(payload, now), ErrInvalidSignature},
		{"empty header", payload, "", ErrMissingSignature},
		{"no v1", payload, fmt.Sprintf("t=%d", now.Unix()), ErrMissingSignature},
		{"no timestamp", payload, "v1=abcd", ErrMalformedSignature},
		{"garbage", payload, "garbage", ErrMalformedSignature},
		{"bad timestamp", payload, "t=abc,v1=abcd", ErrMalformedSignature},
		{"too old", payload, v.Sign(payload, now.Add(-10*time.Minute)), ErrTimestampOutOfTolerance},
		{"too new", payload, v.Sign(payload, now.Add(10*time.Minute)), ErrTimestampOutOfTolerance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Verify(tt.payload, tt.header)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPushVerifier_ZeroToleranceSkipsTimestamp(t *testing.T) {
	t.Parallel()

	v := NewPushVerifier("s")
	v.Tolerance = 0
	payload := []byte("{}")
	header := v.Sign(payload, time.Unix(1, 0))
	if err := v.Verify(payload, header); err != nil {
		t.Errorf("expected success with tolerance disabled, got %v", err)
	}
}
