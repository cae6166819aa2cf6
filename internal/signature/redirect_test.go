// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package signature

import (
	"encoding/base64"
	"errors"
	"testing"
)

const testMerchantKey = "kbzk1DSbJiV_O3p5"

func callbackParams() map[string]string {
	return map[string]string{
		"MID":         "KINDRED00001",
		"ORDERID":     "DON20260314093015ABC123",
		"TXNID":       "20260314111212800110168",
		"TXNAMOUNT":   "1500.00",
		"CURRENCY":    "INR",
		"STATUS":      "TXN_SUCCESS",
		"RESPCODE":    "01",
		"RESPMSG":     "Txn Success",
		"PAYMENTMODE": "UPI",
		"BANKTXNID":   "null",
		"TXNDATE":     "2026-03-14 15:00:00.0",
	}
}

func TestCanonicalParams(t *testing.T) {
	t.Parallel()

	got := CanonicalParams(map[string]string{
		"B":           "2",
		"A":           "1",
		"C":           "null",
		ChecksumParam: "ignored",
	})
	if got != "1|2|" {
		t.Errorf("CanonicalParams = %q, want %q", got, "1|2|")
	}
}

func TestRedirectVerifier_RoundTrip(t *testing.T) {
	t.Parallel()

	v := NewRedirectVerifier(testMerchantKey)
	params := callbackParams()
	checksum, err := v.Sign(params)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	params[ChecksumParam] = checksum

	ok, err := v.Verify(params)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v; want true, nil", ok, err)
	}

	// Different salt every time, both verify.
	again, _ := v.Sign(callbackParams())
	if again == checksum {
		t.Log("salt collision; checksums equal by chance")
	}
}

func TestRedirectVerifier_TamperedParams(t *testing.T) {
	t.Parallel()

	v := NewRedirectVerifier(testMerchantKey)
	params := callbackParams()
	checksum, _ := v.Sign(params)
	params[ChecksumParam] = checksum

	params["TXNAMOUNT"] = "15000.00"
	ok, err := v.Verify(params)
	if err != nil {
		t.Fatalf("a normal mismatch must not error, got %v", err)
	}
	if ok {
		t.Error("tampered amount must not verify")
	}

	params["TXNAMOUNT"] = "1500.00"
	params["STATUS"] = "TXN_FAILURE"
	if ok, _ := v.Verify(params); ok {
		t.Error("tampered status must not verify")
	}
}

func TestRedirectVerifier_ForeignOrAlteredChecksum(t *testing.T) {
	t.Parallel()

	v := NewRedirectVerifier(testMerchantKey)
	foreign, err := NewRedirectVerifier("ponmlkjihgfedcba").Sign(callbackParams())
	if err != nil {
		t.Fatal(err)
	}
	own, err := v.Sign(callbackParams())
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(own)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xff
	altered := base64.StdEncoding.EncodeToString(raw)

	for name, checksum := range map[string]string{"other key": foreign, "altered ciphertext": altered} {
		params := callbackParams()
		params[ChecksumParam] = checksum
		ok, err := v.Verify(params)
		if ok || err != nil {
			t.Errorf("%s: Verify = %v, %v; want false, nil", name, ok, err)
		}
	}
}

func TestRedirectVerifier_MalformedChecksum(t *testing.T) {
	t.Parallel()

	v := NewRedirectVerifier(testMerchantKey)
	tests := map[string]string{
		"absent":      "",
		"not base64":  "%%%not-base64%%%",
		"short block": "YWJj",
	}
	for name, checksum := range tests {
		params := callbackParams()
		if checksum != "" {
			params[ChecksumParam] = checksum
		}
		ok, err := v.Verify(params)
		if ok || !errors.Is(err, ErrMalformedChecksum) {
			t.Errorf("%s: Verify = %v, %v; want false, ErrMalformedChecksum", name, ok, err)
		}
	}
}

func TestRedirectVerifier_SignString(t *testing.T) {
	t.Parallel()

	v := NewRedirectVerifier(testMerchantKey)
	body := `{"mid":"KINDRED00001","orderId":"DON1"}`
	checksum, err := v.SignString(body)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := v.VerifyString(body, checksum); err != nil || !ok {
		t.Errorf("VerifyString = %v, %v", ok, err)
	}
	if ok, _ := v.VerifyString(body+" ", checksum); ok {
		t.Error("changed body must not verify")
	}
}

func TestPKCS7(t *testing.T) {
	t.Parallel()

	for n := 0; n < 40; n++ {
		in := make([]byte, n)
		padded := pkcs7Pad(append([]byte(nil), in...), 16)
		if len(padded)%16 != 0 {
			t.Fatalf("pad(%d) length %d", n, len(padded))
		}
		out, err := pkcs7Unpad(padded, 16)
		if err != nil || len(out) != n {
			t.Fatalf("unpad(%d) = %d bytes, %v", n, len(out), err)
		}
	}
	if _, err := pkcs7Unpad(make([]byte, 16), 16); err == nil {
		t.Error("zero padding byte must be rejected")
	}
}
