// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package models

import (
	"time"
)

// Redirect gateway parameter names and status codes.
const (
	RedirectParamChecksum = "CHECKSUMHASH"

	RedirectStatusSuccess = "TXN_SUCCESS"
	RedirectStatusFailure = "TXN_FAILURE"
	RedirectStatusPending = "PENDING"
)

// redirectTxnDateLayout is the gateway's timestamp format, in India Standard Time.
const redirectTxnDateLayout = "2006-01-02 15:04:05.0"

var istZone = time.FixedZone("IST", 5*60*60+30*60)

// RedirectCallback is the form-encoded parameter set the redirect-model
// gateway posts through the payer's browser.
type RedirectCallback struct {
	MerchantID  string
	OrderID     string
	TxnID       string
	TxnAmount   string
	Currency    string
	Status      string
	RespCode    string
	RespMsg     string
	PaymentMode string
	GatewayName string
	BankTxnID   string
	BankName    string
	TxnDate     string
}

// RedirectCallbackFromParams maps raw callback parameters to a RedirectCallback.
func RedirectCallbackFromParams(params map[string]string) RedirectCallback {
	return RedirectCallback{
		MerchantID:  params["MID"],
		OrderID:     params["ORDERID"],
		TxnID:       params["TXNID"],
		TxnAmount:   params["TXNAMOUNT"],
		Currency:    params["CURRENCY"],
		Status:      params["STATUS"],
		RespCode:    params["RESPCODE"],
		RespMsg:     params["RESPMSG"],
		PaymentMode: params["PAYMENTMODE"],
		GatewayName: params["GATEWAYNAME"],
		BankTxnID:   params["BANKTXNID"],
		BankName:    params["BANKNAME"],
		TxnDate:     params["TXNDATE"],
	}
}

// ParseRedirectTxnDate parses the gateway's TXNDATE. ok is false for an
// empty or unparseable value.
func ParseRedirectTxnDate(s string) (t time.Time, ok bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{redirectTxnDateLayout, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, istZone); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
