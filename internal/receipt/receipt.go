// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package receipt renders donation receipts as single-page PDFs.
//
// Rendering is deterministic: the document dates come from the settlement
// time, catalog entries are sorted and content streams are left
// uncompressed, so the same donation always yields the same bytes. A
// receipt can therefore be regenerated on demand instead of stored.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/metrics"
	"github.com/tomtom215/kindred/internal/models"
)

// ErrMissingSettlementTime is returned for a donation that has not settled.
var ErrMissingSettlementTime = errors.New("receipt: settlement time is required")

// OrgInfo is printed in the receipt header and footer.
type OrgInfo struct {
	Name           string
	Address        string
	RegistrationNo string
	Disclaimer     string
}

// Input is everything a receipt shows.
type Input struct {
	OrderID       string
	TransactionID string
	DonorName     string
	DonorEmail    string
	DonorPhone    string
	Anonymous     bool
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	SettledAt     time.Time
	CampaignTitle string
	Message       string
}

// FromDonation builds receipt input from a settled donation.
func FromDonation(d *models.Donation, campaignTitle string) Input {
	in := Input{
		OrderID:       d.OrderID,
		TransactionID: d.TransactionID,
		DonorName:     d.DisplayName(),
		DonorEmail:    d.DonorEmail,
		DonorPhone:    d.DonorPhone,
		Anonymous:     d.Anonymous,
		Amount:        d.Amount,
		Currency:      d.Currency,
		PaymentMethod: d.PaymentMethod,
		CampaignTitle: campaignTitle,
		Message:       d.Message,
	}
	if d.SettledAt != nil {
		in.SettledAt = *d.SettledAt
	}
	return in
}

// Filename returns the attachment name for an order's receipt.
func Filename(orderID string) string {
	return "Receipt_" + orderID + ".pdf"
}

// Generator renders receipts for one organisation.
type Generator struct {
	Org      OrgInfo
	Locale   language.Tag
	Location *time.Location
}

// NewGenerator builds a Generator from configuration.
func NewGenerator(cfg *config.ReceiptConfig) (*Generator, error) {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("parse receipt locale %q: %w", cfg.Locale, err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load receipt timezone %q: %w", cfg.Timezone, err)
	}
	return &Generator{
		Org: OrgInfo{
			Name:           cfg.OrgName,
			Address:        cfg.OrgAddress,
			RegistrationNo: cfg.RegistrationNo,
			Disclaimer:     cfg.Disclaimer,
		},
		Locale:   tag,
		Location: loc,
	}, nil
}

const (
	pageMargin = 20.0
	labelWidth = 50.0
	lineHeight = 8.0
)

// Render produces the receipt PDF.
func (g *Generator) Render(in Input) ([]byte, error) {
	if in.SettledAt.IsZero() {
		return nil, ErrMissingSettlementTime
	}
	start := time.Now()
	defer func() { metrics.ReceiptRenderDuration.Observe(time.Since(start).Seconds()) }()

	loc := g.Location
	if loc == nil {
		loc = time.UTC
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(in.SettledAt.UTC())
	pdf.SetModificationDate(in.SettledAt.UTC())
	pdf.SetCatalogSort(true)
	pdf.SetCompression(false)
	pdf.SetTitle("Donation Receipt "+in.OrderID, true)
	pdf.SetAuthor(g.Org.Name, true)
	pdf.SetCreator("Kindred", true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pageMargin

	// Header
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(contentWidth, 10, tr(g.Org.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if g.Org.Address != "" {
		pdf.MultiCell(contentWidth, 5, tr(g.Org.Address), "", "C", false)
	}
	if g.Org.RegistrationNo != "" {
		pdf.CellFormat(contentWidth, 5, tr("Registration No: "+g.Org.RegistrationNo), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)
	y := pdf.GetY()
	pdf.Line(pageMargin, y, pageWidth-pageMargin, y)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentWidth, 10, "DONATION RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	row := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(labelWidth, lineHeight, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(contentWidth-labelWidth, lineHeight, tr(value), "", "L", false)
	}

	currency := strings.ToUpper(in.Currency)
	row("Receipt No:", in.OrderID)
	row("Transaction ID:", in.TransactionID)
	row("Date:", in.SettledAt.In(loc).Format("02 Jan 2006, 03:04 PM MST"))
	if in.Anonymous {
		row("Received From:", models.AnonymousDonor)
	} else {
		name := in.DonorName
		if name == "" {
			name = models.AnonymousDonor
		}
		row("Received From:", name)
		row("Email:", in.DonorEmail)
		row("Phone:", in.DonorPhone)
	}
	row("Amount:", currency+" "+FormatAmountIn(g.Locale, in.Amount))
	row("Amount in Words:", AmountInWordsFor(in.Amount, currency))
	row("Payment Mode:", in.PaymentMethod)
	row("Campaign:", in.CampaignTitle)
	row("Dedication:", in.Message)

	pdf.Ln(8)
	y = pdf.GetY()
	pdf.Line(pageMargin, y, pageWidth-pageMargin, y)
	pdf.Ln(4)

	if g.Org.Disclaimer != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(contentWidth, 5, tr(g.Org.Disclaimer), "", "L", false)
		pdf.Ln(2)
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(contentWidth, 5,
		"This is a computer-generated receipt and does not require a signature.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", in.OrderID, err)
	}
	return buf.Bytes(), nil
}
