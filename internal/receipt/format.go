// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package receipt

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLocale groups digits the Indian way (1,50,000).
var DefaultLocale = language.MustParse("en-IN")

// FormatAmount formats amount with locale grouping in DefaultLocale.
// Two decimals are shown only when the amount has a fractional part.
//
//	1500    -> "1,500"
//	1500.5  -> "1,500.50"
func FormatAmount(amount decimal.Decimal) string {
	return FormatAmountIn(DefaultLocale, amount)
}

// FormatAmountIn formats amount for tag.
func FormatAmountIn(tag language.Tag, amount decimal.Decimal) string {
	p := message.NewPrinter(tag)

	amount = amount.Round(2)
	neg := amount.IsNegative()
	amount = amount.Abs()
	whole := amount.Truncate(0)
	frac := amount.Sub(whole).Shift(2).IntPart()

	s := p.Sprintf("%d", whole.IntPart())
	if frac > 0 {
		s += fmt.Sprintf(".%02d", frac)
	}
	if neg {
		s = "-" + s
	}
	return s
}
