// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package receipt

import (
	"strings"

	"github.com/shopspring/decimal"
)

var ones = [...]string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tens = [...]string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

// currencyUnits names the major and minor unit for amount-in-words.
type currencyUnits struct {
	major, majorOne string
	minor, minorOne string
}

var knownUnits = map[string]currencyUnits{
	"INR": {"Rupees", "Rupee", "Paise", "Paisa"},
	"USD": {"Dollars", "Dollar", "Cents", "Cent"},
	"EUR": {"Euros", "Euro", "Cents", "Cent"},
	"GBP": {"Pounds", "Pound", "Pence", "Penny"},
}

// AmountInWords spells an INR amount using the Indian numbering system.
//
//	1500    -> "One Thousand Five Hundred Rupees Only"
//	1500.50 -> "One Thousand Five Hundred Rupees and Fifty Paise Only"
func AmountInWords(amount decimal.Decimal) string {
	return AmountInWordsFor(amount, "INR")
}

// AmountInWordsFor spells amount in the named currency. Unknown currencies
// use the ISO code as the major unit.
func AmountInWordsFor(amount decimal.Decimal, currency string) string {
	units, ok := knownUnits[strings.ToUpper(currency)]
	if !ok {
		code := strings.ToUpper(currency)
		units = currencyUnits{code, code, "Cents", "Cent"}
	}

	amount = amount.Abs().Round(2)
	major := amount.Truncate(0).IntPart()
	minor := amount.Sub(amount.Truncate(0)).Shift(2).IntPart()

	var b strings.Builder
	switch {
	case major > 0:
		b.WriteString(spellIndian(major))
		b.WriteByte(' ')
		b.WriteString(plural(major, units.major, units.majorOne))
	case minor == 0:
		b.WriteString("Zero ")
		b.WriteString(units.major)
	}
	if minor > 0 {
		if major > 0 {
			b.WriteString(" and ")
		}
		b.WriteString(spellIndian(minor))
		b.WriteByte(' ')
		b.WriteString(plural(minor, units.minor, units.minorOne))
	}
	b.WriteString(" Only")
	return b.String()
}

func plural(n int64, many, one string) string {
	if n == 1 {
		return one
	}
	return many
}

// spellIndian spells n > 0 in the Indian system: Crore, Lakh, Thousand, Hundred.
func spellIndian(n int64) string {
	var parts []string

	if crore := n / 10_000_000; crore > 0 {
		parts = append(parts, spellIndian(crore), "Crore")
		n %= 10_000_000
	}
	if lakh := n / 100_000; lakh > 0 {
		parts = append(parts, spellBelowHundred(lakh), "Lakh")
		n %= 100_000
	}
	if thousand := n / 1000; thousand > 0 {
		parts = append(parts, spellBelowHundred(thousand), "Thousand")
		n %= 1000
	}
	if hundred := n / 100; hundred > 0 {
		parts = append(parts, ones[hundred], "Hundred")
		n %= 100
	}
	if n > 0 {
		parts = append(parts, spellBelowHundred(n))
	}
	return strings.Join(parts, " ")
}

func spellBelowHundred(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + " " + ones[n%10]
}
