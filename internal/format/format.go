// Package format renders pipeline figures as display text.
package format

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	crore = decimal.NewFromInt(10000000)
	lakh  = decimal.NewFromInt(100000)
)

// Currency renders a rupee amount: crore and lakh amounts with one decimal
// place (₹4.5Cr, ₹12.5L), smaller amounts as a grouped integer (₹85,000).
func Currency(v decimal.Decimal) string {
	return currency(v, 1)
}

// CurrencyDetail is Currency with two decimal places, for pricing views
// where ₹95.1L would hide a line-item difference.
func CurrencyDetail(v decimal.Decimal) string {
	return currency(v, 2)
}

func currency(v decimal.Decimal, places int32) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}
	switch {
	case v.GreaterThanOrEqual(crore):
		return sign + "₹" + v.Div(crore).StringFixed(places) + "Cr"
	case v.GreaterThanOrEqual(lakh):
		return sign + "₹" + v.Div(lakh).StringFixed(places) + "L"
	}
	return sign + "₹" + humanize.Comma(v.Round(0).IntPart())
}

// Relative renders t relative to now, e.g. "3 days ago" or "5 days from now".
func Relative(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// Date renders a calendar date as 02 Jan 2006.
func Date(t time.Time) string {
	return t.Format("02 Jan 2006")
}

// Percent renders a percentage with at most one decimal place.
func Percent(v float64) string {
	return humanize.FtoaWithDigits(v, 1) + "%"
}
