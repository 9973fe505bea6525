// Package format renders invoice values for documents meant for people.
package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "02 Jan 2006"

// Money formats amount with thousands separators and two decimals, prefixed by the currency code.
func Money(amount decimal.Decimal, currency string) string {
	fixed := amount.Abs().StringFixed(2)
	whole, fraction, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	out := grouped.String() + "." + fraction
	if amount.IsNegative() {
		out = "-" + out
	}
	if currency = strings.TrimSpace(currency); currency != "" {
		out = strings.ToUpper(currency) + " " + out
	}
	return out
}

func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func DatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return Date(*t)
}
