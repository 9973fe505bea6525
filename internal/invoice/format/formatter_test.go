package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"0", "usd", "USD 0.00"},
		{"110", "USD", "USD 110.00"},
		{"1234.5", "EUR", "EUR 1,234.50"},
		{"1234567.891", "", "1,234,567.89"},
		{"-20", "USD", "USD -20.00"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, Money(decimal.RequireFromString(tc.amount), tc.currency))
		})
	}
}

func TestDate(t *testing.T) {
	assert.Equal(t, "31 Mar 2026", Date(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.Empty(t, Date(time.Time{}))
	assert.Empty(t, DatePtr(nil))
}
