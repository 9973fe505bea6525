package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestEvaluate(t *testing.T) {
	limit := int64(5)
	productID := snowflake.ID(42)
	base := Discount{
		ID:              1,
		Name:            "Spring",
		DiscountType:    money.Percentage,
		Value:           decimal.NewFromInt(10),
		MinimumPurchase: decimal.NewFromInt(100),
		MinimumQuantity: 2,
		StartDate:       day("2026-03-01"),
		EndDate:         day("2026-03-31"),
		LimitUsage:      &limit,
		AppliesTo:       AppliesToAll,
		IsActive:        true,
	}
	asOf := time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC)
	subtotal := decimal.NewFromInt(130)

	t.Run("applies on the last day of the window", func(t *testing.T) {
		applied, err := Evaluate(base, subtotal, 3, asOf, Scope{})
		require.NoError(t, err)
		assert.Equal(t, "13.00", applied.Amount.StringFixed(2))
	})

	cases := []struct {
		name    string
		mutate  func(d *Discount)
		asOf    time.Time
		qty     int64
		want    error
		subtot  decimal.Decimal
		scoping Scope
	}{
		{name: "inactive", mutate: func(d *Discount) { d.IsActive = false }, want: ErrNotFound},
		{name: "before window", asOf: time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC), want: ErrExpired},
		{name: "after window", asOf: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), want: ErrExpired},
		{name: "limit reached", mutate: func(d *Discount) { d.UsedCount = 5 }, want: ErrUsageLimitReached},
		{name: "minimum purchase", subtot: decimal.NewFromInt(99), want: ErrMinimumPurchaseNotMet},
		{name: "minimum quantity", qty: 1, want: ErrMinimumQuantityNotMet},
		{name: "product scope", mutate: func(d *Discount) {
			d.AppliesTo = AppliesToProduct
			d.ProductID = &productID
		}, scoping: Scope{ProductIDs: []snowflake.ID{7}}, want: ErrNotApplicable},
		{name: "subscription scope without subscription", mutate: func(d *Discount) {
			d.AppliesTo = AppliesToSubscription
		}, want: ErrNotApplicable},
		{name: "expiry is reported before usage", mutate: func(d *Discount) { d.UsedCount = 5 },
			asOf: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), want: ErrExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := base
			if tc.mutate != nil {
				tc.mutate(&d)
			}
			at := asOf
			if !tc.asOf.IsZero() {
				at = tc.asOf
			}
			qty := int64(3)
			if tc.qty != 0 {
				qty = tc.qty
			}
			sub := subtotal
			if !tc.subtot.IsZero() {
				sub = tc.subtot
			}
			_, err := Evaluate(d, sub, qty, at, tc.scoping)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("product scope matches a line product", func(t *testing.T) {
		d := base
		d.AppliesTo = AppliesToProduct
		d.ProductID = &productID
		_, err := Evaluate(d, subtotal, 3, asOf, Scope{ProductIDs: []snowflake.ID{7, productID}})
		assert.NoError(t, err)
	})

	t.Run("fixed discount is clamped to subtotal", func(t *testing.T) {
		d := base
		d.DiscountType = money.Fixed
		d.Value = decimal.NewFromInt(500)
		d.MinimumPurchase = decimal.Zero
		applied, err := Evaluate(d, decimal.NewFromInt(40), 3, asOf, Scope{})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(40).Equal(applied.Amount))
	})
}

func TestUnboundedWindow(t *testing.T) {
	d := Discount{}
	assert.True(t, d.InWindow(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, d.Exhausted())
}
