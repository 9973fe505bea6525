package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestLineAmount(t *testing.T) {
	assert.True(t, d("100").Equal(LineAmount(2, d("50"))))
	assert.True(t, d("0").Equal(LineAmount(3, d("0"))))
	assert.True(t, d("1.0005").Equal(LineAmount(3, d("0.3335"))))
}

func TestLineTax(t *testing.T) {
	rules := []TaxRule{
		{ID: 1, Name: "VAT", Type: Percentage, Rate: d("10"), Active: true},
		{ID: 2, Name: "Eco fee", Type: Fixed, Rate: d("2.5"), Active: true},
		{ID: 3, Name: "Retired", Type: Percentage, Rate: d("50"), Active: false},
	}

	t.Run("percentage and fixed rules are summed", func(t *testing.T) {
		tax := LineTax(d("200"), rules)
		assert.True(t, d("22.5").Equal(tax), tax.String())
	})

	t.Run("fixed rule is not scaled by quantity", func(t *testing.T) {
		line := PriceLine(4, d("25"), rules[1:2])
		assert.True(t, d("2.5").Equal(line.Tax))
	})

	t.Run("untaxed line contributes zero", func(t *testing.T) {
		assert.True(t, LineTax(d("99"), nil).IsZero())
	})
}

func TestPriceLineRoundsOnce(t *testing.T) {
	rules := []TaxRule{
		{Type: Percentage, Rate: d("7.5"), Active: true},
		{Type: Percentage, Rate: d("7.5"), Active: true},
	}
	// 3 x 3.335 = 10.005; each rule yields 0.750375, summed 1.50075 before rounding.
	line := PriceLine(3, d("3.335"), rules)

	assert.Equal(t, "10.01", line.Amount.StringFixed(2))
	assert.Equal(t, "1.50", line.Tax.StringFixed(2))
	assert.Len(t, line.Taxes, 2)
}

func TestDiscountAmount(t *testing.T) {
	assert.Equal(t, "13.00", DiscountAmount(Percentage, d("10"), d("130")).StringFixed(2))
	assert.Equal(t, "20.00", DiscountAmount(Fixed, d("20"), d("130")).StringFixed(2))
	assert.Equal(t, "130.00", DiscountAmount(Fixed, d("500"), d("130")).StringFixed(2))
	assert.Equal(t, "130.00", DiscountAmount(Percentage, d("150"), d("130")).StringFixed(2))
	assert.True(t, DiscountAmount(Fixed, d("-5"), d("130")).IsZero())
}

func TestComputeTotals(t *testing.T) {
	lines := []Line{
		PriceLine(2, d("50"), nil),
		PriceLine(1, d("30"), nil),
	}

	t.Run("no discount", func(t *testing.T) {
		totals := ComputeTotals(lines, decimal.Zero)
		assert.Equal(t, "130.00", totals.Subtotal.StringFixed(2))
		assert.True(t, totals.Tax.IsZero())
		assert.Equal(t, "130.00", totals.Total.StringFixed(2))
	})

	t.Run("fixed discount", func(t *testing.T) {
		totals := ComputeTotals(lines, d("20"))
		assert.Equal(t, "110.00", totals.Total.StringFixed(2))
	})

	t.Run("discount larger than subtotal is clamped", func(t *testing.T) {
		taxed := []Line{PriceLine(1, d("40"), []TaxRule{{Type: Fixed, Rate: d("5"), Active: true}})}
		totals := ComputeTotals(taxed, d("100"))
		assert.Equal(t, "40.00", totals.DiscountAmount.StringFixed(2))
		assert.Equal(t, "5.00", totals.Total.StringFixed(2))
	})

	t.Run("identity holds and is idempotent", func(t *testing.T) {
		rules := []TaxRule{{Type: Percentage, Rate: d("11"), Active: true}}
		priced := []Line{
			PriceLine(7, d("13.37"), rules),
			PriceLine(3, d("0.99"), rules),
			PriceLine(1, d("1000"), nil),
		}
		first := ComputeTotals(priced, d("12.34"))
		second := ComputeTotals(priced, d("12.34"))

		assert.Equal(t, first, second)
		sum := decimal.Zero
		tax := decimal.Zero
		for _, line := range priced {
			sum = sum.Add(line.Amount)
			tax = tax.Add(line.Tax)
		}
		assert.True(t, sum.Equal(first.Subtotal))
		assert.True(t, tax.Equal(first.Tax))
		assert.True(t, first.Total.Equal(first.Subtotal.Sub(first.DiscountAmount).Add(first.Tax)))
	})
}

func TestValidateRate(t *testing.T) {
	assert.True(t, ValidateRate(Percentage, d("0")))
	assert.True(t, ValidateRate(Percentage, d("100")))
	assert.False(t, ValidateRate(Percentage, d("100.01")))
	assert.False(t, ValidateRate(Percentage, d("-1")))
	assert.True(t, ValidateRate(Fixed, d("250")))
	assert.False(t, ValidateRate(Fixed, d("-0.01")))
	assert.False(t, ValidateRate(RateType("FLAT"), d("1")))
}

func TestRepresentable(t *testing.T) {
	assert.True(t, Representable(d("0.33")))
	assert.True(t, Representable(d("1.500")))
	assert.True(t, Representable(d("12")))
	assert.False(t, Representable(d("0.333")))
	assert.False(t, Representable(d("0.001")))
}
