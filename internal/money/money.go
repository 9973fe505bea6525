// Package money computes line amounts, taxes, discounts and document totals.
// Every function is pure; rounding happens once, when a value is about to be persisted.
package money

import (
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places persisted for monetary values.
const Places = 2

type RateType string

const (
	Percentage RateType = "PERCENTAGE"
	Fixed      RateType = "FIXED"
)

var hundred = decimal.NewFromInt(100)

func (t RateType) Valid() bool {
	return t == Percentage || t == Fixed
}

// TaxRule is the part of a tax rule the engine needs.
type TaxRule struct {
	ID     int64
	Name   string
	Type   RateType
	Rate   decimal.Decimal
	Active bool
}

// AppliedTax is the contribution of one rule to a line.
type AppliedTax struct {
	Rule   TaxRule
	Amount decimal.Decimal
}

// Line holds the persisted values of one priced line item.
type Line struct {
	Amount decimal.Decimal
	Tax    decimal.Decimal
	Taxes  []AppliedTax
}

type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
}

// Round rounds half-up to Places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Representable reports whether d fits in Places decimal places without rounding.
func Representable(d decimal.Decimal) bool {
	return d.Equal(d.Round(Places))
}

// LineAmount returns quantity x unit price at full precision.
func LineAmount(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// LineTax sums every active rule applied to lineAmount at full precision.
// FIXED rules add their rate once per line regardless of quantity.
func LineTax(lineAmount decimal.Decimal, rules []TaxRule) decimal.Decimal {
	total := decimal.Zero
	for _, applied := range applyTaxes(lineAmount, rules) {
		total = total.Add(applied.Amount)
	}
	return total
}

func applyTaxes(lineAmount decimal.Decimal, rules []TaxRule) []AppliedTax {
	applied := make([]AppliedTax, 0, len(rules))
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		var amount decimal.Decimal
		switch rule.Type {
		case Percentage:
			amount = lineAmount.Mul(rule.Rate).Div(hundred)
		case Fixed:
			amount = rule.Rate
		default:
			continue
		}
		applied = append(applied, AppliedTax{Rule: rule, Amount: amount})
	}
	return applied
}

// PriceLine prices one line item and rounds the amount and tax for persistence.
// The per-rule breakdown is rounded individually and only serves as a record of what was applied.
func PriceLine(quantity int64, unitPrice decimal.Decimal, rules []TaxRule) Line {
	amount := LineAmount(quantity, unitPrice)
	applied := applyTaxes(amount, rules)

	tax := decimal.Zero
	for i := range applied {
		tax = tax.Add(applied[i].Amount)
		applied[i].Amount = Round(applied[i].Amount)
	}

	return Line{
		Amount: Round(amount),
		Tax:    Round(tax),
		Taxes:  applied,
	}
}

// DiscountAmount computes the discount for subtotal, clamped to [0, subtotal].
func DiscountAmount(kind RateType, value, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch kind {
	case Percentage:
		amount = subtotal.Mul(value).Div(hundred)
	case Fixed:
		amount = value
	default:
		return decimal.Zero
	}
	return Round(ClampDiscount(amount, subtotal))
}

// ClampDiscount bounds a discount so it can never exceed the subtotal or go negative.
func ClampDiscount(discount, subtotal decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		return decimal.Zero
	}
	if subtotal.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(discount, subtotal)
}

// ComputeTotals derives document totals from its priced lines.
// total = subtotal - discount + tax, with the discount clamped to the subtotal and the total floored at zero.
func ComputeTotals(lines []Line, discountAmount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Amount)
		tax = tax.Add(line.Tax)
	}

	discount := ClampDiscount(discountAmount, subtotal)
	total := subtotal.Sub(discount).Add(tax)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Tax:            tax,
		Total:          total,
	}
}

// ValidateRate reports whether rate is acceptable for kind: percentages in [0, 100], fixed amounts >= 0.
func ValidateRate(kind RateType, rate decimal.Decimal) bool {
	if !kind.Valid() || rate.IsNegative() {
		return false
	}
	if kind == Percentage && rate.GreaterThan(hundred) {
		return false
	}
	return true
}
