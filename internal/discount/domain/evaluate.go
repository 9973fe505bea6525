package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/money"
)

// Evaluate checks a discount against a document and computes the amount it takes off subtotal.
// Checks run in a fixed order: active, window, usage limit, minimum purchase, minimum quantity, scope.
func Evaluate(d Discount, subtotal decimal.Decimal, quantity int64, asOf time.Time, scope Scope) (AppliedDiscount, error) {
	if !d.IsActive {
		return AppliedDiscount{}, ErrNotFound
	}
	if !d.InWindow(asOf) {
		return AppliedDiscount{}, ErrExpired
	}
	if d.Exhausted() {
		return AppliedDiscount{}, ErrUsageLimitReached
	}
	if subtotal.LessThan(d.MinimumPurchase) {
		return AppliedDiscount{}, ErrMinimumPurchaseNotMet
	}
	if quantity < d.MinimumQuantity {
		return AppliedDiscount{}, ErrMinimumQuantityNotMet
	}
	if !d.Covers(scope) {
		return AppliedDiscount{}, ErrNotApplicable
	}

	applied := AppliedDiscount{
		DiscountID: d.ID,
		Name:       d.Name,
		Type:       d.DiscountType,
		Value:      d.Value,
		Amount:     money.DiscountAmount(d.DiscountType, d.Value, subtotal),
	}
	if d.Code != nil {
		applied.Code = *d.Code
	}
	return applied, nil
}

// InWindow reports whether asOf falls on or between the start and end dates. Unset bounds are open.
func (d Discount) InWindow(asOf time.Time) bool {
	day := dateOf(asOf)
	if d.StartDate != nil && day.Before(dateOf(*d.StartDate)) {
		return false
	}
	if d.EndDate != nil && day.After(dateOf(*d.EndDate)) {
		return false
	}
	return true
}

func (d Discount) Exhausted() bool {
	return d.LimitUsage != nil && d.UsedCount >= *d.LimitUsage
}

// Covers reports whether the discount may be used on a document with the given scope.
func (d Discount) Covers(scope Scope) bool {
	switch d.AppliesTo {
	case AppliesToProduct:
		if d.ProductID == nil {
			return len(scope.ProductIDs) > 0
		}
		for _, id := range scope.ProductIDs {
			if id == *d.ProductID {
				return true
			}
		}
		return false
	case AppliesToSubscription:
		if scope.SubscriptionID == nil {
			return false
		}
		return d.SubscriptionID == nil || *d.SubscriptionID == *scope.SubscriptionID
	default:
		return true
	}
}

func dateOf(t time.Time) time.Time {
	y, m, day := t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
