package document

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	discountdomain "github.com/smallbiznis/billingcore/internal/discount/domain"
	"gorm.io/gorm"
)

// DiscountSnapshot is the discount frozen onto a document when it was redeemed.
type DiscountSnapshot struct {
	DiscountID   *snowflake.ID `gorm:"column:discount_id" json:"discount_id,omitempty"`
	DiscountCode *string       `gorm:"column:discount_code;type:varchar(64)" json:"discount_code,omitempty"`
}

// Redeem validates code against the priced lines and consumes one use inside tx.
// An empty code returns a zero snapshot and no discount.
func Redeem(ctx context.Context, tx *gorm.DB, evaluator discountdomain.Evaluator, orgID snowflake.ID, code string, lines []LineItem, subscriptionID *snowflake.ID, asOf time.Time) (DiscountSnapshot, decimal.Decimal, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return DiscountSnapshot{}, decimal.Zero, nil
	}

	amounts := ComputeAmounts(lines, decimal.Zero)
	applied, err := evaluator.ValidateTx(ctx, tx, orgID, discountdomain.ValidateRequest{
		Code:     code,
		Subtotal: amounts.Subtotal,
		Quantity: TotalQuantity(lines),
		AsOf:     &asOf,
		Scope: discountdomain.Scope{
			ProductIDs:     ProductIDs(lines),
			SubscriptionID: subscriptionID,
		},
	})
	if err != nil {
		return DiscountSnapshot{}, decimal.Zero, err
	}

	if err := evaluator.ApplyTx(ctx, tx, orgID, applied.DiscountID); err != nil {
		return DiscountSnapshot{}, decimal.Zero, err
	}

	discountID := applied.DiscountID
	snapshot := DiscountSnapshot{DiscountID: &discountID}
	if applied.Code != "" {
		value := applied.Code
		snapshot.DiscountCode = &value
	} else {
		value := applied.Name
		snapshot.DiscountCode = &value
	}
	return snapshot, applied.Amount, nil
}
