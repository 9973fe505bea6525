package document

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/smallbiznis/billingcore/internal/money"
)

// ItemInput is one requested line. UnitPrice defaults to the product's sales price plus the
// variant's extra price; Description defaults to the product name.
type ItemInput struct {
	ProductID   string           `json:"product_id"`
	VariantID   string           `json:"variant_id"`
	Description string           `json:"description"`
	Quantity    int64            `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

// LineItem is the persisted shape shared by quotation, subscription and invoice items.
// Amount and Tax are the rounded values document totals are summed from.
type LineItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID    `gorm:"column:org_id;not null" json:"-"`
	DocumentID  snowflake.ID    `gorm:"column:document_id;not null;index" json:"document_id"`
	Position    int             `gorm:"not null" json:"position"`
	ProductID   *snowflake.ID   `gorm:"column:product_id" json:"product_id,omitempty"`
	VariantID   *snowflake.ID   `gorm:"column:variant_id" json:"variant_id,omitempty"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Tax         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`

	Taxes []money.AppliedTax `gorm:"-" json:"-"`
}

// Amounts are the derived money columns of a document header.
// Total always equals Subtotal - DiscountAmount + Tax.
type Amounts struct {
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount_amount"`
	Tax            decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax"`
	Total          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total"`
}

var (
	ErrInvalidQuantity    = apperr.Validation("invalid_quantity")
	ErrInvalidUnitPrice   = apperr.Validation("invalid_unit_price")
	ErrInvalidDescription = apperr.Validation("invalid_description")
	ErrInvalidItemID      = apperr.Validation("invalid_item_reference")
	ErrProductNotFound    = apperr.NotFound("product_not_found")
	ErrVariantNotFound    = apperr.NotFound("variant_not_found")
	ErrVariantMismatch    = apperr.Validation("variant_product_mismatch")
)

// ComputeAmounts derives header amounts from persisted lines and a frozen discount amount.
func ComputeAmounts(lines []LineItem, discountAmount decimal.Decimal) Amounts {
	totals := money.ComputeTotals(lo.Map(lines, func(line LineItem, _ int) money.Line {
		return money.Line{Amount: line.Amount, Tax: line.Tax}
	}), discountAmount)

	return Amounts{
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.DiscountAmount,
		Tax:            totals.Tax,
		Total:          totals.Total,
	}
}

// TotalQuantity sums line quantities for minimum-quantity discount checks.
func TotalQuantity(lines []LineItem) int64 {
	return lo.SumBy(lines, func(line LineItem) int64 { return line.Quantity })
}

// ProductIDs returns the distinct products referenced by lines.
func ProductIDs(lines []LineItem) []snowflake.ID {
	return lo.Uniq(lo.FilterMap(lines, func(line LineItem, _ int) (snowflake.ID, bool) {
		if line.ProductID == nil {
			return 0, false
		}
		return *line.ProductID, true
	}))
}
