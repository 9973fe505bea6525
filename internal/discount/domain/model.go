package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/money"
	"gorm.io/datatypes"
)

type AppliesTo string

const (
	AppliesToAll          AppliesTo = "ALL"
	AppliesToProduct      AppliesTo = "PRODUCT"
	AppliesToSubscription AppliesTo = "SUBSCRIPTION"
)

func (a AppliesTo) Valid() bool {
	return a == AppliesToAll || a == AppliesToProduct || a == AppliesToSubscription
}

// Discount is a redeemable price reduction. Code is stored upper-cased and unique per organization.
// UsedCount only grows and never exceeds LimitUsage when a limit is set.
type Discount struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;uniqueIndex:ux_discounts_org_code,priority:1"`

	Name         string          `gorm:"type:text;not null"`
	Code         *string         `gorm:"type:varchar(64);uniqueIndex:ux_discounts_org_code,priority:2"`
	DiscountType money.RateType  `gorm:"column:discount_type;type:varchar(16);not null"`
	Value        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	MinimumPurchase decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	MinimumQuantity int64           `gorm:"not null;default:0"`
	StartDate       *time.Time
	EndDate         *time.Time
	LimitUsage      *int64
	UsedCount       int64 `gorm:"not null;default:0"`

	AppliesTo      AppliesTo     `gorm:"type:varchar(16);not null;default:'ALL'"`
	ProductID      *snowflake.ID `gorm:"column:product_id"`
	SubscriptionID *snowflake.ID `gorm:"column:subscription_id"`

	IsActive  bool              `gorm:"column:is_active;not null;default:true"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt time.Time         `gorm:"not null"`
	UpdatedAt time.Time         `gorm:"not null"`
}

func (Discount) TableName() string { return "discounts" }

// Scope describes the document a discount is being redeemed on.
type Scope struct {
	ProductIDs     []snowflake.ID
	SubscriptionID *snowflake.ID
}

// AppliedDiscount is the frozen result of a successful evaluation.
type AppliedDiscount struct {
	DiscountID snowflake.ID    `json:"discount_id"`
	Code       string          `json:"code,omitempty"`
	Name       string          `json:"name"`
	Type       money.RateType  `json:"type"`
	Value      decimal.Decimal `json:"value"`
	Amount     decimal.Decimal `json:"amount"`
}
