package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BillingPeriod string

const (
	BillingPeriodDaily     BillingPeriod = "daily"
	BillingPeriodWeekly    BillingPeriod = "weekly"
	BillingPeriodMonthly   BillingPeriod = "monthly"
	BillingPeriodQuarterly BillingPeriod = "quarterly"
	BillingPeriodYearly    BillingPeriod = "yearly"
)

func (p BillingPeriod) Valid() bool {
	switch p {
	case BillingPeriodDaily, BillingPeriodWeekly, BillingPeriodMonthly, BillingPeriodQuarterly, BillingPeriodYearly:
		return true
	default:
		return false
	}
}

// Next returns the start of the period following from.
func (p BillingPeriod) Next(from time.Time) time.Time {
	switch p {
	case BillingPeriodDaily:
		return from.AddDate(0, 0, 1)
	case BillingPeriodWeekly:
		return from.AddDate(0, 0, 7)
	case BillingPeriodQuarterly:
		return from.AddDate(0, 3, 0)
	case BillingPeriodYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

type Product struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	OrgID       snowflake.ID      `gorm:"column:org_id;not null;index"`
	Name        string            `gorm:"type:text;not null"`
	ProductType string            `gorm:"type:text"`
	Description *string           `gorm:"type:text"`
	SalesPrice  decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	CostPrice   decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	Active      bool              `gorm:"not null;default:true"`
	Metadata    datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt   time.Time         `gorm:"not null"`
	UpdatedAt   time.Time         `gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// Variant is a priced option of a product, e.g. Size=XL. ExtraPrice is added to the product's sales price.
type Variant struct {
	ID         snowflake.ID    `gorm:"primaryKey"`
	OrgID      snowflake.ID    `gorm:"column:org_id;not null;index"`
	ProductID  snowflake.ID    `gorm:"column:product_id;not null;index"`
	Attribute  string          `gorm:"type:text;not null"`
	Value      string          `gorm:"type:text;not null"`
	ExtraPrice decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

func (Variant) TableName() string { return "product_variants" }

type Plan struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	OrgID         snowflake.ID    `gorm:"column:org_id;not null;index"`
	Name          string          `gorm:"type:text;not null"`
	Price         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BillingPeriod BillingPeriod   `gorm:"type:varchar(16);not null"`
	Active        bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

func (Plan) TableName() string { return "recurring_plans" }
