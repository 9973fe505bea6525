package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/money"
)

// TaxRule is an org-scoped tax applied to products through ProductTax.
// PERCENTAGE rates are percent values (10 means 10%); FIXED rates are a flat amount per line.
type TaxRule struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index"`

	Name        string          `gorm:"type:text;not null"`
	TaxType     money.RateType  `gorm:"column:tax_type;type:varchar(16);not null"`
	Rate        decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	Description *string         `gorm:"type:text"`

	IsActive bool `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (TaxRule) TableName() string { return "taxes" }

func (t *TaxRule) Validate() error {
	if !t.TaxType.Valid() {
		return ErrInvalidTaxType
	}
	if !money.ValidateRate(t.TaxType, t.Rate) {
		return ErrInvalidTaxRate
	}
	return nil
}

// Rule converts the stored rule into the form the money engine prices with.
func (t TaxRule) Rule() money.TaxRule {
	return money.TaxRule{
		ID:     t.ID.Int64(),
		Name:   t.Name,
		Type:   t.TaxType,
		Rate:   t.Rate,
		Active: t.IsActive,
	}
}

// ProductTax associates a tax rule with a product. A pair is attached at most once.
type ProductTax struct {
	ProductID snowflake.ID `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	TaxID     snowflake.ID `gorm:"column:tax_id;primaryKey;autoIncrement:false"`
	OrgID     snowflake.ID `gorm:"column:org_id;not null;index"`
	CreatedAt time.Time    `gorm:"not null"`
}

func (ProductTax) TableName() string { return "product_taxes" }
