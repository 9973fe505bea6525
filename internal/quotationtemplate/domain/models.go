package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type QuotationTemplate struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	OrgID        snowflake.ID `gorm:"not null;index"`
	Name         string       `gorm:"not null"`
	ValidityDays int          `gorm:"not null;default:0"`
	IsDefault    bool         `gorm:"not null;default:false"`
	Notes        string       `gorm:"type:text"`
	CreatedAt    time.Time    `gorm:"not null"`
	UpdatedAt    time.Time    `gorm:"not null"`
}

func (QuotationTemplate) TableName() string { return "quotation_templates" }

// TemplateItem is an unpriced line. Prices resolve when a quotation is created from the template.
type TemplateItem struct {
	ID          snowflake.ID     `gorm:"primaryKey"`
	OrgID       snowflake.ID     `gorm:"not null"`
	TemplateID  snowflake.ID     `gorm:"not null;index"`
	Position    int              `gorm:"not null"`
	ProductID   *snowflake.ID    `gorm:"column:product_id"`
	VariantID   *snowflake.ID    `gorm:"column:variant_id"`
	Description string           `gorm:"type:text"`
	Quantity    int64            `gorm:"not null"`
	UnitPrice   *decimal.Decimal `gorm:"type:decimal(18,2)"`
	CreatedAt   time.Time        `gorm:"not null"`
}

func (TemplateItem) TableName() string { return "quotation_template_items" }
