package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/money"
)

// InvoiceItemTax records one tax rule applied to one invoice line when the line was priced.
type InvoiceItemTax struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id,string"`
	OrgID         snowflake.ID    `gorm:"not null" json:"-"`
	InvoiceID     snowflake.ID    `gorm:"not null;index" json:"-"`
	InvoiceItemID snowflake.ID    `gorm:"not null;index" json:"invoice_item_id,string"`
	TaxID         snowflake.ID    `gorm:"not null" json:"tax_id,string"`
	TaxName       string          `gorm:"type:text;not null" json:"tax_name"`
	TaxType       money.RateType  `gorm:"type:varchar(16);not null" json:"tax_type"`
	Rate          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rate"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
}

func (InvoiceItemTax) TableName() string { return "invoice_item_taxes" }
