package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/document"
	"gorm.io/datatypes"
)

// Quotation is a priced offer to a customer. Accepting it confirms the linked subscription.
type Quotation struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	OrgID           snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_quotations_org_number,priority:1"`
	QuotationNumber string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_quotations_org_number,priority:2"`
	CustomerID      snowflake.ID    `gorm:"not null;index"`
	SubscriptionID  *snowflake.ID   `gorm:"column:subscription_id;index"`
	TemplateID      *snowflake.ID   `gorm:"column:template_id"`
	Status          document.Status `gorm:"type:varchar(32);not null;index"`
	IssueDate       time.Time       `gorm:"not null"`
	ValidUntil      time.Time       `gorm:"not null"`
	SentAt          *time.Time
	RespondedAt     *time.Time
	Notes           string `gorm:"type:text"`
	Terms           string `gorm:"type:text"`

	document.Amounts
	document.DiscountSnapshot

	Metadata  datatypes.JSONMap
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Quotation) TableName() string { return "quotations" }

type QuotationItem struct {
	document.LineItem
}

func (QuotationItem) TableName() string { return "quotation_items" }
