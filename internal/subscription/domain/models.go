// Package domain contains persistence models for subscriptions and their line items.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/document"
	"gorm.io/datatypes"
)

// Subscription is a recurring agreement with a customer. Amounts are derived from its items.
type Subscription struct {
	ID                 snowflake.ID    `gorm:"primaryKey"`
	OrgID              snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_subscriptions_org_number,priority:1"`
	SubscriptionNumber string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_subscriptions_org_number,priority:2"`
	CustomerID         snowflake.ID    `gorm:"not null;index"`
	PlanID             *snowflake.ID   `gorm:"column:plan_id"`
	Status             document.Status `gorm:"type:varchar(32);not null"`
	StartDate          time.Time       `gorm:"not null"`
	EndDate            *time.Time
	NextInvoiceDate    *time.Time
	PaymentTermDays    int    `gorm:"not null;default:0"`
	Notes              string `gorm:"type:text"`

	document.Amounts
	document.DiscountSnapshot

	ConfirmedAt *time.Time
	ActivatedAt *time.Time
	EndedAt     *time.Time
	Metadata    datatypes.JSONMap
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

type SubscriptionItem struct {
	document.LineItem
}

// TableName sets the database table name.
func (SubscriptionItem) TableName() string { return "subscription_items" }
