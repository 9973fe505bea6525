// Package domain contains persistence models and contracts for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/document"
	"gorm.io/datatypes"
)

// Invoice is the aggregate root for payments recorded against it.
type Invoice struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	OrgID          snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_invoices_org_number,priority:1"`
	InvoiceNumber  string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_invoices_org_number,priority:2"`
	CustomerID     snowflake.ID    `gorm:"not null;index"`
	SubscriptionID *snowflake.ID   `gorm:"column:subscription_id;index"`
	QuotationID    *snowflake.ID   `gorm:"column:quotation_id"`
	Status         document.Status `gorm:"type:varchar(32);not null;index"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	IssueDate      time.Time       `gorm:"not null"`
	DueDate        time.Time       `gorm:"not null;index"`
	SentAt         *time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
	RefundedAt     *time.Time
	Notes          string `gorm:"type:text"`

	document.Amounts
	AmountPaid decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	document.DiscountSnapshot

	Metadata  datatypes.JSONMap
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

// Balance is what remains to be paid, never negative.
func (i Invoice) Balance() decimal.Decimal {
	balance := i.Total.Sub(i.AmountPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// EffectiveStatus reports OVERDUE for a stored OVERDUE, or for an unsettled invoice past its due date.
// The List query applies the same predicate.
func (i Invoice) EffectiveStatus(now time.Time) document.Status {
	if i.Status == document.InvoiceOverdue {
		return i.Status
	}
	if i.Status == document.InvoicePaid || i.Status == document.InvoiceCancelled {
		return i.Status
	}
	if i.DueDate.Before(now) {
		return document.InvoiceOverdue
	}
	return i.Status
}

// Payable reports whether money can still be applied to the invoice.
func (i Invoice) Payable() bool {
	switch i.Status {
	case document.InvoiceSent, document.InvoicePartiallyPaid, document.InvoiceOverdue:
		return true
	default:
		return false
	}
}

// PaymentState is the settlement part of an invoice row.
type PaymentState struct {
	AmountPaid decimal.Decimal
	Status     document.Status
	PaidAt     *time.Time
}

// ReceivePayment returns the state after amount is received. It reports false when the invoice is
// not payable or the payment would take amount_paid past the total.
func (i Invoice) ReceivePayment(amount decimal.Decimal, now time.Time) (PaymentState, bool) {
	if !i.Payable() || !amount.IsPositive() {
		return PaymentState{}, false
	}
	paid := i.AmountPaid.Add(amount)
	if paid.GreaterThan(i.Total) {
		return PaymentState{}, false
	}
	if paid.Equal(i.Total) {
		return PaymentState{AmountPaid: paid, Status: document.InvoicePaid, PaidAt: &now}, true
	}
	return PaymentState{AmountPaid: paid, Status: document.InvoicePartiallyPaid, PaidAt: i.PaidAt}, true
}

// ReturnPayment returns the state after a refunded amount is given back. A REFUNDED invoice keeps
// its status; otherwise the invoice is SENT once nothing remains paid and PARTIALLY_PAID before that.
func (i Invoice) ReturnPayment(amount decimal.Decimal) (PaymentState, bool) {
	if !amount.IsPositive() || amount.GreaterThan(i.AmountPaid) {
		return PaymentState{}, false
	}
	paid := i.AmountPaid.Sub(amount)
	status := document.InvoicePartiallyPaid
	switch {
	case i.Status == document.InvoiceRefunded:
		status = i.Status
	case paid.IsZero():
		status = document.InvoiceSent
	}
	return PaymentState{AmountPaid: paid, Status: status}, true
}

type InvoiceItem struct {
	document.LineItem
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// PaymentSummary is the read-only view of a payment shown on its invoice.
type PaymentSummary struct {
	ID            snowflake.ID    `json:"id,string"`
	PaymentNumber string          `json:"payment_number"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Status        string          `json:"status"`
	Reference     string          `json:"reference,omitempty"`
	PaidAt        time.Time       `json:"paid_at"`
}
