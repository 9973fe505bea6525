package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

type Method string

const (
	MethodCash         Method = "CASH"
	MethodCard         Method = "CARD"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodUPI          Method = "UPI"
	MethodCheque       Method = "CHEQUE"
	MethodOther        Method = "OTHER"
)

var methods = []Method{MethodCash, MethodCard, MethodBankTransfer, MethodUPI, MethodCheque, MethodOther}

// ParseMethod matches raw case-insensitively and defaults to CASH when empty.
func ParseMethod(raw string) (Method, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MethodCash, nil
	}
	for _, method := range methods {
		if strings.EqualFold(string(method), raw) {
			return method, nil
		}
	}
	return "", ErrInvalidMethod
}

func ParseStatus(raw string) (Status, error) {
	for _, status := range []Status{StatusPending, StatusCompleted, StatusFailed, StatusRefunded} {
		if strings.EqualFold(string(status), strings.TrimSpace(raw)) {
			return status, nil
		}
	}
	return "", ErrInvalidStatus
}

// Payment is one money movement received from a customer. A COMPLETED payment only ever changes to REFUNDED.
type Payment struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_payments_org_number,priority:1" json:"organization_id"`
	PaymentNumber string            `gorm:"type:varchar(32);not null;uniqueIndex:ux_payments_org_number,priority:2" json:"payment_number"`
	InvoiceID     *snowflake.ID     `gorm:"index" json:"invoice_id,omitempty"`
	CustomerID    snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	Amount        decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method        Method            `gorm:"type:varchar(32);not null" json:"method"`
	Status        Status            `gorm:"type:varchar(32);not null;index" json:"status"`
	Reference     string            `gorm:"type:text" json:"reference,omitempty"`
	Notes         string            `gorm:"type:text" json:"notes,omitempty"`
	PaidAt        time.Time         `gorm:"not null" json:"paid_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	FailedAt      *time.Time        `json:"failed_at,omitempty"`
	RefundedAt    *time.Time        `json:"refunded_at,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
