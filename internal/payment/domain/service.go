package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
)

type RecordRequest struct {
	InvoiceID  string          `json:"invoice_id"`
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference"`
	Notes      string          `json:"notes"`
	PaidAt     *time.Time      `json:"paid_at"`
	// Pending stores the payment without touching the invoice until it is completed.
	Pending  bool           `json:"pending"`
	Metadata map[string]any `json:"metadata"`
}

type PayBalanceRequest struct {
	InvoiceID string `json:"-"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

type RefundRequest struct {
	ID     string `json:"-"`
	Reason string `json:"reason"`
}

type ListRequest struct {
	pagination.Pagination
	InvoiceID  string `form:"invoice_id"`
	CustomerID string `form:"customer_id"`
	Status     string `form:"status"`
	Method     string `form:"method"`
}

type ListResponse struct {
	pagination.PageInfo
	Payments []Response `json:"payments"`
}

type Response struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	PaymentNumber  string          `json:"payment_number"`
	InvoiceID      *string         `json:"invoice_id,omitempty"`
	CustomerID     string          `json:"customer_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         Method          `json:"method"`
	Status         Status          `json:"status"`
	Reference      string          `json:"reference,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	PaidAt         time.Time       `json:"paid_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	FailedAt       *time.Time      `json:"failed_at,omitempty"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Invoice is the state of the linked invoice right after the payment was applied or reversed.
	Invoice *InvoiceState `json:"invoice,omitempty"`
}

type InvoiceState struct {
	Status     document.Status `json:"status"`
	AmountPaid string          `json:"amount_paid"`
	Balance    string          `json:"balance"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Response, error)
	Complete(ctx context.Context, id string) (*Response, error)
	Fail(ctx context.Context, id string) (*Response, error)
	PayInvoiceBalance(ctx context.Context, req PayBalanceRequest) (*Response, error)
	Refund(ctx context.Context, req RefundRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidOrganization = apperr.Validation("invalid_organization")
	ErrInvalidID           = apperr.Validation("invalid_id")
	ErrInvalidInvoice      = apperr.Validation("invalid_invoice")
	ErrInvalidCustomer     = apperr.Validation("invalid_customer")
	ErrInvalidAmount       = apperr.Validation("invalid_amount")
	ErrInvalidMethod       = apperr.Validation("invalid_method")
	ErrInvalidStatus       = apperr.Validation("invalid_status")
	ErrInvalidPageToken    = apperr.Validation("invalid_page_token")
	ErrCustomerRequired    = apperr.Validation("customer_or_invoice_required")
	ErrCustomerMismatch    = apperr.Validation("customer_invoice_mismatch")
	ErrNotFound            = apperr.NotFound("payment_not_found")
	ErrInvoiceNotFound     = apperr.NotFound("invoice_not_found")
	ErrCustomerNotFound    = apperr.NotFound("customer_not_found")
	ErrAlreadyRefunded     = apperr.Conflict("already_refunded")
	ErrInvoiceNotPayable   = apperr.InvalidTransition("invoice_not_payable")
	ErrNotPending          = apperr.InvalidTransition("payment_not_pending")
	ErrNotRefundable       = apperr.InvalidTransition("payment_not_refundable")
	ErrPaymentCompleted    = apperr.InvalidTransition("payment_completed")
	ErrNothingDue          = apperr.InvalidTransition("invoice_fully_paid")
	ErrOverpayment         = apperr.Overpayment("overpayment_rejected")
)
