package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
)

type CreateRequest struct {
	CustomerID     string               `json:"customer_id"`
	SubscriptionID string               `json:"subscription_id"`
	QuotationID    string               `json:"quotation_id"`
	Currency       string               `json:"currency"`
	IssueDate      *time.Time           `json:"issue_date"`
	DueDate        *time.Time           `json:"due_date"`
	Notes          string               `json:"notes"`
	DiscountCode   string               `json:"discount_code"`
	Items          []document.ItemInput `json:"items"`
	Metadata       map[string]any       `json:"metadata"`
}

// CreateFromSubscriptionRequest bills the items of a Confirmed or Active subscription.
type CreateFromSubscriptionRequest struct {
	SubscriptionID string     `json:"subscription_id"`
	IssueDate      *time.Time `json:"issue_date"`
	DueDate        *time.Time `json:"due_date"`
	Notes          string     `json:"notes"`
}

type UpdateRequest struct {
	ID           string                `json:"-"`
	DueDate      *time.Time            `json:"due_date"`
	Notes        *string               `json:"notes"`
	DiscountCode string                `json:"discount_code"`
	Items        *[]document.ItemInput `json:"items"`
}

type ListRequest struct {
	pagination.Pagination
	CustomerID     string `form:"customer_id"`
	SubscriptionID string `form:"subscription_id"`
	Status         string `form:"status"`
}

type ListResponse struct {
	pagination.PageInfo
	Invoices []Response `json:"invoices"`
}

type Response struct {
	ID             string              `json:"id"`
	OrganizationID string              `json:"organization_id"`
	InvoiceNumber  string              `json:"invoice_number"`
	CustomerID     string              `json:"customer_id"`
	SubscriptionID *string             `json:"subscription_id,omitempty"`
	QuotationID    *string             `json:"quotation_id,omitempty"`
	Status         document.Status     `json:"status"`
	StoredStatus   document.Status     `json:"stored_status"`
	Currency       string              `json:"currency"`
	IssueDate      time.Time           `json:"issue_date"`
	DueDate        time.Time           `json:"due_date"`
	DaysOverdue    int                 `json:"days_overdue,omitempty"`
	SentAt         *time.Time          `json:"sent_at,omitempty"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	RefundedAt     *time.Time          `json:"refunded_at,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	DiscountCode   *string             `json:"discount_code,omitempty"`
	AmountPaid     string              `json:"amount_paid"`
	Balance        string              `json:"balance"`
	Items          []document.LineItem `json:"items,omitempty"`
	ItemTaxes      []InvoiceItemTax    `json:"item_taxes,omitempty"`
	Payments       []PaymentSummary    `json:"payments,omitempty"`
	Metadata       map[string]any      `json:"metadata,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`

	document.Amounts
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	CreateFromSubscription(ctx context.Context, req CreateFromSubscriptionRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	ListOverdue(ctx context.Context) ([]Response, error)
	Send(ctx context.Context, id string) (*Response, error)
	Cancel(ctx context.Context, id string) (*Response, error)
	MarkOverdue(ctx context.Context, id string) (*Response, error)
	MarkRefunded(ctx context.Context, id string) (*Response, error)
	RenderPDF(ctx context.Context, id string) ([]byte, error)
}

var (
	ErrInvalidOrganization     = apperr.Validation("invalid_organization")
	ErrInvalidID               = apperr.Validation("invalid_id")
	ErrInvalidCustomer         = apperr.Validation("invalid_customer")
	ErrInvalidSubscription     = apperr.Validation("invalid_subscription")
	ErrInvalidQuotation        = apperr.Validation("invalid_quotation")
	ErrInvalidCurrency         = apperr.Validation("invalid_currency")
	ErrInvalidDueDate          = apperr.Validation("invalid_due_date")
	ErrInvalidPageToken        = apperr.Validation("invalid_page_token")
	ErrCustomerMismatch        = apperr.Validation("customer_mismatch")
	ErrCustomerNotFound        = apperr.NotFound("customer_not_found")
	ErrNotFound                = apperr.NotFound("invoice_not_found")
	ErrNotEditable             = apperr.InvalidTransition("invoice_not_editable")
	ErrHasPayments             = apperr.InvalidTransition("invoice_has_payments")
	ErrSubscriptionNotBillable = apperr.InvalidTransition("subscription_not_billable")
	ErrDiscountApplied         = apperr.Conflict("discount_already_applied")
)
