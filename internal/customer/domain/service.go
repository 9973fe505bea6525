package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
)

type ListCustomerRequest struct {
	pagination.Pagination
	Name        string
	Email       string
	Currency    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerFilter struct {
	Name        string
	Email       string
	Currency    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	AfterID     int64
	Limit       int
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Phone    string         `json:"phone"`
	Currency string         `json:"currency"`
	Metadata map[string]any `json:"metadata"`
}

type GetCustomerRequest struct {
	ID string
}

// Statement summarizes what a customer owes across their issued invoices.
// Outstanding counts every open invoice; Overdue is the part of it past due.
type Statement struct {
	CustomerID   string          `json:"customer_id"`
	Currency     string          `json:"currency,omitempty"`
	OpenInvoices int64           `json:"open_invoices"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	Overdue      decimal.Decimal `json:"overdue"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	AsOf         time.Time       `json:"as_of"`
}

// StatementTotals is the raw aggregate read from the invoices table.
type StatementTotals struct {
	OpenInvoices int64
	Outstanding  decimal.Decimal
	Overdue      decimal.Decimal
	TotalPaid    decimal.Decimal
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	Statement(context.Context, GetCustomerRequest) (Statement, error)
}

var (
	ErrInvalidOrganization = apperr.Validation("invalid_organization")
	ErrInvalidName         = apperr.Validation("invalid_name")
	ErrInvalidEmail        = apperr.Validation("invalid_email")
	ErrInvalidID           = apperr.Validation("invalid_id")
	ErrInvalidPageToken    = apperr.Validation("invalid_page_token")
	ErrNotFound            = apperr.NotFound("customer_not_found")
)
