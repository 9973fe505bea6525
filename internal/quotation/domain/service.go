package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
)

type CreateRequest struct {
	CustomerID     string               `json:"customer_id"`
	SubscriptionID string               `json:"subscription_id"`
	ValidUntil     *time.Time           `json:"valid_until"`
	Notes          string               `json:"notes"`
	Terms          string               `json:"terms"`
	DiscountCode   string               `json:"discount_code"`
	Items          []document.ItemInput `json:"items"`
	Metadata       map[string]any       `json:"metadata"`
}

// CreateFromTemplateRequest uses the organization's default template when TemplateID is empty.
type CreateFromTemplateRequest struct {
	TemplateID     string     `json:"template_id"`
	CustomerID     string     `json:"customer_id"`
	SubscriptionID string     `json:"subscription_id"`
	ValidUntil     *time.Time `json:"valid_until"`
	Notes          string     `json:"notes"`
	DiscountCode   string     `json:"discount_code"`
}

type UpdateRequest struct {
	ID           string                `json:"-"`
	ValidUntil   *time.Time            `json:"valid_until"`
	Notes        *string               `json:"notes"`
	Terms        *string               `json:"terms"`
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
	Quotations []Response `json:"quotations"`
}

type Response struct {
	ID              string              `json:"id"`
	OrganizationID  string              `json:"organization_id"`
	QuotationNumber string              `json:"quotation_number"`
	CustomerID      string              `json:"customer_id"`
	SubscriptionID  *string             `json:"subscription_id,omitempty"`
	TemplateID      *string             `json:"template_id,omitempty"`
	Status          document.Status     `json:"status"`
	IssueDate       time.Time           `json:"issue_date"`
	ValidUntil      time.Time           `json:"valid_until"`
	SentAt          *time.Time          `json:"sent_at,omitempty"`
	RespondedAt     *time.Time          `json:"responded_at,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	Terms           string              `json:"terms,omitempty"`
	DiscountCode    *string             `json:"discount_code,omitempty"`
	Items           []document.LineItem `json:"items,omitempty"`
	Metadata        map[string]any      `json:"metadata,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`

	document.Amounts
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	CreateFromTemplate(ctx context.Context, req CreateFromTemplateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Send(ctx context.Context, id string) (*Response, error)
	Accept(ctx context.Context, id string) (*Response, error)
	Reject(ctx context.Context, id string, reason string) (*Response, error)
	Expire(ctx context.Context, id string) (*Response, error)
	// ExpireStale expires every SENT quotation of the context organization whose validity has passed.
	ExpireStale(ctx context.Context) (int64, error)
	// StaleOrganizations lists organizations holding at least one expirable quotation.
	StaleOrganizations(ctx context.Context) ([]snowflake.ID, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization  = apperr.Validation("invalid_organization")
	ErrInvalidID            = apperr.Validation("invalid_id")
	ErrInvalidCustomer      = apperr.Validation("invalid_customer")
	ErrInvalidSubscription  = apperr.Validation("invalid_subscription")
	ErrInvalidTemplate      = apperr.Validation("invalid_template")
	ErrInvalidValidUntil    = apperr.Validation("invalid_valid_until")
	ErrInvalidPageToken     = apperr.Validation("invalid_page_token")
	ErrSubscriptionMismatch = apperr.Validation("subscription_customer_mismatch")
	ErrCustomerNotFound     = apperr.NotFound("customer_not_found")
	ErrNotFound             = apperr.NotFound("quotation_not_found")
	ErrNotEditable          = apperr.InvalidTransition("quotation_not_editable")
	ErrAccepted             = apperr.InvalidTransition("quotation_accepted")
	ErrDiscountApplied      = apperr.Conflict("discount_already_applied")
)
