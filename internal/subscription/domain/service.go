package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateRequest struct {
	CustomerID      string               `json:"customer_id"`
	PlanID          string               `json:"plan_id"`
	StartDate       *time.Time           `json:"start_date"`
	EndDate         *time.Time           `json:"end_date"`
	PaymentTermDays *int                 `json:"payment_term_days"`
	Notes           string               `json:"notes"`
	DiscountCode    string               `json:"discount_code"`
	Items           []document.ItemInput `json:"items"`
	Metadata        map[string]any       `json:"metadata"`
}

// UpdateRequest replaces the item set when Items is non-nil. Other nil fields are left unchanged.
type UpdateRequest struct {
	ID              string                `json:"-"`
	EndDate         *time.Time            `json:"end_date"`
	PaymentTermDays *int                  `json:"payment_term_days"`
	Notes           *string               `json:"notes"`
	DiscountCode    string                `json:"discount_code"`
	Items           *[]document.ItemInput `json:"items"`
}

type ListRequest struct {
	pagination.Pagination
	CustomerID string `form:"customer_id"`
	PlanID     string `form:"plan_id"`
	Status     string `form:"status"`
}

type ListResponse struct {
	pagination.PageInfo
	Subscriptions []Response `json:"subscriptions"`
}

type Response struct {
	ID                 string              `json:"id"`
	OrganizationID     string              `json:"organization_id"`
	SubscriptionNumber string              `json:"subscription_number"`
	CustomerID         string              `json:"customer_id"`
	PlanID             *string             `json:"plan_id,omitempty"`
	Status             document.Status     `json:"status"`
	StartDate          time.Time           `json:"start_date"`
	EndDate            *time.Time          `json:"end_date,omitempty"`
	NextInvoiceDate    *time.Time          `json:"next_invoice_date,omitempty"`
	PaymentTermDays    int                 `json:"payment_term_days"`
	Notes              string              `json:"notes,omitempty"`
	DiscountID         *string             `json:"discount_id,omitempty"`
	DiscountCode       *string             `json:"discount_code,omitempty"`
	Items              []document.LineItem `json:"items,omitempty"`
	ConfirmedAt        *time.Time          `json:"confirmed_at,omitempty"`
	ActivatedAt        *time.Time          `json:"activated_at,omitempty"`
	EndedAt            *time.Time          `json:"ended_at,omitempty"`
	Metadata           map[string]any      `json:"metadata,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`

	document.Amounts
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	UpdateStatus(ctx context.Context, id string, status string) (*Response, error)
	// ConfirmTx moves a not yet confirmed subscription to Confirmed inside tx.
	// It is a no-op when the subscription is already Confirmed.
	ConfirmTx(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) error
}

var (
	ErrInvalidOrganization = apperr.Validation("invalid_organization")
	ErrInvalidID           = apperr.Validation("invalid_id")
	ErrInvalidCustomer     = apperr.Validation("invalid_customer")
	ErrInvalidPlan         = apperr.Validation("invalid_plan")
	ErrInvalidPeriod       = apperr.Validation("invalid_period")
	ErrInvalidPaymentTerms = apperr.Validation("invalid_payment_terms")
	ErrInvalidPageToken    = apperr.Validation("invalid_page_token")
	ErrCustomerNotFound    = apperr.NotFound("customer_not_found")
	ErrPlanNotFound        = apperr.NotFound("plan_not_found")
	ErrNotFound            = apperr.NotFound("subscription_not_found")
	ErrNotEditable         = apperr.InvalidTransition("subscription_not_editable")
	ErrDiscountApplied     = apperr.Conflict("discount_already_applied")
)
