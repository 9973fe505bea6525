package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/smallbiznis/billingcore/internal/money"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
	"gorm.io/gorm"
)

// Evaluator is what documents use to redeem a discount inside their own transaction.
type Evaluator interface {
	ValidateTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, req ValidateRequest) (AppliedDiscount, error)
	ApplyTx(ctx context.Context, tx *gorm.DB, orgID, discountID snowflake.ID) error
}

type Service interface {
	Evaluator

	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	Deactivate(ctx context.Context, id string) (*Response, error)
	Validate(ctx context.Context, req ValidateRequest) (AppliedDiscount, error)
	Apply(ctx context.Context, id string) (*Response, error)
}

type CreateRequest struct {
	Name            string          `json:"name"`
	Code            string          `json:"code"`
	Type            money.RateType  `json:"type"`
	Value           decimal.Decimal `json:"value"`
	MinimumPurchase decimal.Decimal `json:"minimum_purchase"`
	MinimumQuantity int64           `json:"minimum_quantity"`
	StartDate       *time.Time      `json:"start_date"`
	EndDate         *time.Time      `json:"end_date"`
	LimitUsage      *int64          `json:"limit_usage"`
	AppliesTo       AppliesTo       `json:"applies_to"`
	ProductID       string          `json:"product_id"`
	SubscriptionID  string          `json:"subscription_id"`
	Metadata        map[string]any  `json:"metadata"`
}

type ListRequest struct {
	pagination.Pagination
	IsActive  *bool
	AppliesTo string
}

type ListResponse struct {
	pagination.PageInfo
	Discounts []Response `json:"discounts"`
}

type ValidateRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Quantity int64           `json:"quantity"`
	AsOf     *time.Time      `json:"as_of"`
	Scope    Scope           `json:"-"`
}

type Response struct {
	ID              string          `json:"id"`
	OrganizationID  string          `json:"organization_id"`
	Name            string          `json:"name"`
	Code            *string         `json:"code,omitempty"`
	Type            money.RateType  `json:"type"`
	Value           decimal.Decimal `json:"value"`
	MinimumPurchase decimal.Decimal `json:"minimum_purchase"`
	MinimumQuantity int64           `json:"minimum_quantity"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	LimitUsage      *int64          `json:"limit_usage,omitempty"`
	UsedCount       int64           `json:"used_count"`
	AppliesTo       AppliesTo       `json:"applies_to"`
	ProductID       *string         `json:"product_id,omitempty"`
	SubscriptionID  *string         `json:"subscription_id,omitempty"`
	IsActive        bool            `json:"is_active"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

var (
	ErrInvalidOrganization   = apperr.Validation("invalid_organization")
	ErrInvalidID             = apperr.Validation("invalid_id")
	ErrInvalidName           = apperr.Validation("invalid_name")
	ErrInvalidCode           = apperr.Validation("invalid_code")
	ErrInvalidType           = apperr.Validation("invalid_type")
	ErrInvalidValue          = apperr.Validation("invalid_value")
	ErrInvalidMinimum        = apperr.Validation("invalid_minimum")
	ErrInvalidWindow         = apperr.Validation("invalid_window")
	ErrInvalidLimit          = apperr.Validation("invalid_limit_usage")
	ErrInvalidAppliesTo      = apperr.Validation("invalid_applies_to")
	ErrInvalidPageToken      = apperr.Validation("invalid_page_token")
	ErrNotFound              = apperr.NotFound("discount_not_found")
	ErrExpired               = apperr.Validation("discount_expired")
	ErrMinimumPurchaseNotMet = apperr.Validation("minimum_purchase_not_met")
	ErrMinimumQuantityNotMet = apperr.Validation("minimum_quantity_not_met")
	ErrNotApplicable         = apperr.Validation("discount_not_applicable")
	ErrUsageLimitReached     = apperr.Conflict("usage_limit_reached")
	ErrDuplicateCode         = apperr.Conflict("duplicate_code")
)
