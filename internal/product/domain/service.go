package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/smallbiznis/billingcore/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)

	CreateVariant(ctx context.Context, req CreateVariantRequest) (*VariantResponse, error)
	ListVariants(ctx context.Context, productID string) ([]VariantResponse, error)

	CreatePlan(ctx context.Context, req CreatePlanRequest) (*PlanResponse, error)
	ListPlans(ctx context.Context, req ListPlanRequest) ([]PlanResponse, error)
	GetPlan(ctx context.Context, id string) (*PlanResponse, error)
}

type ListRequest struct {
	pagination.Pagination
	Name        string
	ProductType string
	Active      *bool
}

type ListResponse struct {
	pagination.PageInfo
	Products []Response `json:"products"`
}

type CreateRequest struct {
	Name        string           `json:"name"`
	ProductType string           `json:"product_type"`
	Description *string          `json:"description"`
	SalesPrice  decimal.Decimal  `json:"sales_price"`
	CostPrice   *decimal.Decimal `json:"cost_price"`
	Active      *bool            `json:"active"`
	Metadata    map[string]any   `json:"metadata"`
}

type Response struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	Name           string            `json:"name"`
	ProductType    string            `json:"product_type,omitempty"`
	Description    *string           `json:"description,omitempty"`
	SalesPrice     decimal.Decimal   `json:"sales_price"`
	CostPrice      decimal.Decimal   `json:"cost_price"`
	Active         bool              `json:"active"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
	Variants       []VariantResponse `json:"variants,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type CreateVariantRequest struct {
	ProductID  string          `json:"product_id"`
	Attribute  string          `json:"attribute"`
	Value      string          `json:"value"`
	ExtraPrice decimal.Decimal `json:"extra_price"`
}

type VariantResponse struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Attribute  string          `json:"attribute"`
	Value      string          `json:"value"`
	ExtraPrice decimal.Decimal `json:"extra_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CreatePlanRequest struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	BillingPeriod BillingPeriod   `json:"billing_period"`
	Active        *bool           `json:"active"`
}

type ListPlanRequest struct {
	BillingPeriod string
	Active        *bool
}

type PlanResponse struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	BillingPeriod  BillingPeriod   `json:"billing_period"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

var (
	ErrInvalidOrganization  = apperr.Validation("invalid_organization")
	ErrInvalidName          = apperr.Validation("invalid_name")
	ErrInvalidID            = apperr.Validation("invalid_id")
	ErrInvalidPrice         = apperr.Validation("invalid_price")
	ErrInvalidAttribute     = apperr.Validation("invalid_attribute")
	ErrInvalidBillingPeriod = apperr.Validation("invalid_billing_period")
	ErrInvalidPageToken     = apperr.Validation("invalid_page_token")
	ErrNotFound             = apperr.NotFound("product_not_found")
	ErrVariantNotFound      = apperr.NotFound("variant_not_found")
	ErrPlanNotFound         = apperr.NotFound("plan_not_found")
)
