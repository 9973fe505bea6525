package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/money"
	"gorm.io/gorm"
)

// TaxResolver returns the active tax rules of the products on a document.
type TaxResolver interface {
	RulesForProducts(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, productIDs []snowflake.ID) (map[snowflake.ID][]money.TaxRule, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Disable(ctx context.Context, id string) (*Response, error)

	AttachToProduct(ctx context.Context, productID, taxID string) error
	DetachFromProduct(ctx context.Context, productID, taxID string) error
	ListForProduct(ctx context.Context, productID string) ([]Response, error)
}

type ListRequest struct {
	Name     string
	TaxType  string
	IsActive *bool
}

type CreateRequest struct {
	Name        string          `json:"name"`
	TaxType     money.RateType  `json:"tax_type"`
	Rate        decimal.Decimal `json:"rate"`
	Description *string         `json:"description"`
	IsActive    *bool           `json:"is_active"`
}

type UpdateRequest struct {
	ID          string           `json:"id"`
	Name        *string          `json:"name,omitempty"`
	TaxType     *money.RateType  `json:"tax_type,omitempty"`
	Rate        *decimal.Decimal `json:"rate,omitempty"`
	Description *string          `json:"description,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

type Response struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Name           string          `json:"name"`
	TaxType        money.RateType  `json:"tax_type"`
	Rate           decimal.Decimal `json:"rate"`
	Description    *string         `json:"description,omitempty"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
