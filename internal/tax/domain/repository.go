package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, rule *TaxRule) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*TaxRule, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]TaxRule, error)
	Update(ctx context.Context, db *gorm.DB, rule *TaxRule) error

	Attach(ctx context.Context, db *gorm.DB, link *ProductTax) error
	Detach(ctx context.Context, db *gorm.DB, orgID, productID, taxID snowflake.ID) (int64, error)
	ListForProduct(ctx context.Context, db *gorm.DB, orgID, productID snowflake.ID) ([]TaxRule, error)
	// ListActiveForProducts returns the active rules of each product, keyed by product id.
	ListActiveForProducts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, productIDs []snowflake.ID) (map[snowflake.ID][]TaxRule, error)
}

type ListFilter struct {
	Name     string
	TaxType  string
	IsActive *bool
}
