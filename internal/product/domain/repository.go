package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Product, error)
	FindByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]Product, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]Product, error)

	InsertVariant(ctx context.Context, db *gorm.DB, variant *Variant) error
	FindVariantByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Variant, error)
	FindVariantsByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]Variant, error)
	ListVariants(ctx context.Context, db *gorm.DB, orgID, productID snowflake.ID) ([]Variant, error)

	InsertPlan(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindPlanByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Plan, error)
	ListPlans(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListPlanFilter) ([]Plan, error)
}

type ListFilter struct {
	Name        string
	ProductType string
	Active      *bool
	AfterID     int64
	Limit       int
}

type ListPlanFilter struct {
	BillingPeriod BillingPeriod
	Active        *bool
}
