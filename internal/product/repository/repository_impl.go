package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/product/domain"
	"gorm.io/gorm"
)

const productColumns = `id, org_id, name, product_type, description, sales_price, cost_price, active, metadata, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (`+productColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.OrgID,
		product.Name,
		product.ProductType,
		product.Description,
		product.SalesPrice,
		product.CostPrice,
		product.Active,
		product.Metadata,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE org_id = ? AND id IN ?`,
		orgID,
		ids,
	).Scan(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Product, error) {
	var products []domain.Product
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("org_id = ?", orgID)
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+filter.Name+"%")
	}
	if filter.ProductType != "" {
		stmt = stmt.Where("product_type = ?", filter.ProductType)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if filter.AfterID > 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) InsertVariant(ctx context.Context, db *gorm.DB, variant *domain.Variant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO product_variants (id, org_id, product_id, attribute, value, extra_price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		variant.ID,
		variant.OrgID,
		variant.ProductID,
		variant.Attribute,
		variant.Value,
		variant.ExtraPrice,
		variant.CreatedAt,
		variant.UpdatedAt,
	).Error
}

func (r *repo) FindVariantByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Variant, error) {
	var variant domain.Variant
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, product_id, attribute, value, extra_price, created_at, updated_at
		 FROM product_variants WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&variant).Error
	if err != nil {
		return nil, err
	}
	if variant.ID == 0 {
		return nil, nil
	}
	return &variant, nil
}

func (r *repo) FindVariantsByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]domain.Variant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var variants []domain.Variant
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, product_id, attribute, value, extra_price, created_at, updated_at
		 FROM product_variants WHERE org_id = ? AND id IN ?`,
		orgID,
		ids,
	).Scan(&variants).Error
	if err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *repo) ListVariants(ctx context.Context, db *gorm.DB, orgID, productID snowflake.ID) ([]domain.Variant, error) {
	var variants []domain.Variant
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, product_id, attribute, value, extra_price, created_at, updated_at
		 FROM product_variants WHERE org_id = ? AND product_id = ?
		 ORDER BY id ASC`,
		orgID,
		productID,
	).Scan(&variants).Error
	if err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *repo) InsertPlan(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO recurring_plans (id, org_id, name, price, billing_period, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.OrgID,
		plan.Name,
		plan.Price,
		plan.BillingPeriod,
		plan.Active,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Error
}

func (r *repo) FindPlanByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, price, billing_period, active, created_at, updated_at
		 FROM recurring_plans WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}

func (r *repo) ListPlans(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListPlanFilter) ([]domain.Plan, error) {
	var plans []domain.Plan
	stmt := db.WithContext(ctx).
		Model(&domain.Plan{}).
		Where("org_id = ?", orgID)
	if filter.BillingPeriod != "" {
		stmt = stmt.Where("billing_period = ?", filter.BillingPeriod)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if err := stmt.Order("name asc").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
