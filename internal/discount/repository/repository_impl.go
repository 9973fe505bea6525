package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/discount/domain"
	"gorm.io/gorm"
)

const discountColumns = `id, org_id, name, code, discount_type, value, minimum_purchase, minimum_quantity,
	start_date, end_date, limit_usage, used_count, applies_to, product_id, subscription_id, is_active,
	metadata, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, d *domain.Discount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO discounts (`+discountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.OrgID,
		d.Name,
		d.Code,
		d.DiscountType,
		d.Value,
		d.MinimumPurchase,
		d.MinimumQuantity,
		d.StartDate,
		d.EndDate,
		d.LimitUsage,
		d.UsedCount,
		d.AppliesTo,
		d.ProductID,
		d.SubscriptionID,
		d.IsActive,
		d.Metadata,
		d.CreatedAt,
		d.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Discount, error) {
	var d domain.Discount
	err := db.WithContext(ctx).Raw(
		`SELECT `+discountColumns+` FROM discounts WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code string) (*domain.Discount, error) {
	needle := strings.ToUpper(strings.TrimSpace(code))
	if needle == "" {
		return nil, nil
	}

	var d domain.Discount
	err := db.WithContext(ctx).Raw(
		`SELECT `+discountColumns+` FROM discounts
		 WHERE org_id = ? AND UPPER(code) = ?
		 LIMIT 1`,
		orgID,
		needle,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID != 0 {
		return &d, nil
	}

	err = db.WithContext(ctx).Raw(
		`SELECT `+discountColumns+` FROM discounts
		 WHERE org_id = ? AND code IS NULL AND UPPER(name) = ?
		 ORDER BY is_active DESC, id ASC
		 LIMIT 1`,
		orgID,
		needle,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Discount, error) {
	var items []domain.Discount
	stmt := db.WithContext(ctx).
		Model(&domain.Discount{}).
		Where("org_id = ?", orgID)
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if filter.AppliesTo != "" {
		stmt = stmt.Where("applies_to = ?", filter.AppliesTo)
	}
	if filter.AfterID > 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE discounts SET is_active = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		false,
		at,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) IncrementUsage(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE discounts
		 SET used_count = used_count + 1, updated_at = ?
		 WHERE org_id = ? AND id = ? AND is_active = ?
		   AND (limit_usage IS NULL OR used_count < limit_usage)`,
		at,
		orgID,
		id,
		true,
	)
	return result.RowsAffected, result.Error
}
