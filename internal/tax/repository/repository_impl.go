package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/money"
	taxdomain "github.com/smallbiznis/billingcore/internal/tax/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const taxColumns = `id, org_id, name, tax_type, rate, description, is_active, created_at, updated_at`

type repository struct{}

func NewRepository() taxdomain.Repository {
	return &repository{}
}

func (r *repository) Create(ctx context.Context, db *gorm.DB, rule *taxdomain.TaxRule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO taxes (`+taxColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.OrgID,
		rule.Name,
		rule.TaxType,
		rule.Rate,
		rule.Description,
		rule.IsActive,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*taxdomain.TaxRule, error) {
	var rule taxdomain.TaxRule
	err := db.WithContext(ctx).Raw(
		`SELECT `+taxColumns+` FROM taxes WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter taxdomain.ListFilter) ([]taxdomain.TaxRule, error) {
	var items []taxdomain.TaxRule
	stmt := db.WithContext(ctx).
		Model(&taxdomain.TaxRule{}).
		Where("org_id = ?", orgID)

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.TaxType != "" {
		stmt = stmt.Where("tax_type = ?", filter.TaxType)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}

	if err := stmt.Order("name asc").Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, rule *taxdomain.TaxRule) error {
	return db.WithContext(ctx).Exec(
		`UPDATE taxes
		 SET name = ?, tax_type = ?, rate = ?, description = ?, is_active = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		rule.Name,
		rule.TaxType,
		rule.Rate,
		rule.Description,
		rule.IsActive,
		rule.UpdatedAt,
		rule.OrgID,
		rule.ID,
	).Error
}

func (r *repository) Attach(ctx context.Context, db *gorm.DB, link *taxdomain.ProductTax) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(link).Error
}

func (r *repository) Detach(ctx context.Context, db *gorm.DB, orgID, productID, taxID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM product_taxes WHERE org_id = ? AND product_id = ? AND tax_id = ?`,
		orgID,
		productID,
		taxID,
	)
	return result.RowsAffected, result.Error
}

func (r *repository) ListForProduct(ctx context.Context, db *gorm.DB, orgID, productID snowflake.ID) ([]taxdomain.TaxRule, error) {
	var items []taxdomain.TaxRule
	err := db.WithContext(ctx).Raw(
		`SELECT t.id, t.org_id, t.name, t.tax_type, t.rate, t.description, t.is_active, t.created_at, t.updated_at
		 FROM taxes t
		 JOIN product_taxes pt ON pt.tax_id = t.id
		 WHERE pt.org_id = ? AND pt.product_id = ?
		 ORDER BY t.id ASC`,
		orgID,
		productID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

type productTaxRow struct {
	ProductID   snowflake.ID
	ID          snowflake.ID
	OrgID       snowflake.ID
	Name        string
	TaxType     money.RateType
	Rate        decimal.Decimal
	Description *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r *repository) ListActiveForProducts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, productIDs []snowflake.ID) (map[snowflake.ID][]taxdomain.TaxRule, error) {
	out := make(map[snowflake.ID][]taxdomain.TaxRule, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var rows []productTaxRow
	err := db.WithContext(ctx).Raw(
		`SELECT pt.product_id, t.id, t.org_id, t.name, t.tax_type, t.rate, t.description, t.is_active, t.created_at, t.updated_at
		 FROM taxes t
		 JOIN product_taxes pt ON pt.tax_id = t.id
		 WHERE pt.org_id = ? AND pt.product_id IN ? AND t.is_active = ?
		 ORDER BY pt.product_id ASC, t.id ASC`,
		orgID,
		productIDs,
		true,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.ProductID] = append(out[row.ProductID], taxdomain.TaxRule{
			ID:          row.ID,
			OrgID:       row.OrgID,
			Name:        row.Name,
			TaxType:     row.TaxType,
			Rate:        row.Rate,
			Description: row.Description,
			IsActive:    row.IsActive,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return out, nil
}
