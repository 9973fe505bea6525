package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/quotationtemplate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tmpl *domain.QuotationTemplate, items []domain.TemplateItem) error {
	if err := db.WithContext(ctx).Exec(
		`INSERT INTO quotation_templates (
			id, org_id, name, validity_days, is_default, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tmpl.ID,
		tmpl.OrgID,
		tmpl.Name,
		tmpl.ValidityDays,
		tmpl.IsDefault,
		tmpl.Notes,
		tmpl.CreatedAt,
		tmpl.UpdatedAt,
	).Error; err != nil {
		return err
	}

	for _, item := range items {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO quotation_template_items (
				id, org_id, template_id, position, product_id, variant_id, description, quantity, unit_price, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.OrgID,
			item.TemplateID,
			item.Position,
			item.ProductID,
			item.VariantID,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.CreatedAt,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.QuotationTemplate, error) {
	var tmpl domain.QuotationTemplate
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, validity_days, is_default, notes, created_at, updated_at
		 FROM quotation_templates
		 WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&tmpl).Error
	if err != nil {
		return nil, err
	}
	if tmpl.ID == 0 {
		return nil, nil
	}
	return &tmpl, nil
}

func (r *repo) FindDefault(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*domain.QuotationTemplate, error) {
	var tmpl domain.QuotationTemplate
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, validity_days, is_default, notes, created_at, updated_at
		 FROM quotation_templates
		 WHERE org_id = ? AND is_default = ?
		 LIMIT 1`,
		orgID,
		true,
	).Scan(&tmpl).Error
	if err != nil {
		return nil, err
	}
	if tmpl.ID == 0 {
		return nil, nil
	}
	return &tmpl, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orgID, templateID snowflake.ID) ([]domain.TemplateItem, error) {
	var items []domain.TemplateItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, template_id, position, product_id, variant_id, description, quantity, unit_price, created_at
		 FROM quotation_template_items
		 WHERE org_id = ? AND template_id = ?
		 ORDER BY position ASC`,
		orgID,
		templateID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListRequest) ([]domain.QuotationTemplate, error) {
	var items []domain.QuotationTemplate
	stmt := db.WithContext(ctx).Model(&domain.QuotationTemplate{}).Where("org_id = ?", orgID)

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.IsDefault != nil {
		stmt = stmt.Where("is_default = ?", *filter.IsDefault)
	}

	if err := stmt.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetDefault(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE quotation_templates SET is_default = ? WHERE org_id = ? AND id = ?`,
		true,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UnsetDefault(ctx context.Context, db *gorm.DB, orgID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quotation_templates SET is_default = ? WHERE org_id = ? AND is_default = ?`,
		false,
		orgID,
		true,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM quotation_template_items WHERE org_id = ? AND template_id = ?`,
		orgID,
		id,
	).Error; err != nil {
		return 0, err
	}
	result := db.WithContext(ctx).Exec(
		`DELETE FROM quotation_templates WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}
