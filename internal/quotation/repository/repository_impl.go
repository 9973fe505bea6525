package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/quotation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const quotationColumns = `id, org_id, quotation_number, customer_id, subscription_id, template_id, status, issue_date,
	valid_until, sent_at, responded_at, notes, terms, subtotal, discount_amount, tax, total, discount_id,
	discount_code, metadata, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, quotation *domain.Quotation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO quotations (`+quotationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quotation.ID,
		quotation.OrgID,
		quotation.QuotationNumber,
		quotation.CustomerID,
		quotation.SubscriptionID,
		quotation.TemplateID,
		quotation.Status,
		quotation.IssueDate,
		quotation.ValidUntil,
		quotation.SentAt,
		quotation.RespondedAt,
		quotation.Notes,
		quotation.Terms,
		quotation.Subtotal,
		quotation.DiscountAmount,
		quotation.Tax,
		quotation.Total,
		quotation.DiscountID,
		quotation.DiscountCode,
		quotation.Metadata,
		quotation.CreatedAt,
		quotation.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, quotation *domain.Quotation) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quotations
		 SET valid_until = ?, notes = ?, terms = ?, subtotal = ?, discount_amount = ?, tax = ?, total = ?,
		 discount_id = ?, discount_code = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		quotation.ValidUntil,
		quotation.Notes,
		quotation.Terms,
		quotation.Subtotal,
		quotation.DiscountAmount,
		quotation.Tax,
		quotation.Total,
		quotation.DiscountID,
		quotation.DiscountCode,
		quotation.UpdatedAt,
		quotation.OrgID,
		quotation.ID,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, quotation *domain.Quotation, from document.Status) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE quotations
		 SET status = ?, sent_at = ?, responded_at = ?, notes = ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND status = ?`,
		quotation.Status,
		quotation.SentAt,
		quotation.RespondedAt,
		quotation.Notes,
		quotation.UpdatedAt,
		quotation.OrgID,
		quotation.ID,
		from,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := db.WithContext(ctx).Raw(
		`SELECT `+quotationColumns+` FROM quotations WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&quotation).Error
	if err != nil {
		return nil, err
	}
	if quotation.ID == 0 {
		return nil, nil
	}
	return &quotation, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Quotation, error) {
	var quotations []domain.Quotation
	stmt := db.WithContext(ctx).
		Model(&domain.Quotation{}).
		Where("org_id = ?", orgID)
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.SubscriptionID != nil {
		stmt = stmt.Where("subscription_id = ?", *filter.SubscriptionID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.AfterID > 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Order("id DESC").Find(&quotations).Error; err != nil {
		return nil, err
	}
	return quotations, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM quotation_items WHERE org_id = ? AND document_id = ?`,
		orgID,
		id,
	).Error; err != nil {
		return 0, err
	}
	result := db.WithContext(ctx).Exec(
		`DELETE FROM quotations WHERE org_id = ? AND id = ? AND status <> ?`,
		orgID,
		id,
		document.QuotationAccepted,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ListStale(ctx context.Context, db *gorm.DB, orgID snowflake.ID, now time.Time) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM quotations WHERE org_id = ? AND status = ? AND valid_until < ? ORDER BY id ASC`,
		orgID,
		document.QuotationSent,
		now,
	).Scan(&ids).Error
	return ids, err
}

func (r *repo) ExpireStale(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE quotations SET status = ?, updated_at = ?
		 WHERE org_id = ? AND id IN ? AND status = ? AND valid_until < ?`,
		document.QuotationExpired,
		now,
		orgID,
		ids,
		document.QuotationSent,
		now,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) StaleOrgIDs(ctx context.Context, db *gorm.DB, now time.Time) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT org_id FROM quotations WHERE status = ? AND valid_until < ? ORDER BY org_id ASC`,
		document.QuotationSent,
		now,
	).Scan(&ids).Error
	return ids, err
}
