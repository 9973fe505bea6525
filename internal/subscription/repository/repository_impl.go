package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const subscriptionColumns = `id, org_id, subscription_number, customer_id, plan_id, status, start_date, end_date,
	next_invoice_date, payment_term_days, notes, subtotal, discount_amount, tax, total, discount_id, discount_code,
	confirmed_at, activated_at, ended_at, metadata, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (`+subscriptionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.OrgID,
		subscription.SubscriptionNumber,
		subscription.CustomerID,
		subscription.PlanID,
		subscription.Status,
		subscription.StartDate,
		subscription.EndDate,
		subscription.NextInvoiceDate,
		subscription.PaymentTermDays,
		subscription.Notes,
		subscription.Subtotal,
		subscription.DiscountAmount,
		subscription.Tax,
		subscription.Total,
		subscription.DiscountID,
		subscription.DiscountCode,
		subscription.ConfirmedAt,
		subscription.ActivatedAt,
		subscription.EndedAt,
		subscription.Metadata,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET end_date = ?, next_invoice_date = ?, payment_term_days = ?, notes = ?, subtotal = ?,
		 discount_amount = ?, tax = ?, total = ?, discount_id = ?, discount_code = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		subscription.EndDate,
		subscription.NextInvoiceDate,
		subscription.PaymentTermDays,
		subscription.Notes,
		subscription.Subtotal,
		subscription.DiscountAmount,
		subscription.Tax,
		subscription.Total,
		subscription.DiscountID,
		subscription.DiscountCode,
		subscription.UpdatedAt,
		subscription.OrgID,
		subscription.ID,
	).Error
}

// UpdateStatus writes the new status only while the row still holds from.
func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, subscription *domain.Subscription, from document.Status) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, confirmed_at = ?, activated_at = ?, ended_at = ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND status = ?`,
		subscription.Status,
		subscription.ConfirmedAt,
		subscription.ActivatedAt,
		subscription.EndedAt,
		subscription.UpdatedAt,
		subscription.OrgID,
		subscription.ID,
		from,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

// FindByIDForUpdate row-locks the subscription on postgres. SQLite has no row locks and ignores the clause.
func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Subscription, error) {
	var subscriptions []domain.Subscription
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	if len(subscriptions) == 0 {
		return nil, nil
	}
	return &subscriptions[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Subscription, error) {
	var subscriptions []domain.Subscription
	stmt := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("org_id = ?", orgID)
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.PlanID != nil {
		stmt = stmt.Where("plan_id = ?", *filter.PlanID)
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

	if err := stmt.Order("id DESC").Find(&subscriptions).Error; err != nil {
		return nil, err
	}
	return subscriptions, nil
}
