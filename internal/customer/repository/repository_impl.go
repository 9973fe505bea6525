package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, org_id, name, email, phone, currency, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.OrgID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Currency,
		customer.Metadata,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, phone, currency, metadata, created_at, updated_at
		 FROM customers WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListCustomerFilter) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("org_id = ?", orgID)
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	if filter.Currency != "" {
		stmt = stmt.Where("currency = ?", filter.Currency)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}
	if filter.AfterID > 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	err := stmt.
		Order("id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) StatementTotals(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, openStatuses []string, overdueStatus string, asOf time.Time) (domain.StatementTotals, error) {
	var row struct {
		OpenInvoices int64
		Outstanding  decimal.NullDecimal
		Overdue      decimal.NullDecimal
		TotalPaid    decimal.NullDecimal
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END), 0) AS open_invoices,
			SUM(CASE WHEN status IN ? THEN total - amount_paid ELSE 0 END) AS outstanding,
			SUM(CASE WHEN status IN ? AND (status = ? OR due_date < ?) THEN total - amount_paid ELSE 0 END) AS overdue,
			SUM(amount_paid) AS total_paid
		 FROM invoices
		 WHERE org_id = ? AND customer_id = ?`,
		openStatuses,
		openStatuses,
		openStatuses, overdueStatus, asOf,
		orgID,
		customerID,
	).Scan(&row).Error
	if err != nil {
		return domain.StatementTotals{}, err
	}

	return domain.StatementTotals{
		OpenInvoices: row.OpenInvoices,
		Outstanding:  row.Outstanding.Decimal,
		Overdue:      row.Overdue.Decimal,
		TotalPaid:    row.TotalPaid.Decimal,
	}, nil
}
