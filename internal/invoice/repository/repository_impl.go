package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const invoiceColumns = `id, org_id, invoice_number, customer_id, subscription_id, quotation_id, status, currency,
	issue_date, due_date, sent_at, paid_at, cancelled_at, refunded_at, notes, subtotal, discount_amount, tax, total,
	amount_paid, discount_id, discount_code, metadata, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (`+invoiceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.OrgID,
		invoice.InvoiceNumber,
		invoice.CustomerID,
		invoice.SubscriptionID,
		invoice.QuotationID,
		invoice.Status,
		invoice.Currency,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.SentAt,
		invoice.PaidAt,
		invoice.CancelledAt,
		invoice.RefundedAt,
		invoice.Notes,
		invoice.Subtotal,
		invoice.DiscountAmount,
		invoice.Tax,
		invoice.Total,
		invoice.AmountPaid,
		invoice.DiscountID,
		invoice.DiscountCode,
		invoice.Metadata,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET due_date = ?, notes = ?, subtotal = ?, discount_amount = ?, tax = ?, total = ?,
		 discount_id = ?, discount_code = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		invoice.DueDate,
		invoice.Notes,
		invoice.Subtotal,
		invoice.DiscountAmount,
		invoice.Tax,
		invoice.Total,
		invoice.DiscountID,
		invoice.DiscountCode,
		invoice.UpdatedAt,
		invoice.OrgID,
		invoice.ID,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, invoice *domain.Invoice, from document.Status) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, sent_at = ?, cancelled_at = ?, refunded_at = ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND status = ?`,
		invoice.Status,
		invoice.SentAt,
		invoice.CancelledAt,
		invoice.RefundedAt,
		invoice.UpdatedAt,
		invoice.OrgID,
		invoice.ID,
		from,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("org_id = ?", orgID)
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.SubscriptionID != nil {
		stmt = stmt.Where("subscription_id = ?", *filter.SubscriptionID)
	}
	switch {
	case filter.Status == document.InvoiceOverdue:
		stmt = stmt.Where(overdueClause(filter.Now))
	case filter.Status != "":
		stmt = stmt.Where("status = ?", filter.Status).
			Where("(status IN ? OR due_date >= ?)", settled(), filter.Now)
	}
	if filter.AfterID > 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Order("id DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListOverdue(ctx context.Context, db *gorm.DB, orgID snowflake.ID, now time.Time) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("org_id = ?", orgID).
		Where(overdueClause(now)).
		Order("due_date ASC, id ASC").
		Find(&invoices).Error
	return invoices, err
}

// overdueClause matches a stored OVERDUE, or an unsettled invoice whose due date has passed.
func overdueClause(now time.Time) clause.Expr {
	return gorm.Expr(
		"(status = ? OR (status NOT IN ? AND due_date < ?))",
		document.InvoiceOverdue,
		settled(),
		now,
	)
}

func settled() []document.Status {
	return []document.Status{document.InvoicePaid, document.InvoiceCancelled}
}

func (r *repo) ReplaceItemTaxes(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, taxes []domain.InvoiceItemTax) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM invoice_item_taxes WHERE org_id = ? AND invoice_id = ?`,
		orgID,
		invoiceID,
	).Error; err != nil {
		return err
	}
	if len(taxes) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&taxes).Error
}

func (r *repo) ListItemTaxes(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]domain.InvoiceItemTax, error) {
	var taxes []domain.InvoiceItemTax
	err := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ?", orgID, invoiceID).
		Order("invoice_item_id ASC, id ASC").
		Find(&taxes).Error
	return taxes, err
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]domain.PaymentSummary, error) {
	var payments []domain.PaymentSummary
	err := db.WithContext(ctx).Raw(
		`SELECT id, payment_number, amount, method, status, reference, paid_at
		 FROM payments
		 WHERE org_id = ? AND invoice_id = ?
		 ORDER BY paid_at DESC, id DESC`,
		orgID,
		invoiceID,
	).Scan(&payments).Error
	return payments, err
}

func (r *repo) UpdatePaymentState(ctx context.Context, db *gorm.DB, invoice *domain.Invoice, next domain.PaymentState, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET amount_paid = ?, status = ?, paid_at = ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND status = ? AND amount_paid = ?`,
		next.AmountPaid,
		next.Status,
		next.PaidAt,
		now,
		invoice.OrgID,
		invoice.ID,
		invoice.Status,
		invoice.AmountPaid,
	)
	return result.RowsAffected, result.Error
}
