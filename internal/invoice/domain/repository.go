package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/document"
	"gorm.io/gorm"
)

type ListFilter struct {
	CustomerID     *snowflake.ID
	SubscriptionID *snowflake.ID
	Status         document.Status
	// Now evaluates the OVERDUE view when Status is OVERDUE.
	Now     time.Time
	AfterID int64
	Limit   int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	// UpdateStatus writes status and lifecycle timestamps only while the row still holds from.
	UpdateStatus(ctx context.Context, db *gorm.DB, invoice *Invoice, from document.Status) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]Invoice, error)
	ListOverdue(ctx context.Context, db *gorm.DB, orgID snowflake.ID, now time.Time) ([]Invoice, error)

	ReplaceItemTaxes(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, taxes []InvoiceItemTax) error
	ListItemTaxes(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]InvoiceItemTax, error)
	ListPayments(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]PaymentSummary, error)

	// UpdatePaymentState writes absolute settlement values only while the row still holds the
	// amount_paid and status it was read with. Zero rows means another writer got there first.
	UpdatePaymentState(ctx context.Context, db *gorm.DB, invoice *Invoice, next PaymentState, now time.Time) (int64, error)
}
