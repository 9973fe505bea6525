package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListCustomerFilter) ([]*Customer, error)
	// StatementTotals sums invoices of the customer. openStatuses are the statuses that still expect money
	// and overdueStatus is the stored overdue marker; invoices due before asOf also count as overdue.
	StatementTotals(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, openStatuses []string, overdueStatus string, asOf time.Time) (StatementTotals, error)
}
