package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	InvoiceID  *snowflake.ID
	CustomerID *snowflake.ID
	Status     Status
	Method     Method
	AfterID    int64
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	// UpdateStatus writes status, notes and lifecycle timestamps only while the row still holds from.
	UpdateStatus(ctx context.Context, db *gorm.DB, payment *Payment, from Status) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Payment, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]Payment, error)
	// Delete removes the payment unless it is COMPLETED.
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
}
