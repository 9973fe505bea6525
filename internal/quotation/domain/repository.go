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
	AfterID        int64
	Limit          int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quotation *Quotation) error
	Update(ctx context.Context, db *gorm.DB, quotation *Quotation) error
	// UpdateStatus writes status and response timestamps only while the row still holds from.
	UpdateStatus(ctx context.Context, db *gorm.DB, quotation *Quotation, from document.Status) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Quotation, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]Quotation, error)
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
	ListStale(ctx context.Context, db *gorm.DB, orgID snowflake.ID, now time.Time) ([]snowflake.ID, error)
	ExpireStale(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID, now time.Time) (int64, error)
	StaleOrgIDs(ctx context.Context, db *gorm.DB, now time.Time) ([]snowflake.ID, error)
}
