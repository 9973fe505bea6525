package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, discount *Discount) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Discount, error)
	// FindByCode matches code case-insensitively, falling back to the name for records without a code.
	FindByCode(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code string) (*Discount, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]Discount, error)
	Deactivate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, at time.Time) (int64, error)
	// IncrementUsage bumps used_count by one unless the limit is reached. It returns the rows updated.
	IncrementUsage(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, at time.Time) (int64, error)
}

type ListFilter struct {
	IsActive  *bool
	AppliesTo AppliesTo
	AfterID   int64
	Limit     int
}
