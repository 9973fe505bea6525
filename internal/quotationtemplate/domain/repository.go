package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tmpl *QuotationTemplate, items []TemplateItem) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*QuotationTemplate, error)
	FindDefault(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*QuotationTemplate, error)
	ListItems(ctx context.Context, db *gorm.DB, orgID, templateID snowflake.ID) ([]TemplateItem, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListRequest) ([]QuotationTemplate, error)
	SetDefault(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
	UnsetDefault(ctx context.Context, db *gorm.DB, orgID snowflake.ID) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
}
