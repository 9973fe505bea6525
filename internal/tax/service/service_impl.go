package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/money"
	taxdomain "github.com/smallbiznis/billingcore/internal/tax/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type ResolverParams struct {
	fx.In

	DB         *gorm.DB
	Repository taxdomain.Repository
}

type resolver struct {
	db   *gorm.DB
	repo taxdomain.Repository
}

func NewResolver(p ResolverParams) taxdomain.TaxResolver {
	return &resolver{db: p.DB, repo: p.Repository}
}

// RulesForProducts reads inside tx when given, so pricing sees the same snapshot as the document write.
func (r *resolver) RulesForProducts(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, productIDs []snowflake.ID) (map[snowflake.ID][]money.TaxRule, error) {
	if tx == nil {
		tx = r.db
	}

	stored, err := r.repo.ListActiveForProducts(ctx, tx, orgID, productIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[snowflake.ID][]money.TaxRule, len(stored))
	for productID, rules := range stored {
		converted := make([]money.TaxRule, 0, len(rules))
		for _, rule := range rules {
			converted = append(converted, rule.Rule())
		}
		out[productID] = converted
	}
	return out, nil
}
