package document

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/money"
	productdomain "github.com/smallbiznis/billingcore/internal/product/domain"
	taxdomain "github.com/smallbiznis/billingcore/internal/tax/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type PricerParams struct {
	fx.In

	GenID       *snowflake.Node
	Clock       clock.Clock
	ProductRepo productdomain.Repository
	TaxResolver taxdomain.TaxResolver
}

// Pricer turns item inputs into priced line items using catalog prices and product taxes.
type Pricer struct {
	genID       *snowflake.Node
	clock       clock.Clock
	productRepo productdomain.Repository
	taxResolver taxdomain.TaxResolver
}

func NewPricer(p PricerParams) *Pricer {
	return &Pricer{
		genID:       p.GenID,
		clock:       p.Clock,
		productRepo: p.ProductRepo,
		taxResolver: p.TaxResolver,
	}
}

type parsedInput struct {
	productID *snowflake.ID
	variantID *snowflake.ID
	input     ItemInput
}

// Price reads products, variants and taxes through tx and prices every line.
// Nothing is written; the caller persists the result with ReplaceItems.
func (p *Pricer) Price(ctx context.Context, tx *gorm.DB, orgID, documentID snowflake.ID, inputs []ItemInput) ([]LineItem, error) {
	parsed := make([]parsedInput, 0, len(inputs))
	for _, input := range inputs {
		item, err := parseInput(input)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, item)
	}

	productIDs := lo.Uniq(lo.FilterMap(parsed, func(item parsedInput, _ int) (snowflake.ID, bool) {
		return lo.FromPtr(item.productID), item.productID != nil
	}))
	variantIDs := lo.Uniq(lo.FilterMap(parsed, func(item parsedInput, _ int) (snowflake.ID, bool) {
		return lo.FromPtr(item.variantID), item.variantID != nil
	}))

	products, err := p.productRepo.FindByIDs(ctx, tx, orgID, productIDs)
	if err != nil {
		return nil, err
	}
	productByID := lo.KeyBy(products, func(item productdomain.Product) snowflake.ID { return item.ID })

	variants, err := p.productRepo.FindVariantsByIDs(ctx, tx, orgID, variantIDs)
	if err != nil {
		return nil, err
	}
	variantByID := lo.KeyBy(variants, func(item productdomain.Variant) snowflake.ID { return item.ID })

	rules, err := p.taxResolver.RulesForProducts(ctx, tx, orgID, productIDs)
	if err != nil {
		return nil, err
	}

	now := p.clock.Now().UTC()
	lines := make([]LineItem, 0, len(parsed))
	for i, item := range parsed {
		var (
			product *productdomain.Product
			variant *productdomain.Variant
		)
		if item.productID != nil {
			found, ok := productByID[*item.productID]
			if !ok {
				return nil, ErrProductNotFound
			}
			product = &found
		}
		if item.variantID != nil {
			found, ok := variantByID[*item.variantID]
			if !ok {
				return nil, ErrVariantNotFound
			}
			if product == nil || found.ProductID != product.ID {
				return nil, ErrVariantMismatch
			}
			variant = &found
		}

		unitPrice, err := resolveUnitPrice(item.input, product, variant)
		if err != nil {
			return nil, err
		}
		description := resolveDescription(item.input, product, variant)
		if description == "" {
			return nil, ErrInvalidDescription
		}

		var lineRules []money.TaxRule
		if product != nil {
			lineRules = rules[product.ID]
		}
		priced := money.PriceLine(item.input.Quantity, unitPrice, lineRules)

		lines = append(lines, LineItem{
			ID:          p.genID.Generate(),
			OrgID:       orgID,
			DocumentID:  documentID,
			Position:    i + 1,
			ProductID:   item.productID,
			VariantID:   item.variantID,
			Description: description,
			Quantity:    item.input.Quantity,
			UnitPrice:   unitPrice,
			Tax:         priced.Tax,
			Amount:      priced.Amount,
			CreatedAt:   now,
			Taxes:       priced.Taxes,
		})
	}
	return lines, nil
}

func parseInput(input ItemInput) (parsedInput, error) {
	if input.Quantity < 1 {
		return parsedInput{}, ErrInvalidQuantity
	}
	if input.UnitPrice != nil && (input.UnitPrice.IsNegative() || !money.Representable(*input.UnitPrice)) {
		return parsedInput{}, ErrInvalidUnitPrice
	}

	out := parsedInput{input: input}
	if raw := strings.TrimSpace(input.ProductID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return parsedInput{}, ErrInvalidItemID
		}
		out.productID = &id
	}
	if raw := strings.TrimSpace(input.VariantID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return parsedInput{}, ErrInvalidItemID
		}
		out.variantID = &id
	}
	if out.productID == nil {
		if out.variantID != nil {
			return parsedInput{}, ErrVariantMismatch
		}
		if input.UnitPrice == nil {
			return parsedInput{}, ErrInvalidUnitPrice
		}
	}
	return out, nil
}

func resolveUnitPrice(input ItemInput, product *productdomain.Product, variant *productdomain.Variant) (decimal.Decimal, error) {
	if input.UnitPrice != nil {
		return *input.UnitPrice, nil
	}
	if product == nil {
		return decimal.Zero, ErrInvalidUnitPrice
	}
	price := product.SalesPrice
	if variant != nil {
		price = price.Add(variant.ExtraPrice)
	}
	return money.Round(price), nil
}

func resolveDescription(input ItemInput, product *productdomain.Product, variant *productdomain.Variant) string {
	if description := strings.TrimSpace(input.Description); description != "" {
		return description
	}
	if product == nil {
		return ""
	}
	if variant != nil {
		return product.Name + " (" + variant.Attribute + ": " + variant.Value + ")"
	}
	return product.Name
}
