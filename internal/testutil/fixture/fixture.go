// Package fixture seeds catalog rows and wires document dependencies for service tests.
package fixture

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/config"
	customerdomain "github.com/smallbiznis/billingcore/internal/customer/domain"
	customerrepo "github.com/smallbiznis/billingcore/internal/customer/repository"
	discountdomain "github.com/smallbiznis/billingcore/internal/discount/domain"
	discountrepo "github.com/smallbiznis/billingcore/internal/discount/repository"
	discountservice "github.com/smallbiznis/billingcore/internal/discount/service"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/money"
	productdomain "github.com/smallbiznis/billingcore/internal/product/domain"
	productrepo "github.com/smallbiznis/billingcore/internal/product/repository"
	sequencedomain "github.com/smallbiznis/billingcore/internal/sequence/domain"
	sequenceservice "github.com/smallbiznis/billingcore/internal/sequence/service"
	taxdomain "github.com/smallbiznis/billingcore/internal/tax/domain"
	taxrepo "github.com/smallbiznis/billingcore/internal/tax/repository"
	taxservice "github.com/smallbiznis/billingcore/internal/tax/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Seeder struct {
	DB        *gorm.DB
	Node      *snowflake.Node
	OrgID     snowflake.ID
	Products  productdomain.Repository
	Taxes     taxdomain.Repository
	Customers customerdomain.Repository
}

func NewSeeder(db *gorm.DB, node *snowflake.Node, orgID int64) *Seeder {
	return &Seeder{
		DB:        db,
		Node:      node,
		OrgID:     snowflake.ID(orgID),
		Products:  productrepo.Provide(),
		Taxes:     taxrepo.NewRepository(),
		Customers: customerrepo.Provide(),
	}
}

func (s *Seeder) Product(t *testing.T, name, salesPrice string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	product := &productdomain.Product{
		ID:         s.Node.Generate(),
		OrgID:      s.OrgID,
		Name:       name,
		SalesPrice: decimal.RequireFromString(salesPrice),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Products.Insert(context.Background(), s.DB, product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func (s *Seeder) Variant(t *testing.T, productID snowflake.ID, attribute, value, extraPrice string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	variant := &productdomain.Variant{
		ID:         s.Node.Generate(),
		OrgID:      s.OrgID,
		ProductID:  productID,
		Attribute:  attribute,
		Value:      value,
		ExtraPrice: decimal.RequireFromString(extraPrice),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Products.InsertVariant(context.Background(), s.DB, variant); err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant.ID
}

// Tax creates an active rule and attaches it to every given product.
func (s *Seeder) Tax(t *testing.T, name string, kind money.RateType, rate string, productIDs ...snowflake.ID) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	rule := &taxdomain.TaxRule{
		ID:        s.Node.Generate(),
		OrgID:     s.OrgID,
		Name:      name,
		TaxType:   kind,
		Rate:      decimal.RequireFromString(rate),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ctx := context.Background()
	if err := s.Taxes.Create(ctx, s.DB, rule); err != nil {
		t.Fatalf("seed tax: %v", err)
	}
	for _, productID := range productIDs {
		if err := s.Taxes.Attach(ctx, s.DB, &taxdomain.ProductTax{ProductID: productID, TaxID: rule.ID, OrgID: s.OrgID, CreatedAt: now}); err != nil {
			t.Fatalf("attach tax: %v", err)
		}
	}
	return rule.ID
}

// Pricer wires a pricer over the seeded catalog.
func (s *Seeder) Pricer(clk clock.Clock) *document.Pricer {
	return document.NewPricer(document.PricerParams{
		GenID:       s.Node,
		Clock:       clk,
		ProductRepo: s.Products,
		TaxResolver: taxservice.NewResolver(taxservice.ResolverParams{DB: s.DB, Repository: s.Taxes}),
	})
}

func (s *Seeder) Customer(t *testing.T, name string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	customer := &customerdomain.Customer{
		ID:        s.Node.Generate(),
		OrgID:     s.OrgID,
		Name:      name,
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Customers.Insert(context.Background(), s.DB, customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer.ID
}

func (s *Seeder) Plan(t *testing.T, name, price string, period productdomain.BillingPeriod) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	plan := &productdomain.Plan{
		ID:            s.Node.Generate(),
		OrgID:         s.OrgID,
		Name:          name,
		Price:         decimal.RequireFromString(price),
		BillingPeriod: period,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Products.InsertPlan(context.Background(), s.DB, plan); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan.ID
}

func (s *Seeder) Sequence(clk clock.Clock) sequencedomain.Service {
	return sequenceservice.NewService(sequenceservice.Params{
		DB:     s.DB,
		Log:    zap.NewNop(),
		Clock:  clk,
		Policy: config.NewStaticBillingPolicy(config.DefaultBillingPolicy()),
	})
}

func (s *Seeder) Discounts(clk clock.Clock) discountdomain.Service {
	return discountservice.NewService(discountservice.Params{
		DB:    s.DB,
		Log:   zap.NewNop(),
		GenID: s.Node,
		Clock: clk,
		Repo:  discountrepo.Provide(),
	})
}

// Discount stores an active code-bearing discount valid for every document.
func (s *Seeder) Discount(t *testing.T, code string, kind money.RateType, value string, limit *int64) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	upper := strings.ToUpper(code)
	discount := &discountdomain.Discount{
		ID:           s.Node.Generate(),
		OrgID:        s.OrgID,
		Name:         code,
		Code:         &upper,
		DiscountType: kind,
		Value:        decimal.RequireFromString(value),
		LimitUsage:   limit,
		AppliesTo:    discountdomain.AppliesToAll,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := discountrepo.Provide().Insert(context.Background(), s.DB, discount); err != nil {
		t.Fatalf("seed discount: %v", err)
	}
	return discount.ID
}
