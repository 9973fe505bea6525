package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/product/domain"
	"github.com/smallbiznis/billingcore/internal/product/repository"
	"github.com/smallbiznis/billingcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	return New(Params{
		DB:    testutil.NewDB(t),
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: clock.SystemClock{},
		Repo:  repository.Provide(),
	})
}

func TestCreateProductWithVariants(t *testing.T) {
	svc := newTestService(t)
	ctx := testutil.OrgContext(1)

	product, err := svc.Create(ctx, domain.CreateRequest{
		Name:        "T-Shirt",
		ProductType: "goods",
		SalesPrice:  decimal.RequireFromString("49.90"),
	})
	require.NoError(t, err)
	assert.True(t, product.Active)
	assert.True(t, product.CostPrice.IsZero())

	variant, err := svc.CreateVariant(ctx, domain.CreateVariantRequest{
		ProductID:  product.ID,
		Attribute:  "Size",
		Value:      "XL",
		ExtraPrice: decimal.RequireFromString("5"),
	})
	require.NoError(t, err)
	assert.Equal(t, product.ID, variant.ProductID)

	got, err := svc.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("49.9").Equal(got.SalesPrice))
	require.Len(t, got.Variants, 1)
	assert.Equal(t, "XL", got.Variants[0].Value)

	_, err = svc.Get(testutil.OrgContext(2), product.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := testutil.OrgContext(1)

	t.Run("missing name", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateRequest{SalesPrice: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, domain.ErrInvalidName)
	})
	t.Run("negative price", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateRequest{Name: "A", SalesPrice: decimal.NewFromInt(-1)})
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	})
	t.Run("price finer than cents", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateRequest{Name: "A", SalesPrice: decimal.RequireFromString("0.333")})
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	})
	t.Run("variant for unknown product", func(t *testing.T) {
		_, err := svc.CreateVariant(ctx, domain.CreateVariantRequest{ProductID: "12345", Attribute: "Size", Value: "S"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
	t.Run("variant without attribute", func(t *testing.T) {
		_, err := svc.CreateVariant(ctx, domain.CreateVariantRequest{ProductID: "12345", Value: "S"})
		assert.ErrorIs(t, err, domain.ErrInvalidAttribute)
	})
}

func TestPlans(t *testing.T) {
	svc := newTestService(t)
	ctx := testutil.OrgContext(1)

	monthly, err := svc.CreatePlan(ctx, domain.CreatePlanRequest{Name: "Basic", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, domain.BillingPeriodMonthly, monthly.BillingPeriod)

	_, err = svc.CreatePlan(ctx, domain.CreatePlanRequest{Name: "Annual", Price: decimal.NewFromInt(100), BillingPeriod: "Yearly"})
	require.NoError(t, err)

	_, err = svc.CreatePlan(ctx, domain.CreatePlanRequest{Name: "Bad", BillingPeriod: "fortnightly"})
	assert.ErrorIs(t, err, domain.ErrInvalidBillingPeriod)

	plans, err := svc.ListPlans(ctx, domain.ListPlanRequest{})
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Annual", plans[0].Name)

	yearly, err := svc.ListPlans(ctx, domain.ListPlanRequest{BillingPeriod: "yearly"})
	require.NoError(t, err)
	assert.Len(t, yearly, 1)

	got, err := svc.GetPlan(ctx, monthly.ID)
	require.NoError(t, err)
	assert.Equal(t, "Basic", got.Name)
}

func TestListProductsFiltersByName(t *testing.T) {
	svc := newTestService(t)
	ctx := testutil.OrgContext(1)
	for _, name := range []string{"Coffee Beans", "Coffee Mug", "Tea"} {
		_, err := svc.Create(ctx, domain.CreateRequest{Name: name, SalesPrice: decimal.NewFromInt(3)})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, domain.ListRequest{Name: "coffee"})
	require.NoError(t, err)
	assert.Len(t, resp.Products, 2)
	assert.False(t, resp.HasMore)
}
