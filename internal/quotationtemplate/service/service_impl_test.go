package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/quotationtemplate/domain"
	"github.com/smallbiznis/billingcore/internal/quotationtemplate/repository"
	"github.com/smallbiznis/billingcore/internal/testutil"
	"github.com/smallbiznis/billingcore/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *fixture.Seeder) {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	seed := fixture.NewSeeder(db, node, 1)
	svc := NewService(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.SystemClock{},
		Repo:   repository.Provide(),
		Pricer: seed.Pricer(clock.SystemClock{}),
	})
	return svc, seed
}

func TestCreateTemplateKeepsItemsUnpriced(t *testing.T) {
	svc, seed := newTestService(t)
	ctx := testutil.OrgContext(1)
	product := seed.Product(t, "Hosting", "15")
	fee := decimal.RequireFromString("99")

	created, err := svc.Create(ctx, domain.CreateRequest{
		Name:         "Starter",
		ValidityDays: 14,
		Items: []document.ItemInput{
			{ProductID: product.String(), Quantity: 12},
			{Description: "Onboarding", Quantity: 1, UnitPrice: &fee},
		},
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 14, got.ValidityDays)
	require.Len(t, got.Items, 2)
	assert.Equal(t, product.String(), got.Items[0].ProductID)
	assert.Nil(t, got.Items[0].UnitPrice)
	assert.Equal(t, int64(12), got.Items[0].Quantity)
	require.NotNil(t, got.Items[1].UnitPrice)
	assert.True(t, fee.Equal(*got.Items[1].UnitPrice))
}

func TestCreateTemplateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.OrgContext(1)

	_, err := svc.Create(ctx, domain.CreateRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "A", ValidityDays: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidValidity)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "A", Items: []document.ItemInput{{ProductID: "42", Quantity: 1}}})
	assert.ErrorIs(t, err, document.ErrProductNotFound)

	list, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOneDefaultPerOrganization(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.OrgContext(1)

	first, err := svc.Create(ctx, domain.CreateRequest{Name: "First", IsDefault: true})
	require.NoError(t, err)
	second, err := svc.Create(ctx, domain.CreateRequest{Name: "Second", IsDefault: true})
	require.NoError(t, err)

	def, err := svc.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	_, err = svc.SetDefault(ctx, first.ID)
	require.NoError(t, err)

	isDefault := true
	defaults, err := svc.List(ctx, domain.ListRequest{IsDefault: &isDefault})
	require.NoError(t, err)
	require.Len(t, defaults, 1)
	assert.Equal(t, first.ID, defaults[0].ID)
}

func TestDeleteTemplate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.OrgContext(1)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Temp"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(testutil.OrgContext(2), created.ID), domain.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "nope"), domain.ErrInvalidID)
}
