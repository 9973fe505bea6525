package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/money"
	productdomain "github.com/smallbiznis/billingcore/internal/product/domain"
	"github.com/smallbiznis/billingcore/internal/subscription/domain"
	"github.com/smallbiznis/billingcore/internal/subscription/repository"
	"github.com/smallbiznis/billingcore/internal/testutil"
	"github.com/smallbiznis/billingcore/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *fixture.Seeder) {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	seed := fixture.NewSeeder(db, node, 1)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Repo:         repository.Provide(),
		CustomerRepo: seed.Customers,
		ProductRepo:  seed.Products,
		Sequence:     seed.Sequence(clk),
		Pricer:       seed.Pricer(clk),
		Items:        document.NewItemStore(),
		Discounts:    seed.Discounts(clk),
	}).(*Service)
	return svc, seed
}

func qty(productID string, n int64) document.ItemInput {
	return document.ItemInput{ProductID: productID, Quantity: n}
}

func TestCreateSubscription(t *testing.T) {
	svc, seed := newTestService(t)
	ctx := testutil.OrgContext(1)
	customer := seed.Customer(t, "Acme Corp")
	seats := seed.Product(t, "Seat", "50")
	seed.Tax(t, "VAT", money.Percentage, "10", seats)

	first, err := svc.Create(ctx, domain.CreateRequest{
		CustomerID: customer.String(),
		Items:      []document.ItemInput{qty(seats.String(), 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, "S-0001", first.SubscriptionNumber)
	assert.Equal(t, document.SubscriptionDraft, first.Status)
	assert.Equal(t, "100.00", first.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", first.Tax.StringFixed(2))
	assert.Equal(t, "110.00", first.Total.StringFixed(2))

	second, err := svc.Create(ctx, domain.CreateRequest{CustomerID: customer.String()})
	require.NoError(t, err)
	assert.Equal(t, "S-0002", second.SubscriptionNumber)
	assert.True(t, second.Total.IsZero())

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Seat", got.Items[0].Description)
}

func TestCreateSubscriptionFromPlan(t *testing.T) {
	svc, seed := newTestService(t)
	ctx := testutil.OrgContext(1)
	customer := seed.Customer(t, "Acme Corp")
	plan := seed.Plan(t, "Pro", "29.99", productdomain.BillingPeriodMonthly)

	created, err := svc.Create(ctx, domain.CreateRequest{CustomerID: customer.String(), PlanID: plan.String()})
	require.NoError(t, err)
	require.Len(t, created.Items, 1)
	assert.Equal(t, "Pro", created.Items[0].Description)
	assert.Equal(t, "29.99", created.Total.StringFixed(2))
	require.NotNil(t, created.NextInvoiceDate)
	assert.Equal(t, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), *created.NextInvoiceDate)
}

func TestCreateSubscriptionValidation(t *testing.T) {
	svc, seed := newTestService(t)
	ctx := testutil.OrgContext(1)
	customer := seed.Customer(t, "Acme Corp")
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	negative := -1

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"missing customer", domain.CreateRequest{}, domain.ErrInvalidCustomer},
		{"unknown customer", domain.CreateRequest{CustomerID: "77"}, domain.ErrCustomerNotFound},
		{"unknown plan", domain.CreateRequest{CustomerID: customer.String(), PlanID: "77"}, domain.ErrPlanNotFound},
		{"end before start", domain.CreateRequest{CustomerID: customer.String(), StartDate: &start, EndDate: &end}, domain.ErrInvalidPeriod},
		{"negative terms", domain.CreateRequest{CustomerID: customer.String(), PaymentTermDays: &negative}, domain.ErrInvalidPaymentTerms},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// Failed creations must not consume numbers.
	created, err := svc.Create(ctx, domain.CreateRequest{CustomerID: customer.String()})
	require.NoError(t, err)
	assert.Equal(t, "S-0001", created.SubscriptionNumber)
}

func TestUpdateKeepsFrozenDiscountClamped(t *testing.T) {
	svc, seed := newTestService(t)
	ctx := testutil.OrgContext(1)
	customer := seed.Customer(t, "Acme Corp")
	seat := seed.Product(t, "Seat", "50")
	seed.Discount(t, "FLAT40", money.Fixed, "40", nil)

	created, err := svc.Create(ctx, domain.CreateRequest{
		CustomerID:   customer.String(),
		DiscountCode: "flat40",
		Items:        []document.ItemInput{qty(seat.String(), 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, "40.00", created.DiscountAmount.StringFixed(2))
	assert.Equal(t, "60.00", created.Total.StringFixed(2))
	require.NotNil(t, created.DiscountCode)
	assert.Equal(t, "FLAT40", *created.DiscountCode)

	cheap := decimal.RequireFromString("25")
	items := []document.ItemInput{{ProductID: seat.String(), Quantity: 1, UnitPrice: &cheap}}
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Items: &items})
	require.NoError(t, err)
	assert.Equal(t, "25.00", updated.Subtotal.StringFixed(2))
	assert.Equal(t, "25.00", updated.DiscountAmount.StringFixed(2))
	assert.True(t, updated.Total.IsZero())

	_, err = svc.Update(ctx, domain.UpdateRequest{ID: created.ID, DiscountCode: "FLAT40"})
	assert.ErrorIs(t, err, domain.ErrDiscountApplied)
}

func TestStatusLifecycle(t *testing.T) {
	svc, seed := newTestService(t)
	ctx := testutil.OrgContext(1)
	customer := seed.Customer(t, "Acme Corp")

	created, err := svc.Create(ctx, domain.CreateRequest{CustomerID: customer.String()})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, created.ID, "Active")
	assert.ErrorIs(t, err, document.ErrInvalidStateTransition)
	_, err = svc.UpdateStatus(ctx, created.ID, "Paused")
	assert.ErrorIs(t, err, document.ErrInvalidStatus)

	for _, next := range []string{"Quotation", "quotation sent", "Confirmed", "Active"} {
		_, err := svc.UpdateStatus(ctx, created.ID, next)
		require.NoError(t, err, next)
	}

	closed, err := svc.UpdateStatus(ctx, created.ID, "Closed")
	require.NoError(t, err)
	assert.Equal(t, document.SubscriptionClosed, closed.Status)
	assert.NotNil(t, closed.ConfirmedAt)
	assert.NotNil(t, closed.ActivatedAt)
	assert.NotNil(t, closed.EndedAt)

	notes := "late change"
	_, err = svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrNotEditable)
}

func TestConfirmTx(t *testing.T) {
	svc, seed := newTestService(t)
	ctx := testutil.OrgContext(1)
	customer := seed.Customer(t, "Acme Corp")

	created, err := svc.Create(ctx, domain.CreateRequest{CustomerID: customer.String()})
	require.NoError(t, err)
	id, err := parseID(created.ID, domain.ErrInvalidID)
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmTx(ctx, seed.DB, seed.OrgID, id))
	require.NoError(t, svc.ConfirmTx(ctx, seed.DB, seed.OrgID, id))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, document.SubscriptionConfirmed, got.Status)

	_, err = svc.UpdateStatus(ctx, created.ID, "Active")
	require.NoError(t, err)
	assert.ErrorIs(t, svc.ConfirmTx(ctx, seed.DB, seed.OrgID, id), document.ErrInvalidStateTransition)
	assert.ErrorIs(t, svc.ConfirmTx(ctx, seed.DB, seed.OrgID, 12345), domain.ErrNotFound)
}

func TestListSubscriptions(t *testing.T) {
	svc, seed := newTestService(t)
	ctx := testutil.OrgContext(1)
	acme := seed.Customer(t, "Acme Corp")
	globex := seed.Customer(t, "Globex")

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, domain.CreateRequest{CustomerID: acme.String()})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, domain.CreateRequest{CustomerID: globex.String()})
	require.NoError(t, err)

	req := domain.ListRequest{CustomerID: acme.String()}
	req.PageSize = 2
	page, err := svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, page.Subscriptions, 2)
	assert.True(t, page.HasMore)

	req.PageToken = page.NextPageToken
	rest, err := svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, rest.Subscriptions, 1)
	assert.False(t, rest.HasMore)

	_, err = svc.List(ctx, domain.ListRequest{Status: "Paused"})
	assert.ErrorIs(t, err, document.ErrInvalidStatus)
}
