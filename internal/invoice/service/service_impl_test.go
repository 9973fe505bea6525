package service

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/config"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/invoice/domain"
	"github.com/smallbiznis/billingcore/internal/invoice/render"
	"github.com/smallbiznis/billingcore/internal/invoice/repository"
	ledgerdomain "github.com/smallbiznis/billingcore/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/billingcore/internal/ledger/service"
	"github.com/smallbiznis/billingcore/internal/money"
	quotationdomain "github.com/smallbiznis/billingcore/internal/quotation/domain"
	quotationrepo "github.com/smallbiznis/billingcore/internal/quotation/repository"
	quotationservice "github.com/smallbiznis/billingcore/internal/quotation/service"
	templaterepo "github.com/smallbiznis/billingcore/internal/quotationtemplate/repository"
	templateservice "github.com/smallbiznis/billingcore/internal/quotationtemplate/service"
	subscriptiondomain "github.com/smallbiznis/billingcore/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/billingcore/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/billingcore/internal/subscription/service"
	"github.com/smallbiznis/billingcore/internal/testutil"
	"github.com/smallbiznis/billingcore/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	svc           *Service
	seed          *fixture.Seeder
	clock         *clock.FakeClock
	repo          domain.Repository
	ledger        ledgerdomain.Service
	subscriptions subscriptiondomain.Service
	quotations    quotationdomain.Service
}

func newHarness(t *testing.T) *harness {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	seed := fixture.NewSeeder(db, node, 1)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	policy := config.NewStaticBillingPolicy(config.DefaultBillingPolicy())
	sequence := seed.Sequence(clk)
	pricer := seed.Pricer(clk)
	items := document.NewItemStore()
	discounts := seed.Discounts(clk)

	subscriptions := subscriptionservice.NewService(subscriptionservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Repo:         subscriptionrepo.Provide(),
		CustomerRepo: seed.Customers,
		ProductRepo:  seed.Products,
		Sequence:     sequence,
		Pricer:       pricer,
		Items:        items,
		Discounts:    discounts,
	})
	quotations := quotationservice.NewService(quotationservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Policy:       policy,
		Repo:         quotationrepo.Provide(),
		CustomerRepo: seed.Customers,
		Sequence:     sequence,
		Pricer:       pricer,
		Items:        items,
		Discounts:    discounts,
		Templates: templateservice.NewService(templateservice.Params{
			DB:     db,
			Log:    zap.NewNop(),
			GenID:  node,
			Clock:  clk,
			Repo:   templaterepo.Provide(),
			Pricer: pricer,
		}),
		Subscriptions: subscriptions,
	})
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})

	repo := repository.Provide()
	svc := NewService(Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clk,
		Policy:        policy,
		Repo:          repo,
		CustomerRepo:  seed.Customers,
		Sequence:      sequence,
		Pricer:        pricer,
		Items:         items,
		Discounts:     discounts,
		Subscriptions: subscriptions,
		Quotations:    quotations,
		Ledger:        ledger,
		Renderer:      render.NewRenderer(),
	}).(*Service)

	return &harness{
		svc:           svc,
		seed:          seed,
		clock:         clk,
		repo:          repo,
		ledger:        ledger,
		subscriptions: subscriptions,
		quotations:    quotations,
	}
}

func line(productID snowflake.ID, n int64) document.ItemInput {
	return document.ItemInput{ProductID: productID.String(), Quantity: n}
}

func mustID(t *testing.T, value string) snowflake.ID {
	t.Helper()
	id, err := snowflake.ParseString(value)
	require.NoError(t, err)
	return id
}

func TestCreateInvoice(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	customer := h.seed.Customer(t, "Acme Corp")
	widget := h.seed.Product(t, "Widget", "50")
	gadget := h.seed.Product(t, "Gadget", "30")
	h.seed.Tax(t, "VAT", money.Percentage, "10", widget)
	h.seed.Discount(t, "save20", money.Fixed, "20", nil)

	created, err := h.svc.Create(ctx, domain.CreateRequest{
		CustomerID:   customer.String(),
		DiscountCode: "SAVE20",
		Items:        []document.ItemInput{line(widget, 2), line(gadget, 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-00001", created.InvoiceNumber)
	assert.Equal(t, document.InvoiceDraft, created.Status)
	assert.Equal(t, "USD", created.Currency)
	assert.Equal(t, "130.00", created.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", created.DiscountAmount.StringFixed(2))
	assert.Equal(t, "10.00", created.Tax.StringFixed(2))
	assert.Equal(t, "120.00", created.Total.StringFixed(2))
	assert.Equal(t, "0.00", created.AmountPaid)
	assert.Equal(t, "120.00", created.Balance)
	assert.Equal(t, h.clock.Now(), created.IssueDate)
	assert.Equal(t, h.clock.Now().AddDate(0, 0, 30), created.DueDate)

	got, err := h.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	require.Len(t, got.ItemTaxes, 1)
	assert.Equal(t, "VAT", got.ItemTaxes[0].TaxName)
	assert.Equal(t, "10.00", got.ItemTaxes[0].Amount.StringFixed(2))
	assert.Equal(t, got.Items[0].ID, got.ItemTaxes[0].InvoiceItemID)
	assert.Empty(t, got.Payments)

	next, err := h.svc.Create(ctx, domain.CreateRequest{CustomerID: customer.String(), Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, "INV-00002", next.InvoiceNumber)
	assert.Equal(t, "EUR", next.Currency)
}

func TestCreateInvoiceValidation(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	customer := h.seed.Customer(t, "Acme Corp")
	other := h.seed.Customer(t, "Other Corp")
	sub, err := h.subscriptions.Create(ctx, subscriptiondomain.CreateRequest{CustomerID: other.String()})
	require.NoError(t, err)
	quotation, err := h.quotations.Create(ctx, quotationdomain.CreateRequest{CustomerID: other.String()})
	require.NoError(t, err)
	issue := h.clock.Now()
	before := issue.Add(-24 * time.Hour)

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"bad customer id", domain.CreateRequest{CustomerID: "abc"}, domain.ErrInvalidCustomer},
		{"unknown customer", domain.CreateRequest{CustomerID: "987654321"}, domain.ErrCustomerNotFound},
		{"bad currency", domain.CreateRequest{CustomerID: customer.String(), Currency: "EURO"}, domain.ErrInvalidCurrency},
		{"due before issue", domain.CreateRequest{CustomerID: customer.String(), IssueDate: &issue, DueDate: &before}, domain.ErrInvalidDueDate},
		{"bad subscription id", domain.CreateRequest{CustomerID: customer.String(), SubscriptionID: "x"}, domain.ErrInvalidSubscription},
		{"subscription of another customer", domain.CreateRequest{CustomerID: customer.String(), SubscriptionID: sub.ID}, domain.ErrCustomerMismatch},
		{"quotation of another customer", domain.CreateRequest{CustomerID: customer.String(), QuotationID: quotation.ID}, domain.ErrCustomerMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Create(ctx, tc.req)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	t.Run("missing organization", func(t *testing.T) {
		_, err := h.svc.Create(testutil.OrgContext(0), domain.CreateRequest{CustomerID: customer.String()})
		assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
	})
}

func TestCreateFromSubscription(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	customer := h.seed.Customer(t, "Acme Corp")
	seat := h.seed.Product(t, "Seat", "50")
	h.seed.Discount(t, "ONCE", money.Fixed, "20", lo.ToPtr(int64(1)))

	sub, err := h.subscriptions.Create(ctx, subscriptiondomain.CreateRequest{
		CustomerID:      customer.String(),
		PaymentTermDays: lo.ToPtr(15),
		DiscountCode:    "ONCE",
		Items:           []document.ItemInput{line(seat, 2)},
	})
	require.NoError(t, err)

	_, err = h.svc.CreateFromSubscription(ctx, domain.CreateFromSubscriptionRequest{SubscriptionID: sub.ID})
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotBillable)

	for _, next := range []string{"Quotation", "Quotation Sent", "Confirmed"} {
		_, err := h.subscriptions.UpdateStatus(ctx, sub.ID, next)
		require.NoError(t, err, next)
	}

	created, err := h.svc.CreateFromSubscription(ctx, domain.CreateFromSubscriptionRequest{SubscriptionID: sub.ID})
	require.NoError(t, err)
	require.NotNil(t, created.SubscriptionID)
	assert.Equal(t, sub.ID, *created.SubscriptionID)
	assert.Equal(t, customer.String(), created.CustomerID)
	assert.Equal(t, h.clock.Now().AddDate(0, 0, 15), created.DueDate)
	assert.Equal(t, "100.00", created.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", created.DiscountAmount.StringFixed(2))
	assert.Equal(t, "80.00", created.Total.StringFixed(2))
	require.NotNil(t, created.DiscountCode)
	assert.Equal(t, "ONCE", *created.DiscountCode)
	assert.Contains(t, created.Notes, sub.SubscriptionNumber)

	// The frozen discount is carried over without consuming another use.
	again, err := h.svc.CreateFromSubscription(ctx, domain.CreateFromSubscriptionRequest{SubscriptionID: sub.ID})
	require.NoError(t, err)
	assert.Equal(t, "80.00", again.Total.StringFixed(2))
}

func TestUpdateOnlyWhileDraft(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	customer := h.seed.Customer(t, "Acme Corp")
	widget := h.seed.Product(t, "Widget", "50")
	h.seed.Tax(t, "VAT", money.Percentage, "10", widget)

	created, err := h.svc.Create(ctx, domain.CreateRequest{
		CustomerID: customer.String(),
		Items:      []document.ItemInput{line(widget, 1)},
	})
	require.NoError(t, err)

	notes := "net 30"
	items := []document.ItemInput{line(widget, 3)}
	updated, err := h.svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Notes: &notes, Items: &items})
	require.NoError(t, err)
	assert.Equal(t, "net 30", updated.Notes)
	assert.Equal(t, "165.00", updated.Total.StringFixed(2))
	require.Len(t, updated.ItemTaxes, 1)
	assert.Equal(t, "15.00", updated.ItemTaxes[0].Amount.StringFixed(2))

	_, err = h.svc.Send(ctx, created.ID)
	require.NoError(t, err)

	_, err = h.svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrNotEditable)
}

func TestSendPostsReceivable(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	customer := h.seed.Customer(t, "Acme Corp")
	widget := h.seed.Product(t, "Widget", "50")
	gadget := h.seed.Product(t, "Gadget", "30")
	h.seed.Discount(t, "SAVE20", money.Fixed, "20", nil)

	created, err := h.svc.Create(ctx, domain.CreateRequest{
		CustomerID:   customer.String(),
		DiscountCode: "SAVE20",
		Items:        []document.ItemInput{line(widget, 2), line(gadget, 1)},
	})
	require.NoError(t, err)

	sent, err := h.svc.Send(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, document.InvoiceSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	entries, err := h.ledger.ListEntries(ctx, ledgerdomain.SourceInvoiceIssued, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Lines, 3)

	receivable, err := h.ledger.Balance(ctx, ledgerdomain.AccountReceivable)
	require.NoError(t, err)
	assert.Equal(t, "110.00", receivable.StringFixed(2))
	revenue, err := h.ledger.Balance(ctx, ledgerdomain.AccountRevenue)
	require.NoError(t, err)
	assert.Equal(t, "-130.00", revenue.StringFixed(2))

	_, err = h.svc.Send(ctx, created.ID)
	assert.ErrorIs(t, err, document.ErrInvalidStateTransition)
}

func TestOverdueIsDerivedFromDueDate(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	customer := h.seed.Customer(t, "Acme Corp")
	widget := h.seed.Product(t, "Widget", "50")

	due := h.clock.Now().Add(24 * time.Hour)
	created, err := h.svc.Create(ctx, domain.CreateRequest{
		CustomerID: customer.String(),
		DueDate:    &due,
		Items:      []document.ItemInput{line(widget, 1)},
	})
	require.NoError(t, err)
	_, err = h.svc.Send(ctx, created.ID)
	require.NoError(t, err)

	got, err := h.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, document.InvoiceSent, got.Status)

	h.clock.Advance(72 * time.Hour)

	got, err = h.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, document.InvoiceOverdue, got.Status)
	assert.Equal(t, document.InvoiceSent, got.StoredStatus)
	assert.Equal(t, 2, got.DaysOverdue)

	overdue, err := h.svc.List(ctx, domain.ListRequest{Status: "overdue"})
	require.NoError(t, err)
	assert.Len(t, overdue.Invoices, 1)
	sent, err := h.svc.List(ctx, domain.ListRequest{Status: "SENT"})
	require.NoError(t, err)
	assert.Empty(t, sent.Invoices)

	listed, err := h.svc.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	marked, err := h.svc.MarkOverdue(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, document.InvoiceOverdue, marked.StoredStatus)
}

func TestCancelInvoice(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	customer := h.seed.Customer(t, "Acme Corp")
	widget := h.seed.Product(t, "Widget", "50")

	newInvoice := func() *domain.Response {
		created, err := h.svc.Create(ctx, domain.CreateRequest{
			CustomerID: customer.String(),
			Items:      []document.ItemInput{line(widget, 2)},
		})
		require.NoError(t, err)
		return created
	}

	t.Run("draft cancels without postings", func(t *testing.T) {
		draft := newInvoice()
		cancelled, err := h.svc.Cancel(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, document.InvoiceCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)

		entries, err := h.ledger.ListEntries(ctx, ledgerdomain.SourceInvoiceCancelled, draft.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("sent invoice reverses its receivable", func(t *testing.T) {
		sent := newInvoice()
		_, err := h.svc.Send(ctx, sent.ID)
		require.NoError(t, err)
		_, err = h.svc.Cancel(ctx, sent.ID)
		require.NoError(t, err)

		receivable, err := h.ledger.Balance(ctx, ledgerdomain.AccountReceivable)
		require.NoError(t, err)
		assert.True(t, receivable.IsZero(), receivable.String())
	})

	t.Run("invoice with money received cannot be cancelled", func(t *testing.T) {
		paid := newInvoice()
		_, err := h.svc.Send(ctx, paid.ID)
		require.NoError(t, err)

		stored, err := h.repo.FindByID(ctx, h.seed.DB, h.seed.OrgID, mustID(t, paid.ID))
		require.NoError(t, err)
		next, ok := stored.ReceivePayment(decimal.NewFromInt(40), h.clock.Now())
		require.True(t, ok)
		rows, err := h.repo.UpdatePaymentState(ctx, h.seed.DB, stored, next, h.clock.Now())
		require.NoError(t, err)
		require.EqualValues(t, 1, rows)

		_, err = h.svc.MarkOverdue(ctx, paid.ID)
		require.NoError(t, err)
		_, err = h.svc.Cancel(ctx, paid.ID)
		assert.ErrorIs(t, err, domain.ErrHasPayments)

		got, err := h.svc.Get(ctx, paid.ID)
		require.NoError(t, err)
		assert.Equal(t, document.InvoiceOverdue, got.Status)
		assert.Equal(t, "60.00", got.Balance)
	})
}

func TestRenderPDF(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	customer := h.seed.Customer(t, "Acme Corp")
	widget := h.seed.Product(t, "Widget", "50")

	created, err := h.svc.Create(ctx, domain.CreateRequest{
		CustomerID: customer.String(),
		Items:      []document.ItemInput{line(widget, 2)},
	})
	require.NoError(t, err)

	pdf, err := h.svc.RenderPDF(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = h.svc.RenderPDF(ctx, "123456789")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
