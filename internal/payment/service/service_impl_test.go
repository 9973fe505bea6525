package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/config"
	"github.com/smallbiznis/billingcore/internal/document"
	invoicedomain "github.com/smallbiznis/billingcore/internal/invoice/domain"
	"github.com/smallbiznis/billingcore/internal/invoice/render"
	invoicerepo "github.com/smallbiznis/billingcore/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/billingcore/internal/invoice/service"
	ledgerdomain "github.com/smallbiznis/billingcore/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/billingcore/internal/ledger/service"
	"github.com/smallbiznis/billingcore/internal/money"
	"github.com/smallbiznis/billingcore/internal/payment/domain"
	"github.com/smallbiznis/billingcore/internal/payment/repository"
	"github.com/smallbiznis/billingcore/internal/testutil"
	"github.com/smallbiznis/billingcore/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	svc      *Service
	seed     *fixture.Seeder
	clock    *clock.FakeClock
	invoices invoicedomain.Service
	ledger   ledgerdomain.Service
	customer snowflake.ID
	widget   snowflake.ID
}

func newHarness(t *testing.T) *harness {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	seed := fixture.NewSeeder(db, node, 1)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	sequence := seed.Sequence(clk)
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})
	invoiceRepo := invoicerepo.Provide()

	invoices := invoiceservice.NewService(invoiceservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Policy:       config.NewStaticBillingPolicy(config.DefaultBillingPolicy()),
		Repo:         invoiceRepo,
		CustomerRepo: seed.Customers,
		Sequence:     sequence,
		Pricer:       seed.Pricer(clk),
		Items:        document.NewItemStore(),
		Discounts:    seed.Discounts(clk),
		Ledger:       ledger,
		Renderer:     render.NewRenderer(),
	})

	svc := NewService(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Repo:         repository.Provide(),
		Invoices:     invoiceRepo,
		CustomerRepo: seed.Customers,
		Sequence:     sequence,
		Ledger:       ledger,
	}).(*Service)

	return &harness{
		svc:      svc,
		seed:     seed,
		clock:    clk,
		invoices: invoices,
		ledger:   ledger,
		customer: seed.Customer(t, "Acme Corp"),
		widget:   seed.Product(t, "Widget", "50"),
	}
}

// sentInvoice creates and sends an invoice for quantity widgets.
func (h *harness) sentInvoice(t *testing.T, quantity int64, discountCode string) *invoicedomain.Response {
	t.Helper()
	ctx := testutil.OrgContext(1)
	created, err := h.invoices.Create(ctx, invoicedomain.CreateRequest{
		CustomerID:   h.customer.String(),
		DiscountCode: discountCode,
		Items:        []document.ItemInput{{ProductID: h.widget.String(), Quantity: quantity}},
	})
	require.NoError(t, err)
	sent, err := h.invoices.Send(ctx, created.ID)
	require.NoError(t, err)
	return sent
}

func amount(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestPayThenRefundRestoresInvoice(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	gadget := h.seed.Product(t, "Gadget", "30")
	h.seed.Discount(t, "SAVE20", money.Fixed, "20", nil)

	created, err := h.invoices.Create(ctx, invoicedomain.CreateRequest{
		CustomerID:   h.customer.String(),
		DiscountCode: "SAVE20",
		Items: []document.ItemInput{
			{ProductID: h.widget.String(), Quantity: 2},
			{ProductID: gadget.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "110.00", created.Total.StringFixed(2))
	_, err = h.invoices.Send(ctx, created.ID)
	require.NoError(t, err)

	paid, err := h.svc.Record(ctx, domain.RecordRequest{
		InvoiceID: created.ID,
		Amount:    amount("110"),
		Method:    "bank_transfer",
		Reference: "TRX-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-00001", paid.PaymentNumber)
	assert.Equal(t, domain.StatusCompleted, paid.Status)
	assert.Equal(t, domain.MethodBankTransfer, paid.Method)
	assert.Equal(t, h.customer.String(), paid.CustomerID)
	require.NotNil(t, paid.Invoice)
	assert.Equal(t, document.InvoicePaid, paid.Invoice.Status)
	assert.Equal(t, "110.00", paid.Invoice.AmountPaid)
	assert.Equal(t, "0.00", paid.Invoice.Balance)
	assert.NotNil(t, paid.Invoice.PaidAt)

	cash, err := h.ledger.Balance(ctx, ledgerdomain.AccountCash)
	require.NoError(t, err)
	assert.Equal(t, "110.00", cash.StringFixed(2))

	refunded, err := h.svc.Refund(ctx, domain.RefundRequest{ID: paid.ID, Reason: "customer request"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, refunded.Status)
	assert.Equal(t, "REFUNDED: customer request", refunded.Notes)
	assert.NotNil(t, refunded.RefundedAt)
	require.NotNil(t, refunded.Invoice)
	assert.Equal(t, document.InvoiceSent, refunded.Invoice.Status)
	assert.Equal(t, "0.00", refunded.Invoice.AmountPaid)
	assert.Nil(t, refunded.Invoice.PaidAt)

	_, err = h.svc.Refund(ctx, domain.RefundRequest{ID: paid.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyRefunded)

	cash, err = h.ledger.Balance(ctx, ledgerdomain.AccountCash)
	require.NoError(t, err)
	assert.True(t, cash.IsZero(), cash.String())
	receivable, err := h.ledger.Balance(ctx, ledgerdomain.AccountReceivable)
	require.NoError(t, err)
	assert.Equal(t, "110.00", receivable.StringFixed(2))

	invoice, err := h.invoices.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, invoice.Payments, 1)
	assert.Equal(t, "PAY-00001", invoice.Payments[0].PaymentNumber)
}

func TestFractionalPaymentsSettleExactly(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	dime := h.seed.Product(t, "Dime", "0.10")

	sentFor := func(quantity int64) string {
		created, err := h.invoices.Create(ctx, invoicedomain.CreateRequest{
			CustomerID: h.customer.String(),
			Items:      []document.ItemInput{{ProductID: dime.String(), Quantity: quantity}},
		})
		require.NoError(t, err)
		_, err = h.invoices.Send(ctx, created.ID)
		require.NoError(t, err)
		return created.ID
	}
	pay := func(invoiceID, value string) *domain.Response {
		paid, err := h.svc.Record(ctx, domain.RecordRequest{InvoiceID: invoiceID, Amount: amount(value), Method: "cash"})
		require.NoError(t, err)
		return paid
	}

	t.Run("paying the exact remaining balance settles the invoice", func(t *testing.T) {
		invoiceID := sentFor(3)

		first := pay(invoiceID, "0.10")
		assert.Equal(t, document.InvoicePartiallyPaid, first.Invoice.Status)

		second := pay(invoiceID, "0.20")
		assert.Equal(t, document.InvoicePaid, second.Invoice.Status)
		assert.Equal(t, "0.30", second.Invoice.AmountPaid)
		assert.Equal(t, "0.00", second.Invoice.Balance)
		assert.NotNil(t, second.Invoice.PaidAt)
	})

	t.Run("refunding every payment returns the invoice to sent", func(t *testing.T) {
		invoiceID := sentFor(6)
		first := pay(invoiceID, "0.10")
		second := pay(invoiceID, "0.20")

		refunded, err := h.svc.Refund(ctx, domain.RefundRequest{ID: first.ID})
		require.NoError(t, err)
		assert.Equal(t, document.InvoicePartiallyPaid, refunded.Invoice.Status)
		assert.Equal(t, "0.20", refunded.Invoice.AmountPaid)

		refunded, err = h.svc.Refund(ctx, domain.RefundRequest{ID: second.ID})
		require.NoError(t, err)
		assert.Equal(t, document.InvoiceSent, refunded.Invoice.Status)
		assert.Equal(t, "0.00", refunded.Invoice.AmountPaid)
	})

	t.Run("balance payment after a fractional partial", func(t *testing.T) {
		invoiceID := sentFor(3)
		pay(invoiceID, "0.10")

		paid, err := h.svc.PayInvoiceBalance(ctx, domain.PayBalanceRequest{InvoiceID: invoiceID, Method: "cash"})
		require.NoError(t, err)
		assert.Equal(t, "0.20", paid.Amount.StringFixed(2))
		assert.Equal(t, document.InvoicePaid, paid.Invoice.Status)
	})
}

func TestReceiveAndReturnPaymentState(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	invoice := invoicedomain.Invoice{Status: document.InvoiceSent}
	invoice.Total = amount("100")
	invoice.AmountPaid = decimal.Zero

	next, ok := invoice.ReceivePayment(amount("60"), now)
	require.True(t, ok)
	assert.Equal(t, document.InvoicePartiallyPaid, next.Status)
	assert.Nil(t, next.PaidAt)
	assert.Equal(t, "60.00", next.AmountPaid.StringFixed(2))

	invoice.Status, invoice.AmountPaid = next.Status, next.AmountPaid
	_, ok = invoice.ReceivePayment(amount("40.01"), now)
	assert.False(t, ok)

	next, ok = invoice.ReceivePayment(amount("40"), now)
	require.True(t, ok)
	assert.Equal(t, document.InvoicePaid, next.Status)
	require.NotNil(t, next.PaidAt)

	invoice.Status, invoice.AmountPaid, invoice.PaidAt = next.Status, next.AmountPaid, next.PaidAt
	back, ok := invoice.ReturnPayment(amount("40"))
	require.True(t, ok)
	assert.Equal(t, document.InvoicePartiallyPaid, back.Status)
	assert.Nil(t, back.PaidAt)

	_, ok = invoice.ReturnPayment(amount("100.01"))
	assert.False(t, ok)
	back, ok = invoice.ReturnPayment(amount("100"))
	require.True(t, ok)
	assert.Equal(t, document.InvoiceSent, back.Status)
}

func TestConcurrentPaymentsCannotOverpay(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	invoice := h.sentInvoice(t, 2, "")
	require.Equal(t, "100.00", invoice.Total.StringFixed(2))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Record(ctx, domain.RecordRequest{InvoiceID: invoice.ID, Amount: amount("60")})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrOverpayment):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	got, err := h.invoices.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, document.InvoicePartiallyPaid, got.Status)
	assert.Equal(t, "60.00", got.AmountPaid)
	assert.Len(t, got.Payments, 1)
}

func TestRecordPaymentValidation(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	invoice := h.sentInvoice(t, 2, "")
	other := h.seed.Customer(t, "Other Corp")

	draft, err := h.invoices.Create(ctx, invoicedomain.CreateRequest{
		CustomerID: h.customer.String(),
		Items:      []document.ItemInput{{ProductID: h.widget.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	cases := []struct {
		name string
		req  domain.RecordRequest
		want error
	}{
		{"zero amount", domain.RecordRequest{InvoiceID: invoice.ID}, domain.ErrInvalidAmount},
		{"negative amount", domain.RecordRequest{InvoiceID: invoice.ID, Amount: amount("-5")}, domain.ErrInvalidAmount},
		{"unknown method", domain.RecordRequest{InvoiceID: invoice.ID, Amount: amount("5"), Method: "BITCOIN"}, domain.ErrInvalidMethod},
		{"no payer", domain.RecordRequest{Amount: amount("5")}, domain.ErrCustomerRequired},
		{"unknown invoice", domain.RecordRequest{InvoiceID: "123456789", Amount: amount("5")}, domain.ErrInvoiceNotFound},
		{"unknown customer", domain.RecordRequest{CustomerID: "123456789", Amount: amount("5")}, domain.ErrCustomerNotFound},
		{"customer of another invoice", domain.RecordRequest{InvoiceID: invoice.ID, CustomerID: other.String(), Amount: amount("5")}, domain.ErrCustomerMismatch},
		{"draft invoice", domain.RecordRequest{InvoiceID: draft.ID, Amount: amount("5")}, domain.ErrInvoiceNotPayable},
		{"more than the balance", domain.RecordRequest{InvoiceID: invoice.ID, Amount: amount("100.01")}, domain.ErrOverpayment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Record(ctx, tc.req)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	got, err := h.invoices.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", got.AmountPaid)
	assert.Empty(t, got.Payments)
}

func TestPendingPaymentLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	invoice := h.sentInvoice(t, 2, "")

	pending, err := h.svc.Record(ctx, domain.RecordRequest{InvoiceID: invoice.ID, Amount: amount("40"), Pending: true})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, pending.Status)
	assert.Nil(t, pending.Invoice)

	got, err := h.invoices.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", got.AmountPaid)

	completed, err := h.svc.Complete(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	require.NotNil(t, completed.Invoice)
	assert.Equal(t, document.InvoicePartiallyPaid, completed.Invoice.Status)
	assert.Equal(t, "60.00", completed.Invoice.Balance)

	_, err = h.svc.Complete(ctx, pending.ID)
	assert.ErrorIs(t, err, domain.ErrNotPending)
	assert.ErrorIs(t, h.svc.Delete(ctx, pending.ID), domain.ErrPaymentCompleted)

	failing, err := h.svc.Record(ctx, domain.RecordRequest{InvoiceID: invoice.ID, Amount: amount("10"), Pending: true})
	require.NoError(t, err)
	failed, err := h.svc.Fail(ctx, failing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.NotNil(t, failed.FailedAt)

	_, err = h.svc.Refund(ctx, domain.RefundRequest{ID: failing.ID})
	assert.ErrorIs(t, err, domain.ErrNotRefundable)

	require.NoError(t, h.svc.Delete(ctx, failing.ID))
	_, err = h.svc.Get(ctx, failing.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPayInvoiceBalance(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	invoice := h.sentInvoice(t, 2, "")

	_, err := h.svc.Record(ctx, domain.RecordRequest{InvoiceID: invoice.ID, Amount: amount("30"), Method: "card"})
	require.NoError(t, err)

	rest, err := h.svc.PayInvoiceBalance(ctx, domain.PayBalanceRequest{InvoiceID: invoice.ID, Method: "CHEQUE"})
	require.NoError(t, err)
	assert.Equal(t, "70.00", rest.Amount.StringFixed(2))
	assert.Equal(t, domain.MethodCheque, rest.Method)
	require.NotNil(t, rest.Invoice)
	assert.Equal(t, document.InvoicePaid, rest.Invoice.Status)

	_, err = h.svc.PayInvoiceBalance(ctx, domain.PayBalanceRequest{InvoiceID: invoice.ID})
	assert.ErrorIs(t, err, domain.ErrNothingDue)
}

func TestListPayments(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.OrgContext(1)
	invoice := h.sentInvoice(t, 2, "")

	_, err := h.svc.Record(ctx, domain.RecordRequest{InvoiceID: invoice.ID, Amount: amount("25")})
	require.NoError(t, err)
	_, err = h.svc.Record(ctx, domain.RecordRequest{InvoiceID: invoice.ID, Amount: amount("25"), Pending: true})
	require.NoError(t, err)
	advance, err := h.svc.Record(ctx, domain.RecordRequest{CustomerID: h.customer.String(), Amount: amount("15"), Method: "upi"})
	require.NoError(t, err)
	assert.Nil(t, advance.InvoiceID)
	assert.Equal(t, domain.StatusCompleted, advance.Status)

	all, err := h.svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Payments, 3)

	forInvoice, err := h.svc.List(ctx, domain.ListRequest{InvoiceID: invoice.ID})
	require.NoError(t, err)
	assert.Len(t, forInvoice.Payments, 2)

	pending, err := h.svc.List(ctx, domain.ListRequest{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, pending.Payments, 1)

	upi, err := h.svc.List(ctx, domain.ListRequest{Method: "UPI"})
	require.NoError(t, err)
	require.Len(t, upi.Payments, 1)
	assert.Equal(t, advance.ID, upi.Payments[0].ID)

	_, err = h.svc.List(ctx, domain.ListRequest{Status: "LOST"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
