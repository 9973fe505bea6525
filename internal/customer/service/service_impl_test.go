package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/customer/domain"
	"github.com/smallbiznis/billingcore/internal/customer/repository"
	"github.com/smallbiznis/billingcore/internal/document"
	invoicedomain "github.com/smallbiznis/billingcore/internal/invoice/domain"
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

func TestStatement(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(now),
		Repo:  repository.Provide(),
	})
	ctx := testutil.OrgContext(1)

	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme", Email: "billing@acme.test", Currency: "USD"})
	require.NoError(t, err)

	invoice := func(id int64, status document.Status, total, paid string, due time.Time) *invoicedomain.Invoice {
		return &invoicedomain.Invoice{
			ID:            snowflake.ID(id),
			OrgID:         1,
			InvoiceNumber: fmt.Sprintf("INV-%05d", id),
			CustomerID:    customer.ID,
			Status:        status,
			Currency:      "USD",
			IssueDate:     now.AddDate(0, -1, 0),
			DueDate:       due,
			Amounts:       document.Amounts{Subtotal: decimal.RequireFromString(total), Total: decimal.RequireFromString(total)},
			AmountPaid:    decimal.RequireFromString(paid),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}
	rows := []*invoicedomain.Invoice{
		invoice(1, document.InvoiceSent, "100", "0", now.AddDate(0, 0, 10)),
		invoice(2, document.InvoicePartiallyPaid, "80", "30", now.AddDate(0, 0, -2)),
		invoice(3, document.InvoiceOverdue, "20", "0", now.AddDate(0, 0, 5)),
		invoice(4, document.InvoicePaid, "40", "40", now.AddDate(0, 0, -9)),
		invoice(5, document.InvoiceDraft, "999", "0", now.AddDate(0, 0, -9)),
	}
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}

	statement, err := svc.Statement(ctx, domain.GetCustomerRequest{ID: customer.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), statement.OpenInvoices)
	assert.Equal(t, "170.00", statement.Outstanding.StringFixed(2))
	assert.Equal(t, "70.00", statement.Overdue.StringFixed(2))
	assert.Equal(t, "70.00", statement.TotalPaid.StringFixed(2))

	t.Run("customer without invoices", func(t *testing.T) {
		other, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Quiet", Email: "quiet@acme.test"})
		require.NoError(t, err)
		empty, err := svc.Statement(ctx, domain.GetCustomerRequest{ID: other.ID.String()})
		require.NoError(t, err)
		assert.Zero(t, empty.OpenInvoices)
		assert.True(t, empty.Outstanding.IsZero())
	})
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := testutil.OrgContext(1)

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:     " Acme Ltd ",
		Email:    "billing@acme.test",
		Currency: "usd",
		Metadata: map[string]any{"segment": "smb"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", created.Name)
	assert.Equal(t, "USD", created.Currency)

	got, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "smb", got.Metadata["segment"])

	_, err = svc.GetByID(testutil.OrgContext(2), domain.GetCustomerRequest{ID: created.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := testutil.OrgContext(1)

	t.Run("missing name", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Email: "a@b.test"})
		assert.ErrorIs(t, err, domain.ErrInvalidName)
	})
	t.Run("bad email", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "A", Email: "nope"})
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})
	t.Run("no organization", func(t *testing.T) {
		_, err := svc.Create(testutil.OrgContext(0), domain.CreateCustomerRequest{Name: "A", Email: "a@b.test"})
		assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
	})
}

func TestListPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := testutil.OrgContext(1)
	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: name, Email: name + "@x.test"})
		require.NoError(t, err)
	}

	req := domain.ListCustomerRequest{}
	req.PageSize = 2
	first, err := svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, first.Customers, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "C", first.Customers[0].Name)

	req.PageToken = first.NextPageToken
	second, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.Equal(t, "A", second.Customers[0].Name)
	assert.False(t, second.HasMore)
}
