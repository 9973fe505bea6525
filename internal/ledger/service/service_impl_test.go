package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	ledgerdomain "github.com/smallbiznis/billingcore/internal/ledger/domain"
	"github.com/smallbiznis/billingcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewDB(t)
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	}).(*Service)
	return svc, db
}

func invoicePostings() []ledgerdomain.Posting {
	return []ledgerdomain.Posting{
		{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Debit, Amount: d("110")},
		{Account: ledgerdomain.AccountDiscounts, Direction: ledgerdomain.Debit, Amount: d("20")},
		{Account: ledgerdomain.AccountRevenue, Direction: ledgerdomain.Credit, Amount: d("130")},
	}
}

func TestPostTxIsIdempotentPerSource(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testutil.OrgContext(1)
	req := ledgerdomain.PostRequest{
		OrgID:      1,
		SourceType: ledgerdomain.SourceInvoiceIssued,
		SourceID:   snowflake.ID(77),
		Currency:   "usd",
		Postings:   invoicePostings(),
	}

	for i, want := range []bool{true, false} {
		var posted bool
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			posted, err = svc.PostTx(ctx, tx, req)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, want, posted, "attempt %d", i+1)
	}

	entries, err := svc.ListEntries(ctx, ledgerdomain.SourceInvoiceIssued, "77")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "USD", entries[0].Currency)
	require.Len(t, entries[0].Lines, 3)
	assert.Equal(t, ledgerdomain.AccountReceivable, entries[0].Lines[0].Account)

	receivable, err := svc.Balance(ctx, ledgerdomain.AccountReceivable)
	require.NoError(t, err)
	assert.Equal(t, "110.00", receivable.StringFixed(2))

	revenue, err := svc.Balance(ctx, ledgerdomain.AccountRevenue)
	require.NoError(t, err)
	assert.Equal(t, "-130.00", revenue.StringFixed(2))
}

func TestPostTxRejectsInvalidEntries(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testutil.OrgContext(1)

	cases := []struct {
		name string
		req  ledgerdomain.PostRequest
		want error
	}{
		{"missing organization", ledgerdomain.PostRequest{SourceType: ledgerdomain.SourcePayment, SourceID: 1, Currency: "USD"}, ledgerdomain.ErrInvalidOrganization},
		{"missing source", ledgerdomain.PostRequest{OrgID: 1, SourceID: 1, Currency: "USD"}, ledgerdomain.ErrInvalidSource},
		{"bad currency", ledgerdomain.PostRequest{OrgID: 1, SourceType: ledgerdomain.SourcePayment, SourceID: 1, Currency: "dollars"}, ledgerdomain.ErrInvalidCurrency},
		{"unbalanced", ledgerdomain.PostRequest{
			OrgID: 1, SourceType: ledgerdomain.SourcePayment, SourceID: 1, Currency: "USD",
			Postings: []ledgerdomain.Posting{
				{Account: ledgerdomain.AccountCash, Direction: ledgerdomain.Debit, Amount: d("10")},
				{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Credit, Amount: d("9.99")},
			},
		}, ledgerdomain.ErrUnbalanced},
		{"one sided", ledgerdomain.PostRequest{
			OrgID: 1, SourceType: ledgerdomain.SourcePayment, SourceID: 1, Currency: "USD",
			Postings: []ledgerdomain.Posting{
				{Account: ledgerdomain.AccountCash, Direction: ledgerdomain.Debit, Amount: d("10")},
			},
		}, ledgerdomain.ErrUnbalanced},
		{"unknown account", ledgerdomain.PostRequest{
			OrgID: 1, SourceType: ledgerdomain.SourcePayment, SourceID: 1, Currency: "USD",
			Postings: []ledgerdomain.Posting{
				{Account: "suspense", Direction: ledgerdomain.Debit, Amount: d("10")},
				{Account: ledgerdomain.AccountCash, Direction: ledgerdomain.Credit, Amount: d("10")},
			},
		}, ledgerdomain.ErrInvalidAccount},
		{"zero amount", ledgerdomain.PostRequest{
			OrgID: 1, SourceType: ledgerdomain.SourcePayment, SourceID: 1, Currency: "USD",
			Postings: []ledgerdomain.Posting{
				{Account: ledgerdomain.AccountCash, Direction: ledgerdomain.Debit, Amount: decimal.Zero},
				{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Credit, Amount: decimal.Zero},
			},
		}, ledgerdomain.ErrInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PostTx(ctx, db, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	entries, err := svc.ListEntries(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
