package document

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		kind     Kind
		from, to Status
		want     error
	}{
		{KindQuotation, QuotationDraft, QuotationSent, nil},
		{KindQuotation, QuotationSent, QuotationAccepted, nil},
		{KindQuotation, QuotationDraft, QuotationAccepted, ErrInvalidStateTransition},
		{KindQuotation, QuotationAccepted, QuotationRejected, ErrInvalidStateTransition},
		{KindQuotation, QuotationDraft, Status("ARCHIVED"), ErrInvalidStatus},
		{KindSubscription, SubscriptionDraft, SubscriptionQuotation, nil},
		{KindSubscription, SubscriptionConfirmed, SubscriptionActive, nil},
		{KindSubscription, SubscriptionDraft, SubscriptionActive, ErrInvalidStateTransition},
		{KindSubscription, SubscriptionActive, SubscriptionClosed, nil},
		{KindSubscription, SubscriptionClosed, SubscriptionActive, ErrInvalidStateTransition},
		{KindSubscription, SubscriptionDraft, Status("DRAFT"), ErrInvalidStatus},
		{KindInvoice, InvoiceDraft, InvoiceSent, nil},
		{KindInvoice, InvoiceSent, InvoicePaid, ErrInvalidStateTransition},
		{KindInvoice, InvoiceSent, InvoicePartiallyPaid, ErrInvalidStateTransition},
		{KindInvoice, InvoicePaid, InvoiceRefunded, nil},
		{KindInvoice, InvoiceCancelled, InvoiceSent, ErrInvalidStateTransition},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind)+" "+string(tc.from)+" to "+string(tc.to), func(t *testing.T) {
			err := CanTransition(tc.kind, tc.from, tc.to)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(KindSubscription, " quotation sent ")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionQuotationSent, status)

	status, err = ParseStatus(KindInvoice, "partially_paid")
	require.NoError(t, err)
	assert.Equal(t, InvoicePartiallyPaid, status)

	_, err = ParseStatus(KindSubscription, "Paused")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.True(t, Terminal(KindQuotation, QuotationExpired))
	assert.False(t, Terminal(KindInvoice, InvoicePaid))
}

func TestComputeAmounts(t *testing.T) {
	lines := []LineItem{
		{Quantity: 2, Amount: decimal.NewFromInt(100), Tax: decimal.RequireFromString("10.50")},
		{Quantity: 1, Amount: decimal.NewFromInt(30)},
	}

	amounts := ComputeAmounts(lines, decimal.NewFromInt(20))
	assert.Equal(t, "130.00", amounts.Subtotal.StringFixed(2))
	assert.Equal(t, "10.50", amounts.Tax.StringFixed(2))
	assert.Equal(t, "120.50", amounts.Total.StringFixed(2))
	assert.Equal(t, int64(3), TotalQuantity(lines))

	clamped := ComputeAmounts(lines[1:], decimal.NewFromInt(50))
	assert.Equal(t, "30.00", clamped.DiscountAmount.StringFixed(2))
	assert.True(t, clamped.Total.IsZero())
}

func TestAnnotate(t *testing.T) {
	assert.Equal(t, "REJECTED", Annotate("", "REJECTED", "  "))
	assert.Equal(t, "REJECTED: too expensive", Annotate("", "REJECTED", "too expensive"))
	assert.Equal(t, "net 30 | REFUNDED", Annotate("net 30", "REFUNDED", ""))
}
