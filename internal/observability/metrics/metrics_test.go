package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("doc_type", "invoice"),
		attribute.String("customer_id", "456"),
		attribute.String("method", "CASH"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("doc_type"), attrs[0].Key)
	assert.Equal(t, attribute.Key("method"), attrs[1].Key)
}

func TestRecordersAreNilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordDocumentCreated(ctx, "invoice")
		m.RecordPayment(ctx, "CASH", "COMPLETED")
		m.RecordOverpaymentRejected(ctx)
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "billingcore"}, noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordStatusTransition(ctx, "quotation", "DRAFT", "SENT")
		m.RecordDiscountRedemption(ctx, "applied")
		m.RecordRefund(ctx, "BANK_TRANSFER")
		m.RecordLedgerEntry(ctx, "payment")
	})
}
