package tracing

import (
	"errors"
	"testing"

	"github.com/smallbiznis/billingcore/internal/apperr"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributes(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/invoices/:id"),
		attribute.String("customer.email", "a@b.c"),
		attribute.String("db.password", "x"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(apperr.Overpayment("overpayment_rejected")), "overpayment_rejected")
	assert.EqualError(t, SafeError(errors.New("pq: relation \"invoices\" does not exist")), "storage_error")
}
