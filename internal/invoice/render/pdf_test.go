package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesPDF(t *testing.T) {
	out, err := NewRenderer().Render(Document{
		InvoiceNumber: "INV-00001",
		Status:        "SENT",
		IssueDate:     "01 Mar 2026",
		DueDate:       "31 Mar 2026",
		BillToName:    "Acme Corp",
		BillToEmail:   "billing@acme.test",
		Items: []Line{
			{Description: "Widget", Quantity: 2, UnitPrice: "USD 50.00", Tax: "USD 0.00", Amount: "USD 100.00"},
			{Description: "Gadget", Quantity: 1, UnitPrice: "USD 30.00", Tax: "USD 0.00", Amount: "USD 30.00"},
		},
		Subtotal:  "USD 130.00",
		Discount:  "USD 20.00",
		Tax:       "USD 0.00",
		Total:     "USD 110.00",
		Paid:      "USD 0.00",
		AmountDue: "USD 110.00",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
