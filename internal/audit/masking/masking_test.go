package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****7890", MaskSecret("TRX-1234567890"))
}

func TestMaskSensitive(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"reference":      "BANK-REF-998877",
		"payment_number": "PAY-00001",
		"customer":       map[string]any{"email": "someone@example.com"},
		"amount":         "60.00",
		" ":              "dropped",
	})

	assert.Equal(t, "****8877", out["reference"])
	assert.Equal(t, "PAY-00001", out["payment_number"])
	assert.Equal(t, "60.00", out["amount"])
	assert.Equal(t, map[string]any{"email": "****.com"}, out["customer"])
	assert.Len(t, out, 4)
}
