package document_test

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/money"
	productrepo "github.com/smallbiznis/billingcore/internal/product/repository"
	taxrepo "github.com/smallbiznis/billingcore/internal/tax/repository"
	taxservice "github.com/smallbiznis/billingcore/internal/tax/service"
	"github.com/smallbiznis/billingcore/internal/testutil"
	"github.com/smallbiznis/billingcore/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPricer(t *testing.T) (*document.Pricer, *gorm.DB, *fixture.Seeder) {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	pricer := document.NewPricer(document.PricerParams{
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		ProductRepo: productrepo.Provide(),
		TaxResolver: taxservice.NewResolver(taxservice.ResolverParams{DB: db, Repository: taxrepo.NewRepository()}),
	})
	return pricer, db, fixture.NewSeeder(db, node, 1)
}

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestPriceUsesCatalogDefaultsAndTaxes(t *testing.T) {
	pricer, db, seed := newPricer(t)
	ctx := testutil.OrgContext(1)
	shirt := seed.Product(t, "Shirt", "20")
	xl := seed.Variant(t, shirt, "Size", "XL", "2.50")
	seed.Tax(t, "VAT", money.Percentage, "10", shirt)
	seed.Tax(t, "Eco", money.Fixed, "1", shirt)

	lines, err := pricer.Price(ctx, db, 1, 99, []document.ItemInput{
		{ProductID: shirt.String(), VariantID: xl.String(), Quantity: 2},
		{Description: "Setup fee", Quantity: 1, UnitPrice: price("30")},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "Shirt (Size: XL)", lines[0].Description)
	assert.Equal(t, "22.50", lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "45.00", lines[0].Amount.StringFixed(2))
	// 10% of 45 plus a flat 1 per line.
	assert.Equal(t, "5.50", lines[0].Tax.StringFixed(2))
	assert.Len(t, lines[0].Taxes, 2)
	assert.Equal(t, 1, lines[0].Position)

	assert.Equal(t, "Setup fee", lines[1].Description)
	assert.True(t, lines[1].Tax.IsZero())
	assert.Equal(t, snowflake.ID(99), lines[1].DocumentID)

	amounts := document.ComputeAmounts(lines, decimal.Zero)
	assert.Equal(t, "75.00", amounts.Subtotal.StringFixed(2))
	assert.Equal(t, "80.50", amounts.Total.StringFixed(2))
}

func TestPriceKeepsLineAmountConsistentWithStoredUnitPrice(t *testing.T) {
	pricer, db, _ := newPricer(t)
	ctx := testutil.OrgContext(1)

	lines, err := pricer.Price(ctx, db, 1, 5, []document.ItemInput{
		{Description: "Metered", Quantity: 3, UnitPrice: price("0.33")},
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "0.99", lines[0].Amount.StringFixed(2))
	assert.True(t, lines[0].Amount.Equal(lines[0].UnitPrice.Mul(decimal.NewFromInt(lines[0].Quantity))))
}

func TestPriceRejectsBadInput(t *testing.T) {
	pricer, db, seed := newPricer(t)
	ctx := testutil.OrgContext(1)
	shirt := seed.Product(t, "Shirt", "20")
	mug := seed.Product(t, "Mug", "8")
	mugVariant := seed.Variant(t, mug, "Color", "Red", "0")

	cases := []struct {
		name  string
		input document.ItemInput
		want  error
	}{
		{"zero quantity", document.ItemInput{ProductID: shirt.String()}, document.ErrInvalidQuantity},
		{"negative price", document.ItemInput{ProductID: shirt.String(), Quantity: 1, UnitPrice: price("-1")}, document.ErrInvalidUnitPrice},
		{"price finer than cents", document.ItemInput{Description: "Metered", Quantity: 3, UnitPrice: price("0.333")}, document.ErrInvalidUnitPrice},
		{"free text without price", document.ItemInput{Description: "Consulting", Quantity: 1}, document.ErrInvalidUnitPrice},
		{"free text without description", document.ItemInput{Quantity: 1, UnitPrice: price("5")}, document.ErrInvalidDescription},
		{"unknown product", document.ItemInput{ProductID: "123", Quantity: 1}, document.ErrProductNotFound},
		{"foreign variant", document.ItemInput{ProductID: shirt.String(), VariantID: mugVariant.String(), Quantity: 1}, document.ErrVariantMismatch},
		{"malformed id", document.ItemInput{ProductID: "abc", Quantity: 1}, document.ErrInvalidItemID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pricer.Price(ctx, db, 1, 1, []document.ItemInput{tc.input})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestReplaceItemsSwapsWholeSet(t *testing.T) {
	pricer, db, _ := newPricer(t)
	ctx := testutil.OrgContext(1)
	store := document.NewItemStore()

	first, err := pricer.Price(ctx, db, 1, 7, []document.ItemInput{
		{Description: "A", Quantity: 1, UnitPrice: price("1")},
		{Description: "B", Quantity: 1, UnitPrice: price("2")},
	})
	require.NoError(t, err)
	require.NoError(t, store.ReplaceItems(ctx, db, document.KindQuotation, 1, 7, first))

	second, err := pricer.Price(ctx, db, 1, 7, []document.ItemInput{
		{Description: "C", Quantity: 3, UnitPrice: price("3")},
	})
	require.NoError(t, err)
	require.NoError(t, store.ReplaceItems(ctx, db, document.KindQuotation, 1, 7, second))

	items, err := store.ListItems(ctx, db, document.KindQuotation, 1, 7)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "C", items[0].Description)
	assert.Equal(t, "9.00", items[0].Amount.StringFixed(2))

	other, err := store.ListItems(ctx, db, document.KindInvoice, 1, 7)
	require.NoError(t, err)
	assert.Empty(t, other)
}
