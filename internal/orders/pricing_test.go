package orders

import (
	"context"
	"testing"

	"storefront-service/internal/products"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCatalog is an in-memory VariantCatalog for pricing tests.
type memCatalog struct {
	variants map[string]catalogEntry
}

type catalogEntry struct {
	variant    products.Variant
	custom     products.CustomizationConfig
	campaignID string
}

func (m *memCatalog) VariantForPricing(_ context.Context, variantID string) (products.Variant, products.CustomizationConfig, string, error) {
	e, ok := m.variants[variantID]
	if !ok {
		return products.Variant{}, products.CustomizationConfig{}, "", products.ErrNotFound
	}
	return e.variant, e.custom, e.campaignID, nil
}

func (m *memCatalog) add(id string, priceCents int64, campaignID string, custom products.CustomizationConfig) {
	if m.variants == nil {
		m.variants = map[string]catalogEntry{}
	}
	m.variants[id] = catalogEntry{
		variant:    products.Variant{ID: id, SKU: "SKU-" + id, PriceCents: priceCents},
		custom:     custom,
		campaignID: campaignID,
	}
}

func TestPriceCartEndToEnd(t *testing.T) {
	// A tee at 1000 base with Size [S, M, L+200] and Color [Red, Blue+100]
	// expands to six variants; L/Blue lands at 1300.
	groups := []products.VariantGroup{
		{Name: "Size", Options: []products.VariantOption{
			{Value: "S"}, {Value: "M"}, {Value: "L", PriceAdjustmentCents: 200},
		}},
		{Name: "Color", Options: []products.VariantOption{
			{Value: "Red"}, {Value: "Blue", PriceAdjustmentCents: 100},
		}},
	}
	variants, err := products.GenerateVariants(groups, 1000, products.DefaultVariantCeiling)
	require.NoError(t, err)
	require.Len(t, variants, 6)

	catalog := &memCatalog{}
	var lBlueID string
	for i, v := range variants {
		id := variants[i].SKU
		if v.OptionCombo["Size"] == "L" && v.OptionCombo["Color"] == "Blue" {
			lBlueID = id
			assert.Equal(t, int64(1300), v.PriceCents)
		}
		catalog.variants = appendVariant(catalog.variants, id, v, "camp-1")
	}
	require.NotEmpty(t, lBlueID)

	priced, err := PriceCart(context.Background(), catalog, "camp-1",
		[]CartLine{{VariantID: lBlueID, Quantity: 2}}, 0.08)
	require.NoError(t, err)

	assert.Equal(t, int64(2600), priced.SubtotalCents)
	assert.Equal(t, int64(208), priced.TaxCents)
	assert.Equal(t, int64(2808), priced.TotalCents)
	require.Len(t, priced.Lines, 1)
	assert.Equal(t, int64(1300), priced.Lines[0].UnitPriceCents)
	assert.Equal(t, int64(2600), priced.Lines[0].LineTotalCents)
}

func appendVariant(m map[string]catalogEntry, id string, v products.Variant, campaignID string) map[string]catalogEntry {
	if m == nil {
		m = map[string]catalogEntry{}
	}
	v.ID = id
	m[id] = catalogEntry{variant: v, campaignID: campaignID}
	return m
}

func TestPriceCartDeterministic(t *testing.T) {
	catalog := &memCatalog{}
	catalog.add("v1", 1299, "camp-1", products.CustomizationConfig{})
	catalog.add("v2", 550, "camp-1", products.CustomizationConfig{})

	lines := []CartLine{
		{VariantID: "v1", Quantity: 3},
		{VariantID: "v2", Quantity: 1},
	}

	first, err := PriceCart(context.Background(), catalog, "camp-1", lines, 0.0825)
	require.NoError(t, err)
	second, err := PriceCart(context.Background(), catalog, "camp-1", lines, 0.0825)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.SubtotalCents+first.TaxCents, first.TotalCents)
}

func TestPriceCartRounding(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		rate     float64
		wantTax  int64
	}{
		{"exact", 10000, 0.08, 800},
		{"fraction below half rounds down", 333, 0.0825, 27}, // 27.4725
		{"fraction at half rounds up", 100, 0.085, 9},        // 8.5
		{"small fraction rounds down", 100, 0.0825, 8},       // 8.25
		{"zero rate", 5000, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantTax, RoundTax(tc.subtotal, tc.rate))
		})
	}
}

func TestPriceCartQuantityValidation(t *testing.T) {
	catalog := &memCatalog{}
	catalog.add("v1", 1000, "camp-1", products.CustomizationConfig{})

	for _, qty := range []int{0, -1, -50} {
		_, err := PriceCart(context.Background(), catalog, "camp-1",
			[]CartLine{{VariantID: "v1", Quantity: qty}}, 0.05)
		require.ErrorIs(t, err, ErrInvalidQuantity, "quantity %d", qty)
	}
}

func TestPriceCartUnknownVariant(t *testing.T) {
	catalog := &memCatalog{}
	catalog.add("v1", 1000, "camp-1", products.CustomizationConfig{})

	_, err := PriceCart(context.Background(), catalog, "camp-1",
		[]CartLine{{VariantID: "missing", Quantity: 1}}, 0.05)
	require.ErrorIs(t, err, ErrUnknownVariant)
}

func TestPriceCartCampaignPinning(t *testing.T) {
	catalog := &memCatalog{}
	catalog.add("v1", 1000, "camp-other", products.CustomizationConfig{})

	_, err := PriceCart(context.Background(), catalog, "camp-1",
		[]CartLine{{VariantID: "v1", Quantity: 1}}, 0.05)
	require.ErrorIs(t, err, ErrUnknownVariant)
}

func TestPriceCartEmptyCart(t *testing.T) {
	catalog := &memCatalog{}
	_, err := PriceCart(context.Background(), catalog, "camp-1", nil, 0.05)
	require.Error(t, err)
}

func TestPriceCartTaxRateRange(t *testing.T) {
	catalog := &memCatalog{}
	catalog.add("v1", 1000, "camp-1", products.CustomizationConfig{})
	lines := []CartLine{{VariantID: "v1", Quantity: 1}}

	_, err := PriceCart(context.Background(), catalog, "camp-1", lines, -0.01)
	require.Error(t, err)
	_, err = PriceCart(context.Background(), catalog, "camp-1", lines, 1.01)
	require.Error(t, err)
}

func TestPriceCartCustomization(t *testing.T) {
	optional := products.CustomizationConfig{
		Enabled: true, Mode: products.CustomizationOptional,
		MaxLength: 10, SurchargeCents: 300,
	}
	required := products.CustomizationConfig{
		Enabled: true, Mode: products.CustomizationRequired,
		MaxLength: 10, SurchargeCents: 300,
	}

	catalog := &memCatalog{}
	catalog.add("plain", 1000, "camp-1", products.CustomizationConfig{})
	catalog.add("optional", 1000, "camp-1", optional)
	catalog.add("required", 1000, "camp-1", required)

	ctx := context.Background()

	t.Run("text on non-customizable variant is ignored", func(t *testing.T) {
		priced, err := PriceCart(ctx, catalog, "camp-1",
			[]CartLine{{VariantID: "plain", Quantity: 1, CustomizationValue: "HELLO"}}, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), priced.SubtotalCents)
		assert.Empty(t, priced.Lines[0].CustomizationValue)
	})

	t.Run("optional without text has no surcharge", func(t *testing.T) {
		priced, err := PriceCart(ctx, catalog, "camp-1",
			[]CartLine{{VariantID: "optional", Quantity: 1}}, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), priced.SubtotalCents)
	})

	t.Run("optional with text adds surcharge per unit", func(t *testing.T) {
		priced, err := PriceCart(ctx, catalog, "camp-1",
			[]CartLine{{VariantID: "optional", Quantity: 2, CustomizationValue: "ACE"}}, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2600), priced.SubtotalCents)
		assert.Equal(t, "ACE", priced.Lines[0].CustomizationValue)
	})

	t.Run("required without text fails", func(t *testing.T) {
		_, err := PriceCart(ctx, catalog, "camp-1",
			[]CartLine{{VariantID: "required", Quantity: 1}}, 0)
		require.ErrorIs(t, err, ErrCustomizationRequired)
	})

	t.Run("required with text prices with surcharge", func(t *testing.T) {
		priced, err := PriceCart(ctx, catalog, "camp-1",
			[]CartLine{{VariantID: "required", Quantity: 1, CustomizationValue: "ACE"}}, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1300), priced.SubtotalCents)
	})

	t.Run("max length counts characters not bytes", func(t *testing.T) {
		// "héllo wörl" is 10 characters but 12 bytes; it must fit the
		// MaxLength of 10.
		priced, err := PriceCart(ctx, catalog, "camp-1",
			[]CartLine{{VariantID: "optional", Quantity: 1, CustomizationValue: "héllo wörl"}}, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1300), priced.SubtotalCents)

		_, err = PriceCart(ctx, catalog, "camp-1",
			[]CartLine{{VariantID: "optional", Quantity: 1, CustomizationValue: "héllo wörld"}}, 0)
		require.ErrorIs(t, err, ErrCustomizationTooLong)
	})

	t.Run("text over max length fails", func(t *testing.T) {
		_, err := PriceCart(ctx, catalog, "camp-1",
			[]CartLine{{VariantID: "optional", Quantity: 1, CustomizationValue: "WAY TOO LONG TEXT"}}, 0)
		require.ErrorIs(t, err, ErrCustomizationTooLong)
	})
}

func TestPriceCartMultiLineSubtotal(t *testing.T) {
	catalog := &memCatalog{}
	catalog.add("v1", 1299, "camp-1", products.CustomizationConfig{})
	catalog.add("v2", 550, "camp-1", products.CustomizationConfig{})

	priced, err := PriceCart(context.Background(), catalog, "camp-1", []CartLine{
		{VariantID: "v1", Quantity: 3},
		{VariantID: "v2", Quantity: 2},
	}, 0.10)
	require.NoError(t, err)

	assert.Equal(t, int64(3*1299+2*550), priced.SubtotalCents)
	assert.Equal(t, int64(500), priced.TaxCents) // 4997 * 0.10 = 499.7
	assert.Equal(t, priced.SubtotalCents+priced.TaxCents, priced.TotalCents)
}
