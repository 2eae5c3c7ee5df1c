package products

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func group(name string, opts ...VariantOption) VariantGroup {
	return VariantGroup{Name: name, Options: opts}
}

func opt(value string, delta int64) VariantOption {
	return VariantOption{Value: value, PriceAdjustmentCents: delta}
}

func TestCombinationCount(t *testing.T) {
	tests := []struct {
		name    string
		groups  []VariantGroup
		ceiling int
		want    int
		wantErr error
	}{
		{
			name:    "no groups",
			groups:  nil,
			ceiling: 500,
			want:    1,
		},
		{
			name: "two by three",
			groups: []VariantGroup{
				group("Size", opt("S", 0), opt("M", 0), opt("L", 0)),
				group("Color", opt("Red", 0), opt("Blue", 0)),
			},
			ceiling: 500,
			want:    6,
		},
		{
			name: "exceeds ceiling",
			groups: []VariantGroup{
				group("A", opt("1", 0), opt("2", 0), opt("3", 0)),
				group("B", opt("1", 0), opt("2", 0), opt("3", 0)),
			},
			ceiling: 8,
			wantErr: ErrTooManyVariants,
		},
		{
			name: "exactly at ceiling",
			groups: []VariantGroup{
				group("A", opt("1", 0), opt("2", 0), opt("3", 0)),
				group("B", opt("1", 0), opt("2", 0), opt("3", 0)),
			},
			ceiling: 9,
			want:    9,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CombinationCount(tc.groups, tc.ceiling)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCombinationCountEmptyGroup(t *testing.T) {
	_, err := CombinationCount([]VariantGroup{group("Size")}, 500)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTooManyVariants)
}

func TestGenerateVariantsCompleteness(t *testing.T) {
	groups := []VariantGroup{
		group("Size", opt("S", 0), opt("M", 0), opt("L", 200)),
		group("Color", opt("Red", 0), opt("Blue", 100)),
		group("Fit", opt("Slim", 0), opt("Relaxed", 50)),
	}

	variants, err := GenerateVariants(groups, 1000, DefaultVariantCeiling)
	require.NoError(t, err)
	require.Len(t, variants, 12)

	// Every combination appears exactly once.
	seen := map[string]bool{}
	for _, v := range variants {
		require.Len(t, v.OptionCombo, 3)
		key := fmt.Sprintf("%s/%s/%s", v.OptionCombo["Size"], v.OptionCombo["Color"], v.OptionCombo["Fit"])
		assert.False(t, seen[key], "duplicate combination %s", key)
		seen[key] = true
	}
	assert.Len(t, seen, 12)
}

func TestGenerateVariantsPriceAdditivity(t *testing.T) {
	groups := []VariantGroup{
		group("Size", opt("S", 0), opt("M", 0), opt("L", 200)),
		group("Color", opt("Red", 0), opt("Blue", 100)),
	}

	variants, err := GenerateVariants(groups, 1000, DefaultVariantCeiling)
	require.NoError(t, err)
	require.Len(t, variants, 6)

	deltas := map[string]int64{"S": 0, "M": 0, "L": 200, "Red": 0, "Blue": 100}
	for _, v := range variants {
		want := int64(1000) + deltas[v.OptionCombo["Size"]] + deltas[v.OptionCombo["Color"]]
		assert.Equal(t, want, v.PriceCents, "combo %v", v.OptionCombo)
		assert.False(t, v.PriceClamped)
	}
}

func TestGenerateVariantsClampsNegativePrices(t *testing.T) {
	groups := []VariantGroup{
		group("Tier", opt("Full", 0), opt("Clearance", -1500)),
	}

	variants, err := GenerateVariants(groups, 1000, DefaultVariantCeiling)
	require.NoError(t, err)
	require.Len(t, variants, 2)

	byTier := map[string]Variant{}
	for _, v := range variants {
		byTier[v.OptionCombo["Tier"]] = v
	}

	assert.Equal(t, int64(1000), byTier["Full"].PriceCents)
	assert.False(t, byTier["Full"].PriceClamped)

	assert.Equal(t, int64(0), byTier["Clearance"].PriceCents)
	assert.True(t, byTier["Clearance"].PriceClamped)
}

func TestGenerateVariantsCeiling(t *testing.T) {
	big := make([]VariantOption, 30)
	for i := range big {
		big[i] = opt(fmt.Sprintf("opt%d", i), 0)
	}
	groups := []VariantGroup{group("A", big...), group("B", big...)}

	_, err := GenerateVariants(groups, 1000, DefaultVariantCeiling)
	require.ErrorIs(t, err, ErrTooManyVariants)
}

func TestGenerateVariantsZeroGroups(t *testing.T) {
	variants, err := GenerateVariants(nil, 2500, DefaultVariantCeiling)
	require.NoError(t, err)
	require.Len(t, variants, 1)

	v := variants[0]
	assert.Equal(t, int64(2500), v.PriceCents)
	assert.Empty(t, v.OptionCombo)
	// SKU is the bare suffix when there are no option prefixes.
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-Z]{4}$`), v.SKU)
}

func TestBuildSKU(t *testing.T) {
	groups := []VariantGroup{
		group("Size", opt("Large", 0)),
		group("Color", opt("Navy Blue", 0)),
	}
	combo := map[string]string{"Size": "Large", "Color": "Navy Blue"}

	sku := BuildSKU(groups, combo)
	assert.Regexp(t, regexp.MustCompile(`^LAR-NAV-[0-9A-Z]{4}$`), sku)
}

func TestBuildSKUMultiByteOptionValue(t *testing.T) {
	groups := []VariantGroup{
		group("Flavor", opt("Šéfovská", 0)),
		group("Size", opt("Größe L", 0)),
	}
	combo := map[string]string{"Flavor": "Šéfovská", "Size": "Größe L"}

	sku := BuildSKU(groups, combo)
	assert.NotContains(t, sku, "�")
	assert.Regexp(t, regexp.MustCompile(`^ŠÉF-GRÖ-[0-9A-Z]{4}$`), sku)
}

func TestBuildSKUShortOptionValue(t *testing.T) {
	groups := []VariantGroup{group("Size", opt("S", 0))}
	sku := BuildSKU(groups, map[string]string{"Size": "S"})
	assert.Regexp(t, regexp.MustCompile(`^S-[0-9A-Z]{4}$`), sku)
}

func TestReissueSKU(t *testing.T) {
	sku := "LAR-NAV-ABCD"
	reissued := ReissueSKU(sku)

	assert.True(t, strings.HasPrefix(reissued, "LAR-NAV-"))
	assert.Regexp(t, regexp.MustCompile(`^LAR-NAV-[0-9A-Z]{4}$`), reissued)
}

func TestReissueSKUNoSeparator(t *testing.T) {
	reissued := ReissueSKU("ABCD")
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-Z]{4}$`), reissued)
}
