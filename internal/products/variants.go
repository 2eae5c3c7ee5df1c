package products

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// DefaultVariantCeiling bounds the combinatorial size of a variant matrix.
// A careless admin can otherwise request billions of rows with a handful of
// ten-option groups. Overridable via the VARIANT_CEILING env in main.
const DefaultVariantCeiling = 500

// ErrTooManyVariants is returned before any variant is built when the
// Cartesian product of the option counts exceeds the ceiling.
var ErrTooManyVariants = errors.New("too many variant combinations")

// CombinationCount returns the size of the Cartesian product of the groups,
// failing early once the running product exceeds the ceiling so the count
// itself cannot overflow.
func CombinationCount(groups []VariantGroup, ceiling int) (int, error) {
	count := 1
	for _, g := range groups {
		if len(g.Options) == 0 {
			return 0, fmt.Errorf("variant group %q has no options", g.Name)
		}
		count *= len(g.Options)
		if count > ceiling {
			return 0, fmt.Errorf("%w: ceiling is %d", ErrTooManyVariants, ceiling)
		}
	}
	return count, nil
}

// GenerateVariants expands the option groups into the full set of purchasable
// variants. Groups are processed in declared order, so output order and SKU
// construction are deterministic for a given suffix source.
//
// A product with zero groups yields exactly one variant at the base price
// with an empty combo; every product stays purchasable.
//
// A combination whose price sums below zero is clamped to zero and marked
// PriceClamped rather than rejected, so one bad delta does not block the
// valid combinations in the same matrix. Callers should flag the product
// for admin review when any variant comes back clamped.
func GenerateVariants(groups []VariantGroup, basePriceCents int64, ceiling int) ([]Variant, error) {
	if ceiling <= 0 {
		ceiling = DefaultVariantCeiling
	}
	count, err := CombinationCount(groups, ceiling)
	if err != nil {
		return nil, err
	}

	type partial struct {
		combo map[string]string
		price int64
	}

	// Iterative fold over the groups: each pass extends every partial combo
	// with every option of the current group.
	partials := []partial{{combo: map[string]string{}, price: basePriceCents}}
	for _, g := range groups {
		next := make([]partial, 0, len(partials)*len(g.Options))
		for _, p := range partials {
			for _, opt := range g.Options {
				combo := make(map[string]string, len(p.combo)+1)
				for k, v := range p.combo {
					combo[k] = v
				}
				combo[g.Name] = opt.Value
				next = append(next, partial{combo: combo, price: p.price + opt.PriceAdjustmentCents})
			}
		}
		partials = next
	}

	variants := make([]Variant, 0, count)
	for _, p := range partials {
		v := Variant{
			SKU:         BuildSKU(groups, p.combo),
			OptionCombo: p.combo,
			PriceCents:  p.price,
		}
		if v.PriceCents < 0 {
			v.PriceCents = 0
			v.PriceClamped = true
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// BuildSKU derives a human-legible SKU prefix from the first three characters
// of each chosen option value (upper-cased, group order), then appends a
// random suffix. Two combos abbreviating identically ("Navy"/"Navy Blue")
// still get distinct SKUs through the suffix; the DB unique constraint is the
// backstop and inserts retry with a fresh suffix on collision.
func BuildSKU(groups []VariantGroup, combo map[string]string) string {
	parts := make([]string, 0, len(groups)+1)
	for _, g := range groups {
		// First three characters, not bytes; slicing mid-rune would corrupt
		// multi-byte option values.
		value := []rune(combo[g.Name])
		end := 3
		if len(value) < end {
			end = len(value)
		}
		parts = append(parts, strings.ToUpper(string(value[:end])))
	}
	parts = append(parts, RandomSKUSuffix())
	return strings.Join(parts, "-")
}

const skuSuffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomSKUSuffix returns a 4-character base-36 disambiguator.
func RandomSKUSuffix() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = skuSuffixAlphabet[rand.Intn(len(skuSuffixAlphabet))]
	}
	return string(b)
}

// ReissueSKU replaces a variant's random suffix, keeping the legible prefix.
// Used when a bulk insert hits the SKU unique constraint.
func ReissueSKU(sku string) string {
	idx := strings.LastIndex(sku, "-")
	if idx < 0 {
		return RandomSKUSuffix()
	}
	return sku[:idx+1] + RandomSKUSuffix()
}
