package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"storefront-service/internal/products"
)

// Pricing failures. All of them are detected before any external side effect
// (payment attempt, persistence write) happens.
var (
	// ErrUnknownVariant means the cart referenced a variant that does not
	// exist (anymore) or belongs to a different campaign. Stale or tampered
	// client state; the shopper should refresh their cart.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrInvalidQuantity means a line requested a quantity below one.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrCustomizationRequired means a required-customization product was
	// ordered without customization text.
	ErrCustomizationRequired = errors.New("customization text is required")
	// ErrCustomizationTooLong means the customization text exceeds the
	// product's configured maximum length.
	ErrCustomizationTooLong = errors.New("customization text too long")
)

// VariantCatalog is the single external read the pricing engine performs:
// resolve a variant id to its authoritative price, the owning product's
// customization config and the owning campaign. products.Conf implements it
// against postgres; tests use an in-memory stub.
type VariantCatalog interface {
	VariantForPricing(ctx context.Context, variantID string) (products.Variant, products.CustomizationConfig, string, error)
}

// PriceCart recomputes the authoritative totals for a cart from persisted
// variant prices, never trusting any client-supplied amount. It runs twice
// per purchase, once when the payment intent is created and once when the
// payment confirmation webhook arrives, against current variant state both
// times.
//
// campaignID, when non-empty, pins every line to that campaign; a variant
// from another campaign is treated as unknown.
//
// The computation is deterministic: identical lines, tax rate and variant
// data always produce an identical PricedOrder.
func PriceCart(ctx context.Context, catalog VariantCatalog, campaignID string, lines []CartLine, taxRate float64) (*PricedOrder, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}
	if taxRate < 0 || taxRate > 1 {
		return nil, fmt.Errorf("tax rate %v out of range [0,1]", taxRate)
	}

	priced := PricedOrder{Lines: make([]PricedLine, 0, len(lines))}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: variant %s quantity %d", ErrInvalidQuantity, line.VariantID, line.Quantity)
		}

		variant, custom, owningCampaign, err := catalog.VariantForPricing(ctx, line.VariantID)
		if err != nil {
			if errors.Is(err, products.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, line.VariantID)
			}
			return nil, fmt.Errorf("failed to fetch variant %s: %w", line.VariantID, err)
		}
		if campaignID != "" && owningCampaign != campaignID {
			return nil, fmt.Errorf("%w: %s belongs to another campaign", ErrUnknownVariant, line.VariantID)
		}

		text := line.CustomizationValue
		mode := custom.EffectiveMode()
		switch mode {
		case products.CustomizationNone:
			// Text on a non-customizable product is meaningless input:
			// no surcharge, no error, and it is not persisted.
			text = ""
		case products.CustomizationRequired:
			if text == "" {
				return nil, fmt.Errorf("%w: variant %s", ErrCustomizationRequired, line.VariantID)
			}
		}
		// max_length is a character limit, not bytes.
		if text != "" && custom.MaxLength > 0 && utf8.RuneCountInString(text) > custom.MaxLength {
			return nil, fmt.Errorf("%w: variant %s, max %d characters", ErrCustomizationTooLong, line.VariantID, custom.MaxLength)
		}

		unitPrice := variant.PriceCents
		if text != "" {
			unitPrice += custom.SurchargeCents
		}
		lineTotal := unitPrice * int64(line.Quantity)

		priced.Lines = append(priced.Lines, PricedLine{
			VariantID:          variant.ID,
			SKU:                variant.SKU,
			OptionCombo:        variant.OptionCombo,
			Quantity:           line.Quantity,
			UnitPriceCents:     unitPrice,
			LineTotalCents:     lineTotal,
			CustomizationValue: text,
		})
		priced.SubtotalCents += lineTotal
	}

	priced.TaxCents = RoundTax(priced.SubtotalCents, taxRate)
	priced.TotalCents = priced.SubtotalCents + priced.TaxCents
	return &priced, nil
}

// RoundTax computes tax in cents using round-half-up. The same rule runs at
// intent creation and at webhook confirmation, so the two computations can
// never disagree by a cent on identical inputs.
func RoundTax(subtotalCents int64, taxRate float64) int64 {
	return int64(math.Floor(float64(subtotalCents)*taxRate + 0.5))
}
