package products

import (
	"fmt"
	"time"
)

const (
	StatusActive  = "active"
	StatusHidden  = "hidden"
	StatusSoldOut = "sold_out"
)

// Customization modes. A "none" product ignores any text a client sends,
// "optional" surcharges only when text is present, "required" rejects empty text.
const (
	CustomizationNone     = "none"
	CustomizationOptional = "optional"
	CustomizationRequired = "required"
)

// VariantOption is one selectable value inside a group, with a price delta
// relative to the product's base price. The delta may be negative.
type VariantOption struct {
	Value                string `json:"value" validate:"required"`
	PriceAdjustmentCents int64  `json:"price_adjustment_cents"`
}

// VariantGroup is one axis of variation, e.g. Size or Color.
type VariantGroup struct {
	Name    string          `json:"name" validate:"required"`
	Options []VariantOption `json:"options" validate:"required,min=1,dive"`
}

// CustomizationConfig controls free-text personalization for a product.
// It applies uniformly to every variant of the product.
type CustomizationConfig struct {
	Enabled        bool   `json:"enabled"`
	Mode           string `json:"mode" validate:"omitempty,oneof=none optional required"`
	Label          string `json:"label"`
	Placeholder    string `json:"placeholder,omitempty"`
	MaxLength      int    `json:"max_length,omitempty" validate:"omitempty,gt=0"`
	SurchargeCents int64  `json:"surcharge_cents,omitempty" validate:"omitempty,gte=0"`
}

// EffectiveMode normalizes the config: a disabled or empty config behaves
// like mode "none".
func (cc CustomizationConfig) EffectiveMode() string {
	if !cc.Enabled || cc.Mode == "" {
		return CustomizationNone
	}
	return cc.Mode
}

// Variant is one concrete purchasable SKU: a full choice of one option per
// group, with the derived price. Price is immutable once persisted; pricing
// changes require regenerating the product's variant set.
type Variant struct {
	ID                string            `json:"id"`
	CampaignProductID string            `json:"campaign_product_id"`
	SKU               string            `json:"sku"`
	OptionCombo       map[string]string `json:"option_combo"`
	PriceCents        int64             `json:"price_cents"`
	ImageURL          string            `json:"image_url,omitempty"`
	TotalOrdered      int64             `json:"total_ordered"`
	PriceClamped      bool              `json:"price_clamped,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Product is a campaign product with its option groups and customization
// settings. The variant set derived from the groups lives in the variants
// table and is bulk-replaced whenever groups or base price change.
type Product struct {
	ID                string              `json:"id"`
	CampaignID        string              `json:"campaign_id"`
	Title             string              `json:"title"`
	Description       string              `json:"description,omitempty"`
	BasePriceCents    int64               `json:"base_price_cents"`
	Category          string              `json:"category,omitempty"`
	Images            []string            `json:"images"`
	VariantGroups     []VariantGroup      `json:"variant_groups"`
	Customization     CustomizationConfig `json:"customization_config"`
	Status            string              `json:"status"`
	SortOrder         int                 `json:"sort_order"`
	TotalOrdered      int64               `json:"total_ordered"`
	PriceReviewNeeded bool                `json:"price_review_needed"`
	Version           int64               `json:"version"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// NewProduct is the payload accepted when creating a product.
type NewProduct struct {
	CampaignID     string              `json:"campaign_id" validate:"required,uuid4"`
	Title          string              `json:"title" validate:"required,min=3,max=200"`
	Description    string              `json:"description" validate:"max=5000"`
	BasePriceCents int64               `json:"base_price_cents" validate:"required,gt=0"`
	Category       string              `json:"category" validate:"max=100"`
	Images         []string            `json:"images" validate:"dive,url"`
	VariantGroups  []VariantGroup      `json:"variant_groups" validate:"dive"`
	Customization  CustomizationConfig `json:"customization_config"`
}

// UpdateProduct carries the mutable product fields; nil means unchanged.
// Changing VariantGroups or BasePriceCents triggers a full variant
// regeneration guarded by the product version.
type UpdateProduct struct {
	Title          *string              `json:"title" validate:"omitempty,min=3,max=200"`
	Description    *string              `json:"description" validate:"omitempty,max=5000"`
	BasePriceCents *int64               `json:"base_price_cents" validate:"omitempty,gt=0"`
	Category       *string              `json:"category" validate:"omitempty,max=100"`
	Images         *[]string            `json:"images" validate:"omitempty,dive,url"`
	VariantGroups  *[]VariantGroup      `json:"variant_groups" validate:"omitempty,dive"`
	Customization  *CustomizationConfig `json:"customization_config"`
	Status         *string              `json:"status" validate:"omitempty,oneof=active hidden sold_out"`
	SortOrder      *int                 `json:"sort_order"`
}

// ValidateGroups enforces the structural invariants the generator relies on:
// unique group names and at least one option with a non-empty value per group.
func ValidateGroups(groups []VariantGroup) error {
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g.Name == "" {
			return fmt.Errorf("variant group name is required")
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate variant group name %q", g.Name)
		}
		seen[g.Name] = true
		if len(g.Options) == 0 {
			return fmt.Errorf("variant group %q has no options", g.Name)
		}
		for _, opt := range g.Options {
			if opt.Value == "" {
				return fmt.Errorf("variant group %q has an option with empty value", g.Name)
			}
		}
	}
	return nil
}
