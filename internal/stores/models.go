package stores

import (
	"regexp"
	"strings"
	"time"
)

// ThemeColors is the JSON blob controlling the public storefront styling.
type ThemeColors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Store is one merchant tenant. Each store owns its campaigns, its tax rate
// and its own Stripe credentials.
type Store struct {
	ID                   string      `json:"id"`
	Slug                 string      `json:"slug"`
	Name                 string      `json:"name"`
	LogoURL              string      `json:"logo_url,omitempty"`
	ThemeColors          ThemeColors `json:"theme_colors"`
	ContactEmail         string      `json:"contact_email,omitempty"`
	ShippingPolicy       string      `json:"shipping_policy,omitempty"`
	TaxRate              float64     `json:"tax_rate"`
	StripeSecretKey      string      `json:"-"`
	StripePublishableKey string      `json:"stripe_publishable_key,omitempty"`
	StripeWebhookSecret  string      `json:"-"`
	StripeConnected      bool        `json:"stripe_connected"`
	CreatedBy            string      `json:"created_by"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// NewStore is the payload accepted when creating a store.
type NewStore struct {
	Slug           string      `json:"slug" validate:"omitempty,min=2,max=100"`
	Name           string      `json:"name" validate:"required,min=2,max=100"`
	LogoURL        string      `json:"logo_url" validate:"omitempty,url"`
	ThemeColors    ThemeColors `json:"theme_colors"`
	ContactEmail   string      `json:"contact_email" validate:"omitempty,email"`
	ShippingPolicy string      `json:"shipping_policy" validate:"max=5000"`
	TaxRate        float64     `json:"tax_rate" validate:"gte=0,lte=1"`
}

// UpdateStore carries the mutable store fields; nil means leave unchanged.
type UpdateStore struct {
	Name           *string      `json:"name" validate:"omitempty,min=2,max=100"`
	LogoURL        *string      `json:"logo_url" validate:"omitempty,url"`
	ThemeColors    *ThemeColors `json:"theme_colors"`
	ContactEmail   *string      `json:"contact_email" validate:"omitempty,email"`
	ShippingPolicy *string      `json:"shipping_policy" validate:"omitempty,max=5000"`
	TaxRate        *float64     `json:"tax_rate" validate:"omitempty,gte=0,lte=1"`
}

// StripeSettings are the per-store payment processor credentials.
type StripeSettings struct {
	SecretKey      string `json:"stripe_secret_key" validate:"required"`
	PublishableKey string `json:"stripe_publishable_key" validate:"required"`
	WebhookSecret  string `json:"stripe_webhook_secret" validate:"required"`
}

var (
	slugInvalidChars = regexp.MustCompile(`[^\w\s-]`)
	slugSeparators   = regexp.MustCompile(`[\s_-]+`)
	slugEdgeHyphens  = regexp.MustCompile(`^-+|-+$`)
	slugPattern      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// GenerateSlug derives a URL slug from a display name.
func GenerateSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugInvalidChars.ReplaceAllString(s, "")
	s = slugSeparators.ReplaceAllString(s, "-")
	return slugEdgeHyphens.ReplaceAllString(s, "")
}

// ValidSlug reports whether s is lowercase alphanumeric joined by single hyphens.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
