package orders

import "time"

const (
	StatusPending         = "pending"
	StatusCompleted       = "completed"
	StatusPaymentFailed   = "payment_failed"
	StatusPaymentMismatch = "payment_mismatch"
	StatusRefunded        = "refunded"
	StatusShipped         = "shipped"
	StatusCanceled        = "canceled"
)

// Order is the persisted record of a confirmed (or in-flight) purchase. The
// monetary fields are always server-computed; client-supplied prices never
// reach this table.
type Order struct {
	ID                    string      `json:"id"`
	OrderNumber           string      `json:"order_number"`
	CampaignID            string      `json:"campaign_id"`
	CustomerEmail         string      `json:"customer_email"`
	CustomerName          string      `json:"customer_name"`
	CustomerPhone         string      `json:"customer_phone,omitempty"`
	SubtotalCents         int64       `json:"subtotal_cents"`
	TaxCents              int64       `json:"tax_cents"`
	TotalCents            int64       `json:"total_cents"`
	StripePaymentIntentID string      `json:"stripe_payment_intent_id,omitempty"`
	Status                string      `json:"status"`
	Notes                 string      `json:"notes,omitempty"`
	Items                 []OrderItem `json:"items,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// OrderItem is one persisted order line. SKU is resolved from the variant on
// read so receipts and events can describe the line.
type OrderItem struct {
	ID                 string    `json:"id"`
	OrderID            string    `json:"order_id"`
	VariantID          string    `json:"variant_id"`
	SKU                string    `json:"sku,omitempty"`
	CustomizationValue string    `json:"customization_value,omitempty"`
	Quantity           int       `json:"quantity"`
	UnitPriceCents     int64     `json:"unit_price_cents"`
	TotalPriceCents    int64     `json:"total_price_cents"`
	CreatedAt          time.Time `json:"created_at"`
}

// CartLine is a client-supplied, untrusted request to purchase a variant.
// Everything in it is re-validated against server state by PriceCart.
type CartLine struct {
	VariantID          string `json:"variant_id" validate:"required,uuid4"`
	Quantity           int    `json:"quantity" validate:"required"`
	CustomizationValue string `json:"customization_value"`
}

// PricedLine is one line of a server-computed order breakdown.
type PricedLine struct {
	VariantID          string            `json:"variant_id"`
	SKU                string            `json:"sku"`
	OptionCombo        map[string]string `json:"option_combo"`
	Quantity           int               `json:"quantity"`
	UnitPriceCents     int64             `json:"unit_price_cents"`
	LineTotalCents     int64             `json:"line_total_cents"`
	CustomizationValue string            `json:"customization_value,omitempty"`
}

// PricedOrder is the authoritative monetary breakdown of a cart, derived
// entirely from persisted variant prices and the store tax rate.
type PricedOrder struct {
	SubtotalCents int64        `json:"subtotal_cents"`
	TaxCents      int64        `json:"tax_cents"`
	TotalCents    int64        `json:"total_cents"`
	Lines         []PricedLine `json:"lines"`
}
