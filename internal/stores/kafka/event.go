package kafka

import "time"

const (
	TopicOrderPaid     = `storefront-service.order-paid`
	TopicOrderRefunded = `storefront-service.order-refunded`
)

// OrderPaidEvent is emitted once per order line after a payment is confirmed
// and the order is persisted. Fulfillment consumers key on the order id.
type OrderPaidEvent struct {
	OrderId    string    `json:"order_id"`
	CampaignId string    `json:"campaign_id"`
	VariantId  string    `json:"variant_id"`
	Sku        string    `json:"sku"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderRefundedEvent is emitted when the payment processor reports a refund.
type OrderRefundedEvent struct {
	OrderId   string    `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}
