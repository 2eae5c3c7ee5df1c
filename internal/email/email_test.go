package email

import (
	"testing"

	"storefront-service/internal/orders"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOrderConfirmation(t *testing.T) {
	order := orders.Order{
		OrderNumber:   "ORD-ABCDEF1234",
		CustomerName:  "Ada Lovelace",
		SubtotalCents: 2600,
		TaxCents:      208,
		TotalCents:    2808,
		Items: []orders.OrderItem{
			{VariantID: "var-1", SKU: "L-BLU-7Q2F", Quantity: 2, TotalPriceCents: 2600},
		},
	}

	body, err := RenderOrderConfirmation(order)
	require.NoError(t, err)

	assert.Contains(t, body, "Hi Ada Lovelace")
	assert.Contains(t, body, "ORD-ABCDEF1234")
	assert.Contains(t, body, "2 x L-BLU-7Q2F - $26.00")
	assert.NotContains(t, body, "var-1")
	assert.Contains(t, body, "Subtotal: $26.00")
	assert.Contains(t, body, "Tax:      $2.08")
	assert.Contains(t, body, "Total:    $28.08")
}

func TestRenderOrderConfirmationSmallAmounts(t *testing.T) {
	order := orders.Order{
		OrderNumber:  "ORD-0000000001",
		CustomerName: "Grace",
		TotalCents:   5,
	}

	body, err := RenderOrderConfirmation(order)
	require.NoError(t, err)
	assert.Contains(t, body, "Total:    $0.05")
}

func TestRenderOrderConfirmationItemDetails(t *testing.T) {
	order := orders.Order{
		OrderNumber:  "ORD-0000000002",
		CustomerName: "Grace",
		Items: []orders.OrderItem{
			{VariantID: "var-9", SKU: "M-RED-1AB2", CustomizationValue: "Team Rocket",
				Quantity: 1, TotalPriceCents: 1300},
			{VariantID: "var-legacy", Quantity: 1, TotalPriceCents: 500},
		},
	}

	body, err := RenderOrderConfirmation(order)
	require.NoError(t, err)
	assert.Contains(t, body, "1 x M-RED-1AB2 (Team Rocket) - $13.00")
	// A line whose variant no longer resolves still identifies itself.
	assert.Contains(t, body, "1 x var-legacy - $5.00")
}
