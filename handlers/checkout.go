package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"storefront-service/internal/campaigns"
	"storefront-service/internal/orders"
	"storefront-service/internal/stores"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
)

// CheckoutRequest is the shopper's cart submission. Prices are deliberately
// absent: the server recomputes everything from stored variant data.
type CheckoutRequest struct {
	CampaignID    string            `json:"campaign_id" validate:"required,uuid4"`
	CustomerEmail string            `json:"customer_email" validate:"required,email"`
	CustomerName  string            `json:"customer_name" validate:"required,max=200"`
	CustomerPhone string            `json:"customer_phone" validate:"max=50"`
	Items         []orders.CartLine `json:"items" validate:"required,min=1,dive"`
}

// stripeClientForStore picks the store's own Stripe account when connected,
// falling back to the platform key.
func stripeClientForStore(store stores.Store) (*stripeclient.API, string, error) {
	secretKey := os.Getenv("STRIPE_TEST_KEY")
	publishableKey := os.Getenv("STRIPE_PUBLISHABLE_KEY")
	if store.StripeConnected && store.StripeSecretKey != "" {
		secretKey = store.StripeSecretKey
		publishableKey = store.StripePublishableKey
	}
	if secretKey == "" {
		return nil, "", errors.New("stripe secret key not configured")
	}

	api := &stripeclient.API{}
	api.Init(secretKey, nil)
	return api, publishableKey, nil
}

// Checkout prices the cart server-side, opens a payment intent for the
// computed total and records a pending order. The client receives only the
// intent's client secret and the computed breakdown; nothing it sends back
// later is trusted for money.
func (h *Handler) Checkout(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req CheckoutRequest
	if !h.bindAndValidate(c, traceId, &req) {
		return
	}

	ctx := c.Request.Context()

	campaign, err := h.cm.GetCampaignByID(ctx, req.CampaignID)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		slog.Error("error in retrieving campaign", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.CampaignID, req.CampaignID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch campaign"})
		return
	}
	if !campaigns.AcceptsOrders(campaign, time.Now().UTC()) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Campaign is not accepting orders"})
		return
	}

	store, err := h.s.GetStoreByID(ctx, campaign.StoreID)
	if err != nil {
		slog.Error("error in retrieving store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, campaign.StoreID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch store"})
		return
	}

	priced, err := orders.PriceCart(ctx, h.p, campaign.ID, req.Items, store.TaxRate)
	if err != nil {
		h.abortWithPricingError(c, traceId, err)
		return
	}

	api, publishableKey, err := stripeClientForStore(store)
	if err != nil {
		slog.Error("stripe not configured", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, store.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Payments are not configured for this store"})
		return
	}

	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		slog.Error("failed to marshal cart items", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
		return
	}

	orderId := uuid.NewString()
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(priced.TotalCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", orderId)
	params.AddMetadata("campaign_id", campaign.ID)
	params.AddMetadata("customer_email", req.CustomerEmail)
	params.AddMetadata("customer_name", req.CustomerName)
	params.AddMetadata("items", string(itemsJSON))

	intent, err := api.PaymentIntents.New(params)
	if err != nil {
		slog.Error("error creating payment intent", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.CampaignID, campaign.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment intent"})
		return
	}

	order, err := h.o.CreatePendingOrder(ctx, orderId, campaign.ID, req.CustomerEmail,
		req.CustomerName, req.CustomerPhone, intent.ID, priced)
	if err != nil {
		slog.Error("error creating order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, orderId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_secret":   intent.ClientSecret,
		"publishable_key": publishableKey,
		"order_id":        order.ID,
		"order_number":    order.OrderNumber,
		"subtotal_cents":  priced.SubtotalCents,
		"tax_cents":       priced.TaxCents,
		"total_cents":     priced.TotalCents,
	})
}

// abortWithPricingError maps the pricing engine's typed failures onto HTTP
// responses. Anything client-correctable is a 4xx.
func (h *Handler) abortWithPricingError(c *gin.Context, traceId string, err error) {
	slog.Error("cart pricing failed", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.ERROR, err.Error()))
	switch {
	case errors.Is(err, orders.ErrUnknownVariant):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "One of the cart items no longer exists, refresh your cart"})
	case errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrCustomizationRequired),
		errors.Is(err, orders.ErrCustomizationTooLong):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to price cart"})
	}
}
