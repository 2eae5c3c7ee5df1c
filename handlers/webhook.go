package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"storefront-service/internal/email"
	"storefront-service/internal/orders"
	"storefront-service/internal/stores/kafka"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

const maxWebhookBodyBytes = int64(65536)

// Stripe sends one event per payment state change. The handler always answers
// 200 once the signature checks out, otherwise Stripe retries for days; real
// failures are recorded on the order instead.
func (h *Handler) StripeWebhook(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("error reading webhook body", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing Stripe-Signature header"})
		return
	}

	secret, err := h.webhookSecretFor(c, payload)
	if err != nil {
		slog.Error("error resolving webhook secret", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unable to verify webhook"})
		return
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		slog.Error("webhook signature verification failed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		h.handlePaymentSucceeded(c, traceId, event)
	case "payment_intent.payment_failed":
		h.handlePaymentFailed(c, traceId, event)
	case "charge.refunded":
		h.handleChargeRefunded(c, traceId, event)
	default:
		slog.Info("unhandled webhook event type", slog.String(logkey.TraceID, traceId),
			slog.String("Event Type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

// webhookSecretFor resolves the signing secret before signature verification.
// Each store may register its own endpoint secret; the campaign id in the
// intent metadata tells us whose secret to check against. The peek at the
// unverified body is only used for this lookup, never for money.
func (h *Handler) webhookSecretFor(c *gin.Context, payload []byte) (string, error) {
	fallback := os.Getenv("STRIPE_WEBHOOK_SECRET")

	var peek struct {
		Data struct {
			Object struct {
				Metadata map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &peek); err != nil {
		return fallback, nil
	}
	campaignID := peek.Data.Object.Metadata["campaign_id"]
	if campaignID == "" {
		return fallback, nil
	}

	store, err := h.s.GetStoreByCampaign(c.Request.Context(), campaignID)
	if err != nil {
		return fallback, nil
	}
	if store.StripeConnected && store.StripeWebhookSecret != "" {
		return store.StripeWebhookSecret, nil
	}
	return fallback, nil
}

// handlePaymentSucceeded is the second run of the pricing engine. The cart is
// re-priced from current server state and the result must match the amount
// Stripe actually charged; any disagreement marks the order payment_mismatch
// for manual review rather than confirming it.
func (h *Handler) handlePaymentSucceeded(c *gin.Context, traceId string, event stripe.Event) {
	ctx := c.Request.Context()

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		slog.Error("error parsing payment intent", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	campaignID := intent.Metadata["campaign_id"]
	var lines []orders.CartLine
	if err := json.Unmarshal([]byte(intent.Metadata["items"]), &lines); err != nil || campaignID == "" {
		slog.Error("payment intent metadata is unusable", slog.String(logkey.TraceID, traceId),
			slog.String("Payment Intent", intent.ID))
		h.markMismatch(ctx, traceId, intent.ID, "payment intent metadata missing or malformed")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	store, err := h.s.GetStoreByCampaign(ctx, campaignID)
	if err != nil {
		slog.Error("error in retrieving store for paid order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.CampaignID, campaignID), slog.String(logkey.ERROR, err.Error()))
		h.markMismatch(ctx, traceId, intent.ID, "store lookup failed during confirmation")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	priced, err := orders.PriceCart(ctx, h.p, campaignID, lines, store.TaxRate)
	if err != nil {
		slog.Error("repricing failed on confirmation", slog.String(logkey.TraceID, traceId),
			slog.String("Payment Intent", intent.ID), slog.String(logkey.ERROR, err.Error()))
		h.markMismatch(ctx, traceId, intent.ID, fmt.Sprintf("repricing failed: %v", err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if priced.TotalCents != intent.Amount {
		slog.Error("charged amount does not match recomputed total",
			slog.String(logkey.TraceID, traceId), slog.String("Payment Intent", intent.ID),
			slog.Int64("Charged Cents", intent.Amount), slog.Int64("Recomputed Cents", priced.TotalCents))
		h.markMismatch(ctx, traceId, intent.ID,
			fmt.Sprintf("charged %d cents but recomputed total is %d cents", intent.Amount, priced.TotalCents))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	order, err := h.o.ConfirmPaid(ctx, intent.ID, priced)
	if err != nil {
		slog.Error("error confirming order", slog.String(logkey.TraceID, traceId),
			slog.String("Payment Intent", intent.ID), slog.String(logkey.ERROR, err.Error()))
		status := confirmFailureStatus(err)
		if status == http.StatusOK {
			c.JSON(http.StatusOK, gin.H{"received": true})
		} else {
			c.AbortWithStatusJSON(status, gin.H{"error": "Failed to confirm order"})
		}
		return
	}

	go h.afterOrderPaid(order)

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// confirmFailureStatus picks the response code when completing a paid order
// fails. No matching pending order means the event was already processed (or
// belongs elsewhere) and redelivery cannot help; anything else is transient
// and must answer 5xx so Stripe redelivers instead of stranding a charged
// order in pending.
func confirmFailureStatus(err error) int {
	if errors.Is(err, orders.ErrNotFound) {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// afterOrderPaid runs the fire-and-forget side effects: one kafka event per
// line for fulfillment and a confirmation email to the customer. Failures are
// logged only, the payment is already settled.
func (h *Handler) afterOrderPaid(order orders.Order) {
	if h.k != nil {
		for _, item := range order.Items {
			event := kafka.OrderPaidEvent{
				OrderId:    order.ID,
				CampaignId: order.CampaignID,
				VariantId:  item.VariantID,
				Sku:        item.SKU,
				Quantity:   item.Quantity,
				CreatedAt:  time.Now().UTC(),
			}
			data, err := json.Marshal(event)
			if err != nil {
				slog.Error("failed to marshal order paid event", slog.String(logkey.OrderID, order.ID),
					slog.String(logkey.ERROR, err.Error()))
				continue
			}
			if err := h.k.ProduceMessage(kafka.TopicOrderPaid, []byte(order.ID), data); err != nil {
				slog.Error("failed to produce order paid event", slog.String(logkey.OrderID, order.ID),
					slog.String(logkey.ERROR, err.Error()))
			}
		}
	}

	if h.mailer != nil {
		body, err := email.RenderOrderConfirmation(order)
		if err != nil {
			slog.Error("failed to render confirmation email", slog.String(logkey.OrderID, order.ID),
				slog.String(logkey.ERROR, err.Error()))
			return
		}
		subject := fmt.Sprintf("Order confirmed: %s", order.OrderNumber)
		if err := h.mailer.Send(order.CustomerEmail, subject, body); err != nil {
			slog.Error("failed to send confirmation email", slog.String(logkey.OrderID, order.ID),
				slog.String(logkey.ERROR, err.Error()))
		}
	}
}

func (h *Handler) handlePaymentFailed(c *gin.Context, traceId string, event stripe.Event) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		slog.Error("error parsing payment intent", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	err := h.o.SetStatusByPaymentIntent(c.Request.Context(), intent.ID, orders.StatusPaymentFailed, "payment failed")
	if err != nil {
		slog.Error("error marking order payment_failed", slog.String(logkey.TraceID, traceId),
			slog.String("Payment Intent", intent.ID), slog.String(logkey.ERROR, err.Error()))
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) handleChargeRefunded(c *gin.Context, traceId string, event stripe.Event) {
	ctx := c.Request.Context()

	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		slog.Error("error parsing charge", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if charge.PaymentIntent == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	intentID := charge.PaymentIntent.ID
	if err := h.o.SetStatusByPaymentIntent(ctx, intentID, orders.StatusRefunded, "refunded via stripe"); err != nil {
		slog.Error("error marking order refunded", slog.String(logkey.TraceID, traceId),
			slog.String("Payment Intent", intentID), slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if h.k != nil {
		if order, err := h.o.GetOrderByPaymentIntent(ctx, intentID); err == nil {
			event := kafka.OrderRefundedEvent{OrderId: order.ID, CreatedAt: time.Now().UTC()}
			if data, err := json.Marshal(event); err == nil {
				if err := h.k.ProduceMessage(kafka.TopicOrderRefunded, []byte(order.ID), data); err != nil {
					slog.Error("failed to produce order refunded event", slog.String(logkey.OrderID, order.ID),
						slog.String(logkey.ERROR, err.Error()))
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// markMismatch flags the pending order for manual review. A missing order is
// logged and dropped, the intent may belong to another environment.
func (h *Handler) markMismatch(ctx context.Context, traceId, paymentIntentID, note string) {
	err := h.o.SetStatusByPaymentIntent(ctx, paymentIntentID, orders.StatusPaymentMismatch, note)
	if err != nil {
		slog.Error("error marking order payment_mismatch", slog.String(logkey.TraceID, traceId),
			slog.String("Payment Intent", paymentIntentID), slog.String(logkey.ERROR, err.Error()))
	}
}
