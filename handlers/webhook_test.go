package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-service/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func webhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.POST("/webhook", h.StripeWebhook)
	return r
}

func TestStripeWebhookRequiresSignature(t *testing.T) {
	r := webhookRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Stripe-Signature")
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	r := webhookRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"data":{"object":{"metadata":{}}}}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid signature")
}

// signPayload builds a Stripe-Signature header the verifier accepts.
func signPayload(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeWebhookIgnoresUnhandledEventTypes(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	r := webhookRouter()

	payload := []byte(`{"id":"evt_1","api_version":"2024-12-18.acacia","type":"customer.created","data":{"object":{}}}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signPayload("whsec_test", payload))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "received")
}

func TestConfirmFailureStatus(t *testing.T) {
	// Without a pending order there is nothing a redelivery could fix.
	assert.Equal(t, http.StatusOK, confirmFailureStatus(orders.ErrNotFound))
	assert.Equal(t, http.StatusOK, confirmFailureStatus(fmt.Errorf("wrapped: %w", orders.ErrNotFound)))

	// Transient failures must make Stripe redeliver.
	assert.Equal(t, http.StatusInternalServerError, confirmFailureStatus(errors.New("connection refused")))
}
