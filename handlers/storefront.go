package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"storefront-service/internal/campaigns"
	"storefront-service/internal/stores"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// storefrontStore is the public projection of a store: no Stripe secrets,
// no owner information.
type storefrontStore struct {
	Slug           string             `json:"slug"`
	Name           string             `json:"name"`
	LogoURL        string             `json:"logo_url,omitempty"`
	ThemeColors    stores.ThemeColors `json:"theme_colors"`
	ContactEmail   string             `json:"contact_email,omitempty"`
	ShippingPolicy string             `json:"shipping_policy,omitempty"`
}

func publicStore(s stores.Store) storefrontStore {
	return storefrontStore{
		Slug:           s.Slug,
		Name:           s.Name,
		LogoURL:        s.LogoURL,
		ThemeColors:    s.ThemeColors,
		ContactEmail:   s.ContactEmail,
		ShippingPolicy: s.ShippingPolicy,
	}
}

// StorefrontStore serves the public store landing page data with the
// campaigns currently open for orders.
func (h *Handler) StorefrontStore(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	storeSlug := c.Param("storeSlug")

	store, err := h.s.GetStoreBySlug(c.Request.Context(), storeSlug)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		slog.Error("error in retrieving store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch store"})
		return
	}

	list, err := h.cm.ListCampaigns(c.Request.Context(), store.ID)
	if err != nil {
		slog.Error("error in fetching campaigns", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, store.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch campaigns"})
		return
	}

	now := time.Now().UTC()
	open := make([]campaigns.Campaign, 0, len(list))
	for _, campaign := range list {
		if campaigns.AcceptsOrders(campaign, now) {
			open = append(open, campaign)
		}
	}

	c.JSON(http.StatusOK, gin.H{"store": publicStore(store), "campaigns": open})
}

// StorefrontCampaign serves one campaign page: the campaign, its visible
// products and their variant matrices, everything a shopper needs to build
// a cart.
func (h *Handler) StorefrontCampaign(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	storeSlug := c.Param("storeSlug")
	campaignSlug := c.Param("campaignSlug")

	store, err := h.s.GetStoreBySlug(c.Request.Context(), storeSlug)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		slog.Error("error in retrieving store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch store"})
		return
	}

	campaign, err := h.cm.GetCampaignBySlug(c.Request.Context(), store.ID, campaignSlug)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		slog.Error("error in retrieving campaign", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, store.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch campaign"})
		return
	}

	productList, err := h.p.ListProducts(c.Request.Context(), campaign.ID, false, 100, 0)
	if err != nil {
		slog.Error("error in fetching products", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.CampaignID, campaign.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store":          publicStore(store),
		"campaign":       campaign,
		"products":       productList,
		"accepts_orders": campaigns.AcceptsOrders(campaign, time.Now().UTC()),
	})
}
