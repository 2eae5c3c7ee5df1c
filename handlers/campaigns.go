package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"storefront-service/internal/campaigns"
	"storefront-service/internal/stores"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateCampaign(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var nc campaigns.NewCampaign
	if !h.bindAndValidate(c, traceId, &nc) {
		return
	}

	if nc.Slug == "" {
		nc.Slug = stores.GenerateSlug(nc.Name)
	}
	if !stores.ValidSlug(nc.Slug) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Slug must contain only lowercase letters, numbers, and hyphens"})
		return
	}

	campaign, err := h.cm.InsertCampaign(c.Request.Context(), nc)
	if err != nil {
		if errors.Is(err, campaigns.ErrSlugTaken) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Slug is already used in this store"})
			return
		}
		slog.Error("error in inserting the campaign", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, nc.StoreID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Campaign creation failed"})
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (h *Handler) ListCampaigns(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	storeID := c.Query("store_id")
	if storeID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "store_id query parameter is required"})
		return
	}

	list, err := h.cm.ListCampaigns(c.Request.Context(), storeID)
	if err != nil {
		slog.Error("error in fetching campaigns", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch campaigns"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": list})
}

func (h *Handler) GetCampaign(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	campaignID := c.Param("id")

	campaign, err := h.cm.GetCampaignByID(c.Request.Context(), campaignID)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		slog.Error("error in retrieving campaign", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.CampaignID, campaignID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch campaign"})
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (h *Handler) UpdateCampaign(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	campaignID := c.Param("id")

	var uc campaigns.UpdateCampaign
	if !h.bindAndValidate(c, traceId, &uc) {
		return
	}

	campaign, err := h.cm.UpdateCampaign(c.Request.Context(), campaignID, uc)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		slog.Error("error in updating the campaign", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.CampaignID, campaignID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Campaign update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Campaign updated successfully", "campaign": campaign})
}

func (h *Handler) DeleteCampaign(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	campaignID := c.Param("id")

	if err := h.cm.DeleteCampaign(c.Request.Context(), campaignID); err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		slog.Error("error in deleting the campaign", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.CampaignID, campaignID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Campaign deletion failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Campaign successfully deleted"})
}

// RefreshCampaignStatuses applies the time-based activation and closing
// transitions in bulk. Meant to be hit by an external scheduler;
// guarded by a shared bearer secret rather than a user token.
func (h *Handler) RefreshCampaignStatuses(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	cronSecret := os.Getenv("CRON_SECRET")
	if cronSecret != "" && c.GetHeader("Authorization") != "Bearer "+cronSecret {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	activated, closed, err := h.cm.RefreshStatuses(c.Request.Context(), time.Now().UTC())
	if err != nil {
		slog.Error("error refreshing campaign statuses", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh campaign statuses"})
		return
	}

	slog.Info("campaign statuses refreshed", slog.String(logkey.TraceID, traceId),
		slog.Int64("Activated", activated), slog.Int64("Closed", closed))
	c.JSON(http.StatusOK, gin.H{"activated": activated, "closed": closed})
}
