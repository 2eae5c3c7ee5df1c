package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"storefront-service/internal/orders"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	campaignID := c.Query("campaign_id")
	status := c.Query("status")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	list, err := h.o.ListOrders(c.Request.Context(), campaignID, status, limit, offset)
	if err != nil {
		slog.Error("error listing orders", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) GetOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	id := c.Param("id")

	order, err := h.o.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error retrieving order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, id), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	id := c.Param("id")

	var req struct {
		Status string `json:"status" validate:"required,oneof=pending completed payment_failed payment_mismatch refunded shipped canceled"`
	}
	if !h.bindAndValidate(c, traceId, &req) {
		return
	}

	if err := h.o.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error updating order status", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, id), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

func (h *Handler) UpdateOrderNotes(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	id := c.Param("id")

	var req struct {
		Notes string `json:"notes" validate:"max=2000"`
	}
	if !h.bindAndValidate(c, traceId, &req) {
		return
	}

	if err := h.o.UpdateNotes(c.Request.Context(), id, req.Notes); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error updating order notes", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, id), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "notes": req.Notes})
}
