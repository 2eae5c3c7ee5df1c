package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"storefront-service/internal/auth"
	"storefront-service/internal/stores"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps JSON payload size across the admin endpoints.
const maxBodyBytes = 5 * 1024

func (h *Handler) bindAndValidate(c *gin.Context, traceId string, out any) bool {
	if c.Request.ContentLength > maxBodyBytes {
		slog.Error("request body limit breached", slog.String(logkey.TraceID, traceId),
			slog.Int64("Size Received", c.Request.ContentLength))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Request body too large."})
		return false
	}

	if err := c.ShouldBindJSON(out); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return false
	}

	if err := h.validate.Struct(out); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 {
			vErr := vErrs[0]
			slog.Error("validation failed", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()))
			switch vErr.Tag() {
			case "required":
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Field() + " value missing"})
			case "min":
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Field() + " value is less than " + vErr.Param()})
			case "max":
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Field() + " value is more than " + vErr.Param()})
			default:
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Field() + " value invalid"})
			}
			return false
		}
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return false
	}
	return true
}

func (h *Handler) CreateStore(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var ns stores.NewStore
	if !h.bindAndValidate(c, traceId, &ns) {
		return
	}

	if ns.Slug == "" {
		ns.Slug = stores.GenerateSlug(ns.Name)
	}
	if !stores.ValidSlug(ns.Slug) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Slug must contain only lowercase letters, numbers, and hyphens"})
		return
	}

	available, err := h.s.IsSlugAvailable(c.Request.Context(), ns.Slug, "")
	if err != nil {
		slog.Error("error checking slug availability", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create store"})
		return
	}
	if !available {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Slug is already taken"})
		return
	}

	store, err := h.s.InsertStore(c.Request.Context(), claims.Subject, ns)
	if err != nil {
		if errors.Is(err, stores.ErrSlugTaken) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Slug is already taken"})
			return
		}
		slog.Error("error in inserting the store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Store creation failed"})
		return
	}

	c.JSON(http.StatusOK, store)
}

func (h *Handler) ListStores(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.s.ListStores(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error in fetching stores", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stores"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": list})
}

func (h *Handler) GetStore(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	storeID := c.Param("id")

	store, err := h.s.GetStoreByID(c.Request.Context(), storeID)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		slog.Error("error in retrieving store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch store"})
		return
	}
	c.JSON(http.StatusOK, store)
}

func (h *Handler) UpdateStore(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	storeID := c.Param("id")

	var us stores.UpdateStore
	if !h.bindAndValidate(c, traceId, &us) {
		return
	}

	store, err := h.s.UpdateStore(c.Request.Context(), storeID, us)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		slog.Error("error in updating the store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Store update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Store updated successfully", "store": store})
}

// UpdateStoreStripe saves the merchant's own Stripe credentials; checkout for
// this store's campaigns will charge through their account.
func (h *Handler) UpdateStoreStripe(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	storeID := c.Param("id")

	var ss stores.StripeSettings
	if !h.bindAndValidate(c, traceId, &ss) {
		return
	}

	if err := h.s.UpdateStripeSettings(c.Request.Context(), storeID, ss); err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		slog.Error("error in updating stripe settings", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Stripe settings update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stripe settings updated"})
}

func (h *Handler) DeleteStore(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	storeID := c.Param("id")

	if err := h.s.DeleteStore(c.Request.Context(), storeID); err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		slog.Error("error in deleting the store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Store deletion failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Store successfully deleted"})
}
