package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"storefront-service/internal/products"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var np products.NewProduct
	if !h.bindAndValidate(c, traceId, &np) {
		return
	}

	product, err := h.p.InsertProduct(c.Request.Context(), np)
	if err != nil {
		if errors.Is(err, products.ErrTooManyVariants) {
			slog.Error("variant ceiling exceeded", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("error in inserting the product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Product creation failed"})
		return
	}

	if product.PriceReviewNeeded {
		slog.Warn("product has variants clamped to zero price, flagged for review",
			slog.String(logkey.TraceID, traceId), slog.String(logkey.ProductID, product.ID))
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) GetProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID := c.Param("id")

	product, err := h.p.GetProductByID(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		slog.Error("error in retrieving product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// UpdateProduct applies partial changes. The caller must echo the version it
// read; an edit racing another admin's regeneration is rejected rather than
// silently merged.
func (h *Handler) UpdateProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID := c.Param("id")

	version, err := strconv.ParseInt(c.Query("version"), 10, 64)
	if err != nil || version < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "version query parameter is required"})
		return
	}

	var up products.UpdateProduct
	if !h.bindAndValidate(c, traceId, &up) {
		return
	}

	product, err := h.p.UpdateProduct(c.Request.Context(), productID, version, up)
	if err != nil {
		switch {
		case errors.Is(err, products.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		case errors.Is(err, products.ErrVersionConflict):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Product was modified by someone else, reload and retry"})
		case errors.Is(err, products.ErrVariantsInUse):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Variants already appear on orders, pricing and options can no longer be regenerated"})
		case errors.Is(err, products.ErrTooManyVariants):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			slog.Error("error in updating the product", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Product update failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": product})
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID := c.Param("id")

	if err := h.p.DeleteProduct(c.Request.Context(), productID); err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		if errors.Is(err, products.ErrVariantsInUse) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Product has variants on existing orders and cannot be deleted"})
			return
		}
		slog.Error("error in deleting the product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Product deletion failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product successfully deleted"})
}

func (h *Handler) ListVariants(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID := c.Param("id")

	variants, err := h.p.ListVariants(c.Request.Context(), productID)
	if err != nil {
		slog.Error("error in fetching variants", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch variants"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": variants})
}

// UpdateVariantImage changes the only mutable variant field. Prices are
// immutable; repricing means regenerating the matrix through UpdateProduct.
func (h *Handler) UpdateVariantImage(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	variantID := c.Param("id")

	var body struct {
		ImageURL string `json:"image_url" validate:"omitempty,url"`
	}
	if !h.bindAndValidate(c, traceId, &body) {
		return
	}

	if err := h.p.UpdateVariantImage(c.Request.Context(), variantID, body.ImageURL); err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Variant not found"})
			return
		}
		slog.Error("error in updating variant image", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.VariantID, variantID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Variant update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Variant updated successfully"})
}
