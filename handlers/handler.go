package handlers

import (
	"net/http"
	"os"

	"storefront-service/internal/auth"
	"storefront-service/internal/campaigns"
	"storefront-service/internal/email"
	"storefront-service/internal/orders"
	"storefront-service/internal/products"
	"storefront-service/internal/stores"
	"storefront-service/internal/stores/kafka"
	"storefront-service/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	s        *stores.Conf
	cm       *campaigns.Conf
	p        *products.Conf
	o        *orders.Conf
	k        *kafka.Conf
	mailer   email.Mailer
	validate *validator.Validate
}

func NewHandler(s *stores.Conf, cm *campaigns.Conf, p *products.Conf, o *orders.Conf,
	k *kafka.Conf, mailer email.Mailer) *Handler {
	return &Handler{
		s:        s,
		cm:       cm,
		p:        p,
		o:        o,
		k:        k,
		mailer:   mailer,
		validate: validator.New(),
	}
}

func API(endpointPrefix string, keys *auth.Keys, s *stores.Conf, cm *campaigns.Conf,
	p *products.Conf, o *orders.Conf, k *kafka.Conf, mailer email.Mailer) *gin.Engine {

	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(keys)
	if err != nil {
		panic(err)
	}

	h := NewHandler(s, cm, p, o, k, mailer)
	r.Use(middleware.Logger(), gin.Recovery())

	r.GET("/ping", HealthCheck)
	r.POST("/webhook", h.StripeWebhook)

	v1 := r.Group(endpointPrefix)
	{
		// Public storefront surface: browsing and guest checkout.
		v1.GET("/shop/:storeSlug", h.StorefrontStore)
		v1.GET("/shop/:storeSlug/:campaignSlug", h.StorefrontCampaign)
		v1.GET("/products/:id/variants", h.ListVariants)
		v1.POST("/checkout", h.Checkout)

		// Date-driven campaign transitions, called by an external scheduler.
		v1.POST("/campaigns/refresh-status", h.RefreshCampaignStatuses)

		v1.Use(m.Authentication())
		v1.POST("/stores", m.Authorize(h.CreateStore, auth.RoleAdmin))
		v1.GET("/stores", m.Authorize(h.ListStores, auth.RoleAdmin))
		v1.GET("/stores/:id", m.Authorize(h.GetStore, auth.RoleAdmin))
		v1.PUT("/stores/:id", m.Authorize(h.UpdateStore, auth.RoleAdmin))
		v1.PUT("/stores/:id/stripe", m.Authorize(h.UpdateStoreStripe, auth.RoleAdmin))
		v1.DELETE("/stores/:id", m.Authorize(h.DeleteStore, auth.RoleAdmin))

		v1.POST("/campaigns", m.Authorize(h.CreateCampaign, auth.RoleAdmin))
		v1.GET("/campaigns", m.Authorize(h.ListCampaigns, auth.RoleAdmin))
		v1.GET("/campaigns/:id", m.Authorize(h.GetCampaign, auth.RoleAdmin))
		v1.PUT("/campaigns/:id", m.Authorize(h.UpdateCampaign, auth.RoleAdmin))
		v1.DELETE("/campaigns/:id", m.Authorize(h.DeleteCampaign, auth.RoleAdmin))

		v1.POST("/products", m.Authorize(h.CreateProduct, auth.RoleAdmin))
		v1.GET("/products/:id", m.Authorize(h.GetProduct, auth.RoleAdmin))
		v1.PUT("/products/:id", m.Authorize(h.UpdateProduct, auth.RoleAdmin))
		v1.DELETE("/products/:id", m.Authorize(h.DeleteProduct, auth.RoleAdmin))
		v1.PUT("/variants/:id/image", m.Authorize(h.UpdateVariantImage, auth.RoleAdmin))

		v1.GET("/orders", m.Authorize(h.ListOrders, auth.RoleAdmin))
		v1.GET("/orders/:id", m.Authorize(h.GetOrder, auth.RoleAdmin))
		v1.PUT("/orders/:id/status", m.Authorize(h.UpdateOrderStatus, auth.RoleAdmin))
		v1.PUT("/orders/:id/notes", m.Authorize(h.UpdateOrderNotes, auth.RoleAdmin))
	}

	return r
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
