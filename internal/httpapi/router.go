// Package httpapi exposes the shop over HTTP with gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"coffee-eshop-go/internal/basket"
	"coffee-eshop-go/internal/order/checkout"
	"coffee-eshop-go/internal/order/tx"
	"coffee-eshop-go/pkg/logging"
	"coffee-eshop-go/pkg/metrics"
)

type Deps struct {
	UoW      tx.UnitOfWork
	Basket   *basket.Service
	Checkout *checkout.Service
	// Health reports whether the backing store is reachable. Nil means
	// always healthy.
	Health         func(ctx context.Context) error
	Metrics        *metrics.ServerMetrics
	Gatherer       prometheus.Gatherer
	Log            *logging.Logger
	RequestTimeout time.Duration
}

type handler struct {
	Deps
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logging.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 2500 * time.Millisecond
	}
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery(), requestLog(d.Log), h.observe, h.timeout)

	r.GET("/health", h.health)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}

	api := r.Group("/api")
	api.GET("/categories", h.listCategories)
	api.GET("/categories/:id", h.getCategory)
	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)

	authed := api.Group("", h.identify)
	authed.GET("/basket", h.listBasket)
	authed.POST("/basket", h.addToBasket)
	authed.PUT("/basket/:id/quantity", h.updateQuantity)
	authed.DELETE("/basket/:id", h.removeFromBasket)
	authed.DELETE("/basket", h.clearBasket)
	authed.POST("/orders/checkout", h.checkout)
	authed.GET("/orders", h.listOrders)
	authed.GET("/orders/:id", h.getOrder)
	return r
}

func (h *handler) health(c *gin.Context) {
	if h.Health != nil {
		if err := h.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_error"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
