package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omnisync/backend/internal/interfaces/http/handler"
)

// Handlers are the endpoint handlers mounted by RegisterAPI
type Handlers struct {
	Webhooks  *handler.WebhookHandler
	Orders    *handler.OrderHandler
	Inventory *handler.InventoryHandler
	Workers   *handler.SyncJobHandler
	Events    *handler.EventLogHandler
	System    *handler.SystemHandler
}

// APIConfig controls what RegisterAPI puts in front of the routes
type APIConfig struct {
	// Auth runs before every route except webhook intake, health and metrics.
	// It normally holds the JWT and tenant middleware.
	Auth []gin.HandlerFunc

	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// RegisterAPI mounts the omnisync HTTP surface on r. Webhook intake stays
// public since marketplaces authenticate with a payload signature.
func RegisterAPI(r *Router, h Handlers, cfg APIConfig) {
	public := NewDomainGroup("public", "")
	public.POST("/webhooks/:source", h.Webhooks.Receive)
	public.GET("/health", h.System.Health)
	if cfg.Metrics != nil {
		public.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	r.Register(public)

	protected := NewDomainGroup("protected", "").Use(cfg.Auth...)

	protected.Group("webhooks", "/webhooks").
		GET("", h.Webhooks.List).
		POST("/events/:id/replay", h.Webhooks.Replay)

	protected.Group("inventory", "/inventory").
		GET("", h.Inventory.List).
		POST("/adjust", h.Inventory.Adjust).
		POST("/set", h.Inventory.Set).
		POST("/broadcast", h.Inventory.Broadcast).
		GET("/broadcasts", h.Inventory.ListBroadcasts).
		GET("/:sku/adjustments", h.Inventory.ListAdjustments)

	protected.Group("workers", "/workers").
		GET("", h.Workers.List).
		POST("/order-sync", h.Workers.EnqueueOrderSync).
		POST("/inventory-sync", h.Workers.EnqueueInventorySync).
		GET("/:id", h.Workers.Get).
		POST("/:id/requeue", h.Workers.Requeue)

	protected.Group("orders", "/orders").
		GET("", h.Orders.List).
		POST("", h.Orders.Create).
		GET("/:id", h.Orders.Get)

	protected.Group("events", "/events").
		GET("", h.Events.List)

	protected.Group("system", "/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	r.Register(protected)
}
