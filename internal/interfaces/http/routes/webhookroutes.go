package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/payrecon/internal/interfaces/http/handlers"
	"github.com/orris-inc/payrecon/internal/interfaces/http/middleware"
)

// WebhookRouteConfig holds dependencies for gateway callbacks
type WebhookRouteConfig struct {
	WebhookHandler *handlers.WebhookHandler
	RateLimiter    *middleware.RateLimiter
}

// SetupWebhookRoutes configures the unauthenticated gateway webhook endpoint.
// Requests are authenticated by their gateway signature.
func SetupWebhookRoutes(engine *gin.Engine, config *WebhookRouteConfig) {
	webhooks := engine.Group("/webhooks")
	if config.RateLimiter != nil {
		webhooks.Use(config.RateLimiter.Limit())
	}
	webhooks.POST("/:gateway", config.WebhookHandler.Receive)
}
