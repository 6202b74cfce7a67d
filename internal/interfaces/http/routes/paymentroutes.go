package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/payrecon/internal/interfaces/http/handlers"
	"github.com/orris-inc/payrecon/internal/interfaces/http/middleware"
)

// PaymentRouteConfig holds dependencies for payment routes
type PaymentRouteConfig struct {
	PaymentHandler *handlers.PaymentHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// SetupPaymentRoutes configures customer and staff payment routes
func SetupPaymentRoutes(engine *gin.Engine, config *PaymentRouteConfig) {
	payments := engine.Group("/payments")
	payments.Use(config.AuthMiddleware.RequireAuth())
	{
		payments.POST("", config.PaymentHandler.InitiatePayment)
		payments.POST("/retry", config.PaymentHandler.RequestRetry)
		payments.GET("/:id", config.PaymentHandler.GetPayment)

		// Refund authorization is checked against the policy store
		payments.POST("/:id/refunds", config.PaymentHandler.RequestRefund)
	}
}
