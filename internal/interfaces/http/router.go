package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orris-inc/payrecon/internal/interfaces/http/middleware"
	"github.com/orris-inc/payrecon/internal/interfaces/http/routes"
	"github.com/orris-inc/payrecon/internal/shared/utils"
)

const healthCheckTimeout = 2 * time.Second

// SetupRoutes installs the global middleware chain and every route group.
func (c *Container) SetupRoutes() {
	c.engine.Use(middleware.RequestID())
	c.engine.Use(middleware.AccessLog(c.log))
	c.engine.Use(middleware.Recovery(c.log))
	c.engine.Use(middleware.SecurityHeaders())
	c.engine.Use(middleware.CORS(c.cfg.Server.AllowedOrigins))

	c.engine.GET("/health", c.healthCheck)

	if c.cfg.Metrics.Enabled {
		path := c.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		c.engine.GET(path, gin.WrapH(promhttp.HandlerFor(c.metricsRegistry, promhttp.HandlerOpts{})))
	}

	routes.SetupWebhookRoutes(c.engine, &routes.WebhookRouteConfig{
		WebhookHandler: c.hdlrs.webhookHandler,
		RateLimiter:    c.webhookLimiter,
	})

	routes.SetupPaymentRoutes(c.engine, &routes.PaymentRouteConfig{
		PaymentHandler: c.hdlrs.paymentHandler,
		AuthMiddleware: c.authMiddleware,
	})

	routes.SetupAdminRoutes(c.engine, &routes.AdminRouteConfig{
		ManualReviewHandler:   c.hdlrs.manualReviewHandler,
		ReconciliationHandler: c.hdlrs.reconciliationHandler,
		AuthMiddleware:        c.authMiddleware,
	})
}

func (c *Container) healthCheck(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := gin.H{"database": "ok", "redis": "ok"}
	healthy := true

	sqlDB, err := c.db.DB()
	if err == nil {
		err = sqlDB.PingContext(reqCtx)
	}
	if err != nil {
		status["database"] = "unavailable"
		healthy = false
	}
	if err := c.redis.Ping(reqCtx).Err(); err != nil {
		status["redis"] = "unavailable"
		healthy = false
	}

	if !healthy {
		c.log.Warnw("health check failed", "status", status)
		utils.ErrorResponse(ctx, http.StatusServiceUnavailable, "dependencies unavailable")
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "healthy", status)
}
