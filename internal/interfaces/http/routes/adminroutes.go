package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/payrecon/internal/interfaces/http/handlers"
	"github.com/orris-inc/payrecon/internal/interfaces/http/middleware"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
)

// AdminRouteConfig holds dependencies for back office routes
type AdminRouteConfig struct {
	ManualReviewHandler   *handlers.ManualReviewHandler
	ReconciliationHandler *handlers.ReconciliationHandler
	AuthMiddleware        *middleware.AuthMiddleware
}

// SetupAdminRoutes configures manual review and reconciliation routes
func SetupAdminRoutes(engine *gin.Engine, config *AdminRouteConfig) {
	admin := engine.Group("/admin")
	admin.Use(
		config.AuthMiddleware.RequireAuth(),
		middleware.RequireRole(authorization.RoleAdmin, authorization.RoleFinance),
	)
	{
		reviews := admin.Group("/manual-reviews")
		reviews.GET("", config.ManualReviewHandler.List)
		reviews.POST("/:id/resolve", config.ManualReviewHandler.Resolve)

		admin.POST("/reconciliation/sweeps", config.ReconciliationHandler.RunSweep)
	}
}
