package http

import (
	"time"

	"github.com/orris-inc/payrecon/internal/infrastructure/auth"
	"github.com/orris-inc/payrecon/internal/interfaces/http/handlers"
	"github.com/orris-inc/payrecon/internal/interfaces/http/middleware"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// webhookRateLimit bounds webhook calls per source IP per minute.
const webhookRateLimit = 600

// allHandlers holds the HTTP handlers.
type allHandlers struct {
	paymentHandler        *handlers.PaymentHandler
	webhookHandler        *handlers.WebhookHandler
	manualReviewHandler   *handlers.ManualReviewHandler
	reconciliationHandler *handlers.ReconciliationHandler
}

func (c *Container) initHandlers() {
	handlerLog := logger.Component(c.log, "http")

	c.hdlrs = &allHandlers{
		paymentHandler: handlers.NewPaymentHandler(
			c.ucs.initiatePaymentUC,
			c.ucs.getPaymentUC,
			c.ucs.requestRetryUC,
			c.ucs.requestRefundUC,
			handlerLog,
		),
		webhookHandler:        handlers.NewWebhookHandler(c.ucs.receiveWebhookUC, handlerLog),
		manualReviewHandler:   handlers.NewManualReviewHandler(c.ucs.listReviewsUC, c.ucs.resolveReviewUC, handlerLog),
		reconciliationHandler: handlers.NewReconciliationHandler(c.ucs.reconcileUC, handlerLog),
	}
}

func (c *Container) initMiddlewares() {
	c.jwtService = auth.NewJWTService(c.cfg.Auth.JWT.Secret, c.cfg.Auth.JWT.Issuer, c.cfg.Auth.JWT.AccessExpMinutes)
	c.authMiddleware = middleware.NewAuthMiddleware(c.jwtService, logger.Component(c.log, "auth"))
	c.webhookLimiter = middleware.NewRateLimiter(c.redis, "webhook", webhookRateLimit, time.Minute, c.log)
}
