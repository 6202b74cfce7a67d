package http

import (
	"time"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// allUseCases holds the payment use cases.
type allUseCases struct {
	// Customer facing
	initiatePaymentUC *usecases.InitiatePaymentUseCase
	getPaymentUC      *usecases.GetPaymentUseCase
	requestRetryUC    *usecases.RequestPaymentRetryUseCase

	// Gateway facing
	receiveWebhookUC *usecases.ReceiveWebhookUseCase
	processWebhookUC *usecases.ProcessWebhookUseCase

	// Back office
	requestRefundUC *usecases.RequestRefundUseCase
	listReviewsUC   *usecases.ListManualReviewsUseCase
	resolveReviewUC *usecases.ResolveManualReviewUseCase

	// Background
	retryPaymentUC *usecases.RetryPaymentUseCase
	reconcileUC    *usecases.ReconcilePaymentsUseCase
}

func (c *Container) initUseCases() {
	s := c.svcs
	r := c.repos
	rc := c.cfg.Reconciliation

	c.ucs = &allUseCases{
		initiatePaymentUC: usecases.NewInitiatePaymentUseCase(
			r.paymentRepo, s.orders, s.gateways, s.txMgr,
			logger.Component(c.log, "initiate_payment"),
		),
		getPaymentUC: usecases.NewGetPaymentUseCase(r.paymentRepo, s.orders, logger.Component(c.log, "get_payment")),
		requestRetryUC: usecases.NewRequestPaymentRetryUseCase(
			r.paymentRepo, s.orders, s.gateways, s.queue,
			logger.Component(c.log, "request_retry"),
		),
		receiveWebhookUC: usecases.NewReceiveWebhookUseCase(
			s.gateways, s.dedupe, s.queue, webhookDedupeTTL(c.cfg.Webhook.DedupeTTL), s.metrics,
			logger.Component(c.log, "webhook_gate"),
		),
		processWebhookUC: usecases.NewProcessWebhookUseCase(
			r.paymentRepo, s.orders, s.settler, s.escalator, s.txMgr, s.auditor,
			rc.AmountEpsilon, s.metrics,
			logger.Component(c.log, "webhook_processor"),
		),
		requestRefundUC: usecases.NewRequestRefundUseCase(
			r.paymentRepo, s.gateways, s.enforcer, s.sanitizer, s.auditor, s.metrics,
			logger.Component(c.log, "refund"),
		),
		listReviewsUC: usecases.NewListManualReviewsUseCase(r.reviewRepo, s.enforcer, logger.Component(c.log, "manual_review")),
		resolveReviewUC: usecases.NewResolveManualReviewUseCase(
			r.reviewRepo, r.paymentRepo, s.settler, s.txMgr, s.enforcer, s.sanitizer, s.auditor,
			logger.Component(c.log, "manual_review"),
		),
		retryPaymentUC: usecases.NewRetryPaymentUseCase(
			r.paymentRepo, s.orders, s.gateways, s.txMgr, s.auditor,
			logger.Component(c.log, "retry_worker"),
		),
		reconcileUC: usecases.NewReconcilePaymentsUseCase(
			r.paymentRepo, s.orders, s.gateways, s.settler, s.escalator, s.txMgr,
			s.locker, s.queue, s.auditor, s.metrics,
			usecases.ReconcileConfig{
				LockTTL:           rc.LockTTL,
				StaleAfter:        rc.StaleAfter,
				RecentWindowHours: rc.RecentWindowHours,
				AmountEpsilon:     rc.AmountEpsilon,
				BatchSize:         rc.BatchSize,
				AutoRetryFailed:   rc.AutoRetryFailed,
			},
			logger.Component(c.log, "reconciler"),
		),
	}
}

func webhookDedupeTTL(configured time.Duration) time.Duration {
	if configured <= 0 {
		return 24 * time.Hour
	}
	return configured
}
