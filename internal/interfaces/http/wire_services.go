package http

import (
	"fmt"

	auditapp "github.com/orris-inc/payrecon/internal/application/audit"
	billingapp "github.com/orris-inc/payrecon/internal/application/billing"
	orderapp "github.com/orris-inc/payrecon/internal/application/order"
	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/infrastructure/cache"
	"github.com/orris-inc/payrecon/internal/infrastructure/email"
	"github.com/orris-inc/payrecon/internal/infrastructure/eventbus"
	"github.com/orris-inc/payrecon/internal/infrastructure/gateways"
	"github.com/orris-inc/payrecon/internal/infrastructure/metrics"
	"github.com/orris-inc/payrecon/internal/infrastructure/permission"
	"github.com/orris-inc/payrecon/internal/infrastructure/queue"
	"github.com/orris-inc/payrecon/internal/shared/db"
	"github.com/orris-inc/payrecon/internal/shared/logger"
	"github.com/orris-inc/payrecon/internal/shared/services/sanitize"
)

// services holds infrastructure adapters and application services shared by
// the use cases.
type services struct {
	txMgr     *db.TransactionManager
	gateways  *paymentgateway.Registry
	dedupe    *cache.WebhookDedupeStore
	locker    *cache.DistributedLocker
	queue     *queue.RedisQueue
	metrics   *metrics.PaymentMetrics
	enforcer  *permission.Enforcer
	sanitizer sanitize.Sanitizer
	notifier  usecases.ReviewNotifier
	auditor   *auditapp.Recorder
	orders    *orderapp.Service
	billing   *billingapp.Service
	settler   *usecases.Settler
	escalator *usecases.Escalator
}

func (c *Container) initServices() error {
	s := &services{
		txMgr:     db.NewTransactionManager(c.db),
		gateways:  gateways.NewRegistry(c.cfg.Payment, logger.Component(c.log, "gateways")),
		dedupe:    cache.NewWebhookDedupeStore(c.redis),
		locker:    cache.NewDistributedLocker(c.redis),
		queue:     queue.NewRedisQueue(c.redis, c.cfg.Queue),
		metrics:   metrics.NewPaymentMetrics(),
		sanitizer: sanitize.NewSanitizer(),
	}

	if c.cfg.Metrics.Enabled {
		if err := s.metrics.Register(c.metricsRegistry); err != nil {
			return fmt.Errorf("failed to register payment metrics: %w", err)
		}
	}

	enforcer, err := permission.NewEnforcer(c.db, logger.Component(c.log, "permission"))
	if err != nil {
		return fmt.Errorf("failed to create permission enforcer: %w", err)
	}
	if err := enforcer.SeedDefaultPolicies(); err != nil {
		return fmt.Errorf("failed to seed permission policies: %w", err)
	}
	s.enforcer = enforcer

	var publisher auditapp.Publisher
	if c.cfg.Kafka.Enabled {
		c.kafkaPublisher = eventbus.NewKafkaPublisher(c.cfg.Kafka)
		publisher = c.kafkaPublisher
		c.log.Infow("audit stream enabled", "topic", c.cfg.Kafka.Topic, "brokers", c.cfg.Kafka.Brokers)
	}
	s.auditor = auditapp.NewRecorder(c.repos.auditRepo, publisher, logger.Component(c.log, "audit"))

	if len(c.cfg.Email.OpsRecipients) > 0 {
		cooldown := c.cfg.Email.AlertCooldown
		if cooldown <= 0 {
			cooldown = cache.DefaultAlertCooldown
		}
		s.notifier = email.NewThrottledNotifier(
			email.NewReviewNotifier(email.SMTPConfigFrom(c.cfg.Email, c.cfg.Server.BaseURL)),
			cache.NewAlertDeduplicator(c.redis),
			cooldown,
			logger.Component(c.log, "review_alerts"),
		)
	} else {
		c.log.Warnw("no ops recipients configured, manual review alerts disabled")
	}

	s.orders = orderapp.NewService(c.repos.orderRepo, logger.Component(c.log, "order"))
	s.billing = billingapp.NewService(c.repos.invoiceRepo, c.repos.creditNoteRepo, logger.Component(c.log, "billing"))
	s.settler = usecases.NewSettler(s.orders, s.billing, logger.Component(c.log, "settler"))
	s.escalator = usecases.NewEscalator(c.repos.reviewRepo, s.notifier, s.auditor, s.metrics, logger.Component(c.log, "escalator"))

	c.svcs = s
	return nil
}
