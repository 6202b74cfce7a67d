package http

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/infrastructure/queue"
	"github.com/orris-inc/payrecon/internal/infrastructure/scheduler"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

const defaultPromoteInterval = 5 * time.Second

func (c *Container) initWorker() {
	c.worker = queue.NewWorker(c.svcs.queue, c.log)
	c.worker.Register(usecases.QueueWebhooks, c.ucs.processWebhookUC.HandleJob)
	c.worker.Register(usecases.QueueRetries, c.ucs.retryPaymentUC.HandleJob)
}

// StartScheduler registers the reconciliation sweeps and queue maintenance
// and starts them in the background.
func (c *Container) StartScheduler() error {
	manager, err := scheduler.NewSchedulerManager(logger.Component(c.log, "scheduler"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	rc := c.cfg.Reconciliation
	if rc.Enabled {
		if err := manager.RegisterReconciliationJobs(c.ucs.reconcileUC, rc.Interval, rc.RecentInterval, rc.LockTTL); err != nil {
			return fmt.Errorf("failed to register reconciliation jobs: %w", err)
		}
	} else {
		c.log.Warnw("reconciliation sweeps disabled")
	}

	interval := c.cfg.Queue.PollInterval * 5
	if interval <= 0 {
		interval = defaultPromoteInterval
	}
	promoter := queue.NewPromoter(c.svcs.queue, c.worker.Queues()...)
	if err := manager.RegisterQueueMaintenance(promoter, interval); err != nil {
		return fmt.Errorf("failed to register queue maintenance: %w", err)
	}

	manager.Start()
	c.schedulerManager = manager
	return nil
}

// RunWorker consumes the webhook and retry queues until ctx is cancelled.
func (c *Container) RunWorker(ctx context.Context) {
	c.log.Infow("worker started", "queues", c.worker.Queues())
	c.worker.Run(ctx)
	c.log.Infow("worker stopped")
}
