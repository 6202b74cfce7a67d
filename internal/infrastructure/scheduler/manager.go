// Package scheduler runs the periodic payment jobs using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/shared/biztime"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// BatchJob processes one batch and returns the number of items handled.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// Sweeper runs one reconciliation sweep.
type Sweeper interface {
	Execute(ctx context.Context, mode usecases.SweepMode) (*usecases.SweepReport, error)
}

// SchedulerManager owns the single gocron scheduler of the worker process.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// ========================================
// Reconciliation Jobs
// ========================================

// RegisterReconciliationJobs schedules the stale sweep every staleInterval and
// the recent-window sweep every recentInterval. Both share the distributed
// sweep lock, so a run that overlaps another instance is skipped.
func (m *SchedulerManager) RegisterReconciliationJobs(sweeper Sweeper, staleInterval, recentInterval, timeout time.Duration) error {
	if err := m.registerSweep(sweeper, usecases.SweepStale, staleInterval, timeout); err != nil {
		return err
	}
	return m.registerSweep(sweeper, usecases.SweepRecent, recentInterval, timeout)
}

func (m *SchedulerManager) registerSweep(sweeper Sweeper, mode usecases.SweepMode, interval, timeout time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			m.runSweep(ctx, sweeper, mode)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("reconciliation", string(mode)),
		gocron.WithName("reconcile-"+string(mode)),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered reconciliation job", "mode", mode, "interval", interval)
	return nil
}

func (m *SchedulerManager) runSweep(ctx context.Context, sweeper Sweeper, mode usecases.SweepMode) {
	startTime := biztime.NowUTC()

	report, err := sweeper.Execute(ctx, mode)
	if err != nil {
		m.logger.Errorw("reconciliation sweep failed",
			"mode", mode,
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}
	if report.Skipped {
		m.logger.Debugw("reconciliation sweep skipped, lock held elsewhere", "mode", mode)
		return
	}

	m.logger.Infow("reconciliation sweep finished",
		"mode", mode,
		"scanned", report.Scanned,
		"reconciled", report.Reconciled,
		"escalated", report.Escalated,
		"failed", report.Failed,
		"errors", report.Errors,
		"duration", time.Since(startTime),
	)
}

// ========================================
// Queue Maintenance
// ========================================

// RegisterQueueMaintenance moves due delayed jobs and expired claims back to
// their ready lists.
func (m *SchedulerManager) RegisterQueueMaintenance(promoter BatchJob, interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			moved, err := promoter.Execute(ctx)
			if err != nil {
				m.logger.Errorw("failed to promote queued jobs", "error", err)
				return
			}
			if moved > 0 {
				m.logger.Debugw("queued jobs promoted", "count", moved)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("queue", "promote"),
		gocron.WithName("queue-promoter"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered queue maintenance job", "interval", interval)
	return nil
}

// ========================================
// Lifecycle
// ========================================

// Start begins executing scheduled jobs. Calling it twice is a no-op.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
