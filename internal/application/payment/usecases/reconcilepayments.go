package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/domain/order"
	ordervo "github.com/orris-inc/payrecon/internal/domain/order/valueobjects"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/domain/review"
	reviewvo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/biztime"
	"github.com/orris-inc/payrecon/internal/shared/constants"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// ReconciliationLockKey single-flights sweeps across instances.
const ReconciliationLockKey = "payment-reconciliation-lock"

const retryReasonReconciliationFailed = "reconciliation_failed"

type SweepMode string

const (
	// SweepStale covers created payments older than the staleness threshold.
	SweepStale SweepMode = "stale"
	// SweepRecent covers every payment touched inside the recent window.
	SweepRecent SweepMode = "recent"
	SweepFull   SweepMode = "full"
)

type sweepOutcome string

const (
	sweepReconciled sweepOutcome = "reconciled"
	sweepEscalated  sweepOutcome = "escalated"
	sweepFailed     sweepOutcome = "failed"
	sweepUnchanged  sweepOutcome = "unchanged"
)

type ReconcileConfig struct {
	LockTTL           time.Duration
	StaleAfter        time.Duration
	RecentWindowHours int
	AmountEpsilon     int64
	BatchSize         int
	AutoRetryFailed   bool
}

type SweepReport struct {
	Mode       SweepMode `json:"mode"`
	Skipped    bool      `json:"skipped"`
	Scanned    int       `json:"scanned"`
	Reconciled int       `json:"reconciled"`
	Escalated  int       `json:"escalated"`
	Failed     int       `json:"failed"`
	Errors     int       `json:"errors"`
}

type ReconcilePaymentsUseCase struct {
	paymentRepo payment.Repository
	orders      OrderService
	gateways    GatewayResolver
	settler     *Settler
	escalator   *Escalator
	txMgr       TransactionManager
	locker      Locker
	queue       JobQueue
	auditor     audit.Recorder
	metrics     Metrics
	cfg         ReconcileConfig
	logger      logger.Interface
	now         func() time.Time
}

func NewReconcilePaymentsUseCase(
	paymentRepo payment.Repository,
	orders OrderService,
	gateways GatewayResolver,
	settler *Settler,
	escalator *Escalator,
	txMgr TransactionManager,
	locker Locker,
	queue JobQueue,
	auditor audit.Recorder,
	metrics Metrics,
	cfg ReconcileConfig,
	logger logger.Interface,
) *ReconcilePaymentsUseCase {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 30 * time.Minute
	}
	if cfg.RecentWindowHours <= 0 {
		cfg.RecentWindowHours = 24
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if metrics == nil {
		metrics = NopMetrics
	}
	return &ReconcilePaymentsUseCase{
		paymentRepo: paymentRepo,
		orders:      orders,
		gateways:    gateways,
		settler:     settler,
		escalator:   escalator,
		txMgr:       txMgr,
		locker:      locker,
		queue:       queue,
		auditor:     auditor,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
		now:         biztime.NowUTC,
	}
}

func (uc *ReconcilePaymentsUseCase) Execute(ctx context.Context, mode SweepMode) (*SweepReport, error) {
	report := &SweepReport{Mode: mode}

	lock, acquired, err := uc.locker.TryLock(ctx, ReconciliationLockKey, uc.cfg.LockTTL)
	if err != nil {
		uc.logger.Errorw("failed to acquire reconciliation lock", "error", err)
		return nil, fmt.Errorf("failed to acquire reconciliation lock: %w", err)
	}
	if !acquired {
		uc.logger.Infow("reconciliation already running elsewhere, skipping", "mode", mode)
		report.Skipped = true
		return report, nil
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			uc.logger.Warnw("failed to release reconciliation lock", "error", err)
		}
	}()

	candidates, err := uc.collect(ctx, mode)
	if err != nil {
		uc.logger.Errorw("failed to list reconciliation candidates", "mode", mode, "error", err)
		return nil, err
	}

	start := uc.now()
	for _, p := range candidates {
		if ctx.Err() != nil {
			uc.logger.Warnw("reconciliation interrupted", "mode", mode, "scanned", report.Scanned)
			break
		}
		report.Scanned++

		outcome, err := uc.reconcileSafely(ctx, p)
		if err != nil {
			report.Errors++
			uc.metrics.ReconciliationOutcome("error")
			uc.logger.Errorw("failed to reconcile payment", "payment_id", p.ID(), "order_id", p.OrderID(), "error", err)
			continue
		}
		uc.metrics.ReconciliationOutcome(string(outcome))
		switch outcome {
		case sweepReconciled:
			report.Reconciled++
		case sweepEscalated:
			report.Escalated++
		case sweepFailed:
			report.Failed++
		}
	}

	uc.logger.Infow("reconciliation sweep finished",
		"mode", mode,
		"scanned", report.Scanned,
		"reconciled", report.Reconciled,
		"escalated", report.Escalated,
		"failed", report.Failed,
		"errors", report.Errors,
		"duration", uc.now().Sub(start),
	)
	return report, nil
}

func (uc *ReconcilePaymentsUseCase) collect(ctx context.Context, mode SweepMode) ([]*payment.Payment, error) {
	now := uc.now()
	var batches [][]*payment.Payment

	if mode == SweepStale || mode == SweepFull {
		stale, err := uc.paymentRepo.ListStaleCreated(ctx, now.Add(-uc.cfg.StaleAfter), uc.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list stale payments: %w", err)
		}
		batches = append(batches, stale)
	}
	if mode == SweepRecent || mode == SweepFull {
		recent, err := uc.paymentRepo.ListUpdatedSince(ctx, biztime.HoursAgoUTC(now, uc.cfg.RecentWindowHours), uc.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list recent payments: %w", err)
		}
		batches = append(batches, recent)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("unknown sweep mode %q", mode)
	}

	seen := make(map[uint]struct{})
	var out []*payment.Payment
	for _, batch := range batches {
		for _, p := range batch {
			if _, ok := seen[p.ID()]; ok {
				continue
			}
			seen[p.ID()] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}

// reconcileSafely keeps a panic on one payment from ending the sweep.
func (uc *ReconcilePaymentsUseCase) reconcileSafely(ctx context.Context, p *payment.Payment) (outcome sweepOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic reconciling payment %d: %v", p.ID(), r)
		}
	}()
	return uc.reconcileOne(ctx, p)
}

func (uc *ReconcilePaymentsUseCase) reconcileOne(ctx context.Context, p *payment.Payment) (sweepOutcome, error) {
	log := uc.logger.With("payment_id", p.ID(), "order_id", p.OrderID(), "gateway", p.Gateway())

	gw, err := uc.gateways.Get(p.Gateway())
	if err != nil {
		return "", err
	}
	remote, err := gw.FetchStatus(ctx, p.GatewayOrderID())
	if err != nil {
		return "", fmt.Errorf("failed to fetch gateway status: %w", err)
	}
	if remote == nil {
		log.Debugw("gateway has no record of payment")
		return sweepUnchanged, nil
	}

	ord, err := uc.orders.GetOrder(ctx, p.OrderID())
	if err != nil {
		return "", fmt.Errorf("failed to load order: %w", err)
	}

	var outcome sweepOutcome
	switch remote.Status {
	case paymentgateway.RemoteStatusSuccess:
		outcome, err = uc.applyRemoteSuccess(ctx, log, p, ord, remote)
	case paymentgateway.RemoteStatusFailed:
		outcome, err = uc.applyRemoteFailure(ctx, log, p, ord)
	case paymentgateway.RemoteStatusRefunded:
		outcome, err = uc.applyRemoteRefund(ctx, log, p, ord, remote)
	default:
		outcome = sweepUnchanged
	}
	if err != nil || outcome != sweepUnchanged {
		return outcome, err
	}
	return uc.detectInverseMismatch(ctx, log, p, ord)
}

func (uc *ReconcilePaymentsUseCase) applyRemoteSuccess(ctx context.Context, log logger.Interface, p *payment.Payment, ord *order.Order, remote *paymentgateway.Status) (sweepOutcome, error) {
	currency := remote.Currency
	if currency == "" {
		currency = p.Amount().Currency()
	}
	received := vo.NewMoney(remote.Amount, currency)

	if ord.IsPaid() {
		if settledPayment(p) || p.Status() == vo.PaymentStatusManualReview {
			return sweepUnchanged, nil
		}
		note := fmt.Sprintf("gateway captured %s but order already paid", received)
		outcome, err := uc.escalate(ctx, p, reviewvo.TypeGatewayAnomaly, p.Amount().MinorUnits(), received, note)
		if err != nil {
			return "", err
		}
		if err := p.MarkManualReview(note); err != nil {
			return "", err
		}
		if err := uc.paymentRepo.MarkManualReview(ctx, p); err != nil {
			return "", fmt.Errorf("failed to park payment for review: %w", err)
		}
		return outcome, nil
	}

	switch p.Status() {
	case vo.PaymentStatusSuccess:
		log.Warnw("captured payment with unpaid order, re-driving settlement")
		if err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
			return uc.settler.SettleSuccess(txCtx, p)
		}); err != nil {
			return "", err
		}
		return sweepReconciled, nil
	case vo.PaymentStatusCreated, vo.PaymentStatusFailed:
	default:
		return sweepUnchanged, nil
	}

	if !p.AmountMatches(received, uc.cfg.AmountEpsilon) {
		log.Warnw("gateway amount differs from recorded amount", "expected", p.Amount().MinorUnits(), "received", received.MinorUnits())
		note := fmt.Sprintf("gateway reported %s, expected %s", received, p.Amount())
		return uc.escalate(ctx, p, reviewvo.TypePaymentMismatch, p.Amount().MinorUnits(), received, note)
	}

	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := p.MarkSuccess(remote.GatewayPaymentID, remote.TransactionID); err != nil {
			return err
		}
		if err := uc.paymentRepo.MarkSuccess(txCtx, p); err != nil {
			return fmt.Errorf("failed to mark payment success: %w", err)
		}
		return uc.settler.SettleSuccess(txCtx, p)
	})
	if err != nil {
		return "", err
	}
	uc.recordAudit(ctx, p, "gateway_success")
	log.Infow("payment reconciled to success")
	return sweepReconciled, nil
}

func (uc *ReconcilePaymentsUseCase) applyRemoteFailure(ctx context.Context, log logger.Interface, p *payment.Payment, ord *order.Order) (sweepOutcome, error) {
	if p.Status() != vo.PaymentStatusCreated {
		return sweepUnchanged, nil
	}

	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := p.MarkFailed(vo.FailureReasonGatewayFailure); err != nil {
			return err
		}
		if err := uc.paymentRepo.MarkFailed(txCtx, p); err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		return uc.settler.SettleFailure(txCtx, p)
	})
	if err != nil {
		return "", err
	}
	uc.recordAudit(ctx, p, "gateway_failed")
	log.Infow("payment reconciled to failed")

	if uc.cfg.AutoRetryFailed && uc.queue != nil && !ord.IsPaid() && ord.OrderStatus() == ordervo.OrderStatusCreated {
		uc.enqueueRetry(ctx, log, p)
	}
	return sweepFailed, nil
}

func (uc *ReconcilePaymentsUseCase) enqueueRetry(ctx context.Context, log logger.Interface, p *payment.Payment) {
	attempts, err := uc.paymentRepo.CountByOrderAndGateway(ctx, p.OrderID(), p.Gateway())
	if err != nil {
		log.Warnw("failed to count payments for auto retry", "error", err)
		return
	}
	payload, err := json.Marshal(RetryJobPayload{OrderID: p.OrderID(), Gateway: p.Gateway(), Reason: retryReasonReconciliationFailed})
	if err != nil {
		log.Warnw("failed to encode auto retry", "error", err)
		return
	}
	jobID := RetryJobID(p.OrderID(), p.Gateway(), attempts+1)
	if _, err := uc.queue.Enqueue(ctx, Job{Queue: QueueRetries, ID: jobID, Payload: payload}); err != nil {
		log.Warnw("failed to enqueue auto retry", "job_id", jobID, "error", err)
		return
	}
	log.Infow("auto retry enqueued", "job_id", jobID)
}

func (uc *ReconcilePaymentsUseCase) applyRemoteRefund(ctx context.Context, log logger.Interface, p *payment.Payment, ord *order.Order, remote *paymentgateway.Status) (sweepOutcome, error) {
	refundedTotal := remote.RefundedAmount
	if remote.FullRefund {
		refundedTotal = p.Amount().MinorUnits()
	}
	if refundedTotal <= 0 || !ord.ReflectsRefund() || !p.Status().IsCaptured() || p.IsRefundSettled(refundedTotal) {
		// the refund webhook will catch up
		return sweepUnchanged, nil
	}

	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := p.FinalizeRefund(refundedTotal); err != nil {
			return err
		}
		if err := uc.paymentRepo.FinalizeRefund(txCtx, p); err != nil {
			return fmt.Errorf("failed to finalize refund: %w", err)
		}
		return uc.settler.SettleRefund(txCtx, p)
	})
	if err != nil {
		return "", err
	}
	uc.recordAudit(ctx, p, "gateway_refunded")
	log.Infow("refund reconciled", "status", p.Status(), "refund_amount", p.RefundAmount())
	return sweepReconciled, nil
}

// detectInverseMismatch escalates orders marked paid without any captured payment.
func (uc *ReconcilePaymentsUseCase) detectInverseMismatch(ctx context.Context, log logger.Interface, p *payment.Payment, ord *order.Order) (sweepOutcome, error) {
	if !ord.IsPaid() || settledPayment(p) || p.Status() == vo.PaymentStatusManualReview {
		return sweepUnchanged, nil
	}
	captured, err := uc.paymentRepo.HasCapturedPayment(ctx, ord.ID())
	if err != nil {
		return "", fmt.Errorf("failed to check captured payments: %w", err)
	}
	if captured {
		return sweepUnchanged, nil
	}
	log.Warnw("order paid without a captured payment", "payment_status", p.Status())
	// keyed by order so every payment of the order maps to one ticket
	_, _, err = uc.escalator.Escalate(ctx, review.NewReviewParams{
		Type:           reviewvo.TypePaymentMismatch,
		OrderID:        ord.ID(),
		ExpectedAmount: ord.Amount().MinorUnits(),
		Currency:       ord.Amount().Currency(),
		Summary:        fmt.Sprintf("order marked %s but no payment captured", ord.PaymentStatus()),
	}, constants.ActorReconciler)
	if err != nil {
		return "", err
	}
	return sweepEscalated, nil
}

func (uc *ReconcilePaymentsUseCase) escalate(ctx context.Context, p *payment.Payment, t reviewvo.ReviewType, expected int64, received vo.Money, note string) (sweepOutcome, error) {
	_, _, err := uc.escalator.Escalate(ctx, review.NewReviewParams{
		Type:           t,
		OrderID:        p.OrderID(),
		PaymentID:      p.ID(),
		ExpectedAmount: expected,
		ReceivedAmount: received.MinorUnits(),
		Currency:       received.Currency(),
		Summary:        note,
	}, constants.ActorReconciler)
	if err != nil {
		return "", err
	}
	return sweepEscalated, nil
}

func (uc *ReconcilePaymentsUseCase) recordAudit(ctx context.Context, p *payment.Payment, reason string) {
	rec := audit.NewRecord(audit.ActionPaymentReconciled, constants.ActorReconciler)
	rec.OrderID = p.OrderID()
	rec.PaymentID = p.ID()
	rec.Amount = p.Amount().MinorUnits()
	rec.Currency = p.Amount().Currency()
	rec.Reason = reason
	rec.Details = map[string]interface{}{"status": p.Status().String(), "refund_amount": p.RefundAmount()}
	if err := uc.auditor.Record(ctx, rec); err != nil {
		uc.logger.Warnw("failed to record reconciliation audit", "payment_id", p.ID(), "error", err)
	}
}

func settledPayment(p *payment.Payment) bool {
	return p.Status().IsCaptured() || p.Status() == vo.PaymentStatusRefunded
}
