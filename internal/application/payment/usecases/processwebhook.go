package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/domain/review"
	reviewvo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/constants"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

const (
	outcomeApplied   = "applied"
	outcomeNoop      = "noop"
	outcomeEscalated = "escalated"
	outcomeError     = "error"
)

// ProcessWebhookUseCase applies verified gateway events. Every branch checks
// the current payment state first so redelivery is a no-op.
type ProcessWebhookUseCase struct {
	paymentRepo   payment.Repository
	orders        OrderService
	settler       *Settler
	escalator     *Escalator
	txMgr         TransactionManager
	auditor       audit.Recorder
	amountEpsilon int64
	metrics       Metrics
	logger        logger.Interface
}

func NewProcessWebhookUseCase(
	paymentRepo payment.Repository,
	orders OrderService,
	settler *Settler,
	escalator *Escalator,
	txMgr TransactionManager,
	auditor audit.Recorder,
	amountEpsilon int64,
	metrics Metrics,
	logger logger.Interface,
) *ProcessWebhookUseCase {
	if metrics == nil {
		metrics = NopMetrics
	}
	return &ProcessWebhookUseCase{
		paymentRepo:   paymentRepo,
		orders:        orders,
		settler:       settler,
		escalator:     escalator,
		txMgr:         txMgr,
		auditor:       auditor,
		amountEpsilon: amountEpsilon,
		metrics:       metrics,
		logger:        logger,
	}
}

// HandleJob decodes a queued webhook job and processes it.
func (uc *ProcessWebhookUseCase) HandleJob(ctx context.Context, payload []byte) error {
	var event paymentgateway.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: undecodable webhook job: %v", ErrNonRetryable, err)
	}
	return uc.Execute(ctx, &event)
}

func (uc *ProcessWebhookUseCase) Execute(ctx context.Context, event *paymentgateway.WebhookEvent) error {
	log := uc.logger.With("gateway", event.Gateway, "event_id", event.EventID, "category", event.Category)

	if event.Category == paymentgateway.EventCategoryIgnored {
		log.Debugw("ignoring webhook event", "type", event.Type)
		uc.metrics.WebhookProcessed(event.Gateway.String(), string(event.Category), outcomeNoop)
		return nil
	}

	p, err := uc.paymentRepo.GetByGatewayOrderID(ctx, event.Gateway, event.GatewayOrderID)
	if err != nil {
		uc.metrics.WebhookProcessed(event.Gateway.String(), string(event.Category), outcomeError)
		if errors.Is(err, payment.ErrPaymentNotFound) {
			// The initiating transaction may not have committed yet.
			log.Warnw("webhook references unknown payment", "gateway_order_id", event.GatewayOrderID)
			return fmt.Errorf("payment for gateway order %s not found: %w", event.GatewayOrderID, err)
		}
		log.Errorw("failed to load payment", "gateway_order_id", event.GatewayOrderID, "error", err)
		return fmt.Errorf("failed to load payment: %w", err)
	}
	log = log.With("payment_id", p.ID(), "order_id", p.OrderID())

	var outcome string
	switch event.Category {
	case paymentgateway.EventCategorySuccess:
		outcome, err = uc.handleSuccess(ctx, log, p, event)
	case paymentgateway.EventCategoryRefund:
		outcome, err = uc.handleRefund(ctx, log, p, event)
	case paymentgateway.EventCategoryFailure:
		outcome, err = uc.handleFailure(ctx, log, p, event)
	default:
		err = fmt.Errorf("%w: unknown event category %q", ErrNonRetryable, event.Category)
	}
	if err != nil {
		uc.metrics.WebhookProcessed(event.Gateway.String(), string(event.Category), outcomeError)
		log.Errorw("failed to process webhook", "error", err)
		return err
	}
	uc.metrics.WebhookProcessed(event.Gateway.String(), string(event.Category), outcome)
	return nil
}

func (uc *ProcessWebhookUseCase) handleSuccess(ctx context.Context, log logger.Interface, p *payment.Payment, event *paymentgateway.WebhookEvent) (string, error) {
	switch {
	case p.Status() == vo.PaymentStatusSuccess:
		ord, err := uc.orders.GetOrder(ctx, p.OrderID())
		if err != nil {
			return "", fmt.Errorf("failed to load order: %w", err)
		}
		if ord.IsPaid() {
			log.Infow("payment already successful, skipping")
			return outcomeNoop, nil
		}
		log.Warnw("payment successful but order unsettled, re-driving settlement")
		if err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
			return uc.settler.SettleSuccess(txCtx, p)
		}); err != nil {
			return "", err
		}
		return outcomeApplied, nil
	case p.Status().IsCaptured(), p.Status() == vo.PaymentStatusRefunded:
		log.Infow("payment already captured, skipping", "status", p.Status())
		return outcomeNoop, nil
	case p.Status() == vo.PaymentStatusManualReview:
		log.Infow("payment under manual review, leaving for operator")
		return outcomeNoop, nil
	}

	received := vo.NewMoney(event.Amount, event.Currency)
	if !p.AmountMatches(received, uc.amountEpsilon) {
		return uc.escalateAmountMismatch(ctx, log, p, received)
	}

	ord, err := uc.orders.GetOrder(ctx, p.OrderID())
	if err != nil {
		return "", fmt.Errorf("failed to load order: %w", err)
	}
	if ord.IsPaid() {
		note := fmt.Sprintf("gateway captured %s but order already paid", received)
		// the ticket goes first: a parked payment is skipped on redelivery
		if _, _, err := uc.escalator.Escalate(ctx, review.NewReviewParams{
			Type:           reviewvo.TypeGatewayAnomaly,
			OrderID:        p.OrderID(),
			PaymentID:      p.ID(),
			ExpectedAmount: p.Amount().MinorUnits(),
			ReceivedAmount: received.MinorUnits(),
			Currency:       received.Currency(),
			Summary:        note,
		}, constants.ActorWebhook); err != nil {
			return "", err
		}
		if err := p.MarkManualReview(note); err != nil {
			return "", err
		}
		if err := uc.paymentRepo.MarkManualReview(ctx, p); err != nil {
			return "", fmt.Errorf("failed to park payment for review: %w", err)
		}
		return outcomeEscalated, nil
	}

	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := p.MarkSuccess(event.GatewayPaymentID, event.TransactionID); err != nil {
			return err
		}
		p.RecordWebhook(event.Raw)
		if err := uc.paymentRepo.MarkSuccess(txCtx, p); err != nil {
			return fmt.Errorf("failed to mark payment success: %w", err)
		}
		return uc.settler.SettleSuccess(txCtx, p)
	})
	if err != nil {
		return "", err
	}

	uc.recordAudit(ctx, audit.ActionPaymentSucceeded, p, p.Amount().MinorUnits(), event)
	log.Infow("payment succeeded", "transaction_id", event.TransactionID)
	return outcomeApplied, nil
}

func (uc *ProcessWebhookUseCase) escalateAmountMismatch(ctx context.Context, log logger.Interface, p *payment.Payment, received vo.Money) (string, error) {
	note := fmt.Sprintf("gateway reported %s, expected %s", received, p.Amount())
	log.Warnw("webhook amount mismatch", "expected", p.Amount().MinorUnits(), "received", received.MinorUnits())

	if _, _, err := uc.escalator.Escalate(ctx, review.NewReviewParams{
		Type:           reviewvo.TypePaymentMismatch,
		OrderID:        p.OrderID(),
		PaymentID:      p.ID(),
		ExpectedAmount: p.Amount().MinorUnits(),
		ReceivedAmount: received.MinorUnits(),
		Currency:       received.Currency(),
		Summary:        note,
	}, constants.ActorWebhook); err != nil {
		return "", err
	}
	if !p.IsSuspicious() {
		p.FlagSuspicious(note)
		p.SetMetadata(payment.MetadataReceivedAmt, received.MinorUnits())
		if err := uc.paymentRepo.SaveSuspicion(ctx, p); err != nil {
			return "", fmt.Errorf("failed to flag payment: %w", err)
		}
	}
	return outcomeEscalated, nil
}

func (uc *ProcessWebhookUseCase) handleRefund(ctx context.Context, log logger.Interface, p *payment.Payment, event *paymentgateway.WebhookEvent) (string, error) {
	refundedTotal := event.RefundedAmount
	if refundedTotal <= 0 {
		return "", fmt.Errorf("%w: refund event without refunded amount", ErrNonRetryable)
	}
	if p.IsRefundSettled(refundedTotal) {
		log.Infow("refund already settled, skipping", "refunded_total", refundedTotal)
		return outcomeNoop, nil
	}
	if !p.Status().IsCaptured() && p.Status() != vo.PaymentStatusManualReview {
		return uc.escalateRefundMismatch(ctx, log, p, refundedTotal, fmt.Sprintf("refund of %d reported for %s payment", refundedTotal, p.Status()))
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
	if errors.Is(err, payment.ErrInvalidTransition) {
		return uc.escalateRefundMismatch(ctx, log, p, refundedTotal, fmt.Sprintf("refund of %d cannot be applied to %s payment", refundedTotal, p.Status()))
	}
	if err != nil {
		return "", err
	}

	uc.recordAudit(ctx, audit.ActionRefundFinalized, p, p.RefundAmount(), event)
	log.Infow("refund finalized", "status", p.Status(), "refund_amount", p.RefundAmount())
	return outcomeApplied, nil
}

func (uc *ProcessWebhookUseCase) escalateRefundMismatch(ctx context.Context, log logger.Interface, p *payment.Payment, refundedTotal int64, note string) (string, error) {
	log.Warnw("refund does not match payment state", "status", p.Status(), "refunded_total", refundedTotal)
	if _, _, err := uc.escalator.Escalate(ctx, review.NewReviewParams{
		Type:           reviewvo.TypeRefundMismatch,
		OrderID:        p.OrderID(),
		PaymentID:      p.ID(),
		ExpectedAmount: p.RefundAmount(),
		ReceivedAmount: refundedTotal,
		Currency:       p.Amount().Currency(),
		Summary:        note,
	}, constants.ActorWebhook); err != nil {
		return "", err
	}
	return outcomeEscalated, nil
}

func (uc *ProcessWebhookUseCase) handleFailure(ctx context.Context, log logger.Interface, p *payment.Payment, event *paymentgateway.WebhookEvent) (string, error) {
	if p.Status() != vo.PaymentStatusCreated {
		log.Infow("failure event for non-open payment, skipping", "status", p.Status())
		return outcomeNoop, nil
	}

	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := p.MarkFailed(vo.FailureReasonGatewayFailure); err != nil {
			return err
		}
		p.RecordWebhook(event.Raw)
		if event.FailureReason != "" {
			p.SetMetadata("gateway_failure_detail", event.FailureReason)
		}
		if err := uc.paymentRepo.MarkFailed(txCtx, p); err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		return uc.settler.SettleFailure(txCtx, p)
	})
	if err != nil {
		return "", err
	}

	uc.recordAudit(ctx, audit.ActionPaymentFailed, p, p.Amount().MinorUnits(), event)
	log.Infow("payment failed", "detail", event.FailureReason)
	return outcomeApplied, nil
}

func (uc *ProcessWebhookUseCase) recordAudit(ctx context.Context, action audit.Action, p *payment.Payment, amount int64, event *paymentgateway.WebhookEvent) {
	rec := audit.NewRecord(action, constants.ActorWebhook)
	rec.OrderID = p.OrderID()
	rec.PaymentID = p.ID()
	rec.Amount = amount
	rec.Currency = p.Amount().Currency()
	rec.Details = map[string]interface{}{
		"event_id":   event.EventID,
		"event_type": event.Type,
		"status":     p.Status().String(),
	}
	if err := uc.auditor.Record(ctx, rec); err != nil {
		uc.logger.Warnw("failed to record audit", "action", action, "payment_id", p.ID(), "error", err)
	}
}
