package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

const (
	sagaStepReserve = "reserve"
	sagaStepGateway = "gateway"
)

type RequestRefundCommand struct {
	PaymentSID string
	// Amount in minor units; nil refunds everything still refundable.
	Amount  *int64
	Reason  string
	ActorID uint
	Role    authorization.UserRole
}

type RequestRefundResult struct {
	RefundRequested     int64  `json:"refund_requested"`
	RemainingRefundable int64  `json:"remaining_refundable"`
	RefundID            string `json:"refund_id"`
	Currency            string `json:"currency"`
}

// RequestRefundUseCase reserves the refund amount, asks the gateway to
// execute it and releases the reservation if the gateway refuses. The final
// refund status is applied when the gateway confirms.
type RequestRefundUseCase struct {
	paymentRepo payment.Repository
	gateways    GatewayResolver
	enforcer    PermissionEnforcer
	sanitizer   TextSanitizer
	auditor     audit.Recorder
	metrics     Metrics
	logger      logger.Interface
}

func NewRequestRefundUseCase(
	paymentRepo payment.Repository,
	gateways GatewayResolver,
	enforcer PermissionEnforcer,
	sanitizer TextSanitizer,
	auditor audit.Recorder,
	metrics Metrics,
	logger logger.Interface,
) *RequestRefundUseCase {
	if metrics == nil {
		metrics = NopMetrics
	}
	return &RequestRefundUseCase{
		paymentRepo: paymentRepo,
		gateways:    gateways,
		enforcer:    enforcer,
		sanitizer:   sanitizer,
		auditor:     auditor,
		metrics:     metrics,
		logger:      logger,
	}
}

func (uc *RequestRefundUseCase) Execute(ctx context.Context, cmd RequestRefundCommand) (*RequestRefundResult, error) {
	allowed, err := uc.enforcer.Enforce(cmd.Role.String(), "refund", "create")
	if err != nil {
		uc.logger.Errorw("permission check failed", "role", cmd.Role, "error", err)
		return nil, apperrors.NewInternalError("permission check failed")
	}
	if !allowed {
		return nil, apperrors.NewForbiddenError("not allowed to issue refunds").WithReason(ReasonForbidden)
	}

	p, err := uc.paymentRepo.GetBySID(ctx, cmd.PaymentSID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return nil, apperrors.NewNotFoundError("payment not found").WithReason(ReasonPaymentNotFound)
		}
		uc.logger.Errorw("failed to get payment", "payment_sid", cmd.PaymentSID, "error", err)
		return nil, storeError("failed to load payment")
	}

	amount, err := p.ResolveRefundAmount(cmd.Amount)
	if err != nil {
		return nil, refundValidationError(err)
	}
	if p.GatewayPaymentID() == nil {
		return nil, apperrors.NewConflictError("payment has no captured charge").WithReason(ReasonNotRefundable)
	}

	gw, err := uc.gateways.Get(p.Gateway())
	if err != nil {
		uc.logger.Errorw("gateway not configured for refund", "gateway", p.Gateway(), "error", err)
		return nil, apperrors.NewInternalError("gateway not configured").WithReason(ReasonUnsupportedGateway)
	}

	reason := uc.sanitizer.Text(cmd.Reason)
	refundableBefore := p.RefundableAmount()
	var refundID string
	var refundRaw []byte

	err = runSaga(ctx,
		SagaStep{
			Name: sagaStepReserve,
			Do: func(ctx context.Context) error {
				return uc.paymentRepo.ApplyRefund(ctx, p.ID(), amount)
			},
			Undo: func(ctx context.Context) error {
				return uc.paymentRepo.RevertRefund(ctx, p.ID(), amount)
			},
		},
		SagaStep{
			Name: sagaStepGateway,
			Do: func(ctx context.Context) error {
				res, err := gw.Refund(ctx, paymentgateway.RefundRequest{
					GatewayPaymentID: *p.GatewayPaymentID(),
					Amount:           amount,
					Currency:         p.Amount().Currency(),
					Reason:           reason,
					IdempotencyKey:   fmt.Sprintf("refund:%s:%d:%d", p.SID(), p.RefundAmount(), amount),
				})
				if err != nil {
					return err
				}
				refundID = res.RefundID
				refundRaw = res.Raw
				return nil
			},
		},
	)
	if err != nil {
		return nil, uc.handleSagaFailure(ctx, cmd, p, amount, reason, err)
	}

	if len(refundRaw) > 0 {
		if err := uc.paymentRepo.RecordGatewayResponse(ctx, p.ID(), refundRaw); err != nil {
			uc.logger.Warnw("failed to store refund response", "payment_id", p.ID(), "refund_id", refundID, "error", err)
		}
	}

	rec := uc.newRefundRecord(audit.ActionRefundRequested, cmd, p, amount, reason)
	rec.Details["refund_id"] = refundID
	if err := uc.auditor.Record(ctx, rec); err != nil {
		uc.logger.Warnw("failed to record refund audit", "payment_id", p.ID(), "error", err)
	}
	uc.metrics.RefundRequested(p.Gateway().String(), "requested")

	uc.logger.Infow("refund requested",
		"payment_id", p.ID(),
		"order_id", p.OrderID(),
		"amount", amount,
		"refund_id", refundID,
		"actor_id", cmd.ActorID,
	)
	return &RequestRefundResult{
		RefundRequested:     amount,
		RemainingRefundable: refundableBefore - amount,
		RefundID:            refundID,
		Currency:            p.Amount().Currency(),
	}, nil
}

func (uc *RequestRefundUseCase) handleSagaFailure(ctx context.Context, cmd RequestRefundCommand, p *payment.Payment, amount int64, reason string, err error) error {
	sagaErr, ok := asSagaError(err)
	if !ok || sagaErr.Step == sagaStepReserve {
		uc.metrics.RefundRequested(p.Gateway().String(), "rejected")
		if errors.Is(err, payment.ErrInvalidRefundAmount) || errors.Is(err, payment.ErrNotRefundable) {
			return refundValidationError(err)
		}
		uc.logger.Errorw("failed to reserve refund", "payment_id", p.ID(), "amount", amount, "error", err)
		return storeError("failed to reserve refund")
	}

	uc.metrics.RefundRequested(p.Gateway().String(), "gateway_failed")
	rec := uc.newRefundRecord(audit.ActionRefundCompensated, cmd, p, amount, reason)
	rec.Details["error"] = sagaErr.Err.Error()
	rec.Details["compensated"] = sagaErr.Compensated()
	if !sagaErr.Compensated() {
		for step, undoErr := range sagaErr.UndoFailures {
			uc.logger.Errorw("refund compensation failed, refund amount is overstated",
				"payment_id", p.ID(),
				"amount", amount,
				"step", step,
				"error", undoErr,
			)
		}
	}
	if auditErr := uc.auditor.Record(context.WithoutCancel(ctx), rec); auditErr != nil {
		uc.logger.Warnw("failed to record refund compensation audit", "payment_id", p.ID(), "error", auditErr)
	}

	uc.logger.Errorw("gateway refund failed", "payment_id", p.ID(), "amount", amount, "error", sagaErr.Err)
	return gatewayError("gateway refund failed", sagaErr.Err)
}

func (uc *RequestRefundUseCase) newRefundRecord(action audit.Action, cmd RequestRefundCommand, p *payment.Payment, amount int64, reason string) *audit.Record {
	rec := audit.NewRecord(action, fmt.Sprintf("user:%d", cmd.ActorID))
	rec.OrderID = p.OrderID()
	rec.PaymentID = p.ID()
	rec.Amount = amount
	rec.Currency = p.Amount().Currency()
	rec.Reason = reason
	rec.Details = map[string]interface{}{"payment_sid": p.SID(), "role": cmd.Role.String()}
	return rec
}

func refundValidationError(err error) error {
	if errors.Is(err, payment.ErrNotRefundable) {
		return apperrors.NewConflictError("payment is not refundable", err.Error()).WithReason(ReasonNotRefundable)
	}
	return apperrors.NewValidationError("invalid refund amount", err.Error()).WithReason(ReasonInvalidRefundAmount)
}
