package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/domain/order"
	ordervo "github.com/orris-inc/payrecon/internal/domain/order/valueobjects"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/constants"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

type RetryPaymentCommand struct {
	OrderID uint
	Gateway vo.Gateway
	Reason  string
}

type RetryPaymentResult struct {
	Payment *payment.Payment
	// AbortReason is set when no payment was created.
	AbortReason string
}

const (
	retryAbortOrderPaid      = "order_paid"
	retryAbortOrderClosed    = "order_closed"
	retryAbortAttemptPending = "attempt_in_flight"
)

// RetryPaymentUseCase re-attempts payment creation from a queued job. Order
// state may have changed since the job was enqueued, so every check of
// initiation is repeated here.
type RetryPaymentUseCase struct {
	paymentRepo payment.Repository
	orders      OrderService
	gateways    GatewayResolver
	txMgr       TransactionManager
	auditor     audit.Recorder
	logger      logger.Interface
}

func NewRetryPaymentUseCase(
	paymentRepo payment.Repository,
	orders OrderService,
	gateways GatewayResolver,
	txMgr TransactionManager,
	auditor audit.Recorder,
	logger logger.Interface,
) *RetryPaymentUseCase {
	return &RetryPaymentUseCase{
		paymentRepo: paymentRepo,
		orders:      orders,
		gateways:    gateways,
		txMgr:       txMgr,
		auditor:     auditor,
		logger:      logger,
	}
}

// HandleJob decodes a queued retry job and runs it.
func (uc *RetryPaymentUseCase) HandleJob(ctx context.Context, payload []byte) error {
	var job RetryJobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("%w: undecodable retry job: %v", ErrNonRetryable, err)
	}
	_, err := uc.Execute(ctx, RetryPaymentCommand{OrderID: job.OrderID, Gateway: job.Gateway, Reason: job.Reason})
	return err
}

func (uc *RetryPaymentUseCase) Execute(ctx context.Context, cmd RetryPaymentCommand) (*RetryPaymentResult, error) {
	gw, err := uc.gateways.Get(cmd.Gateway)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonRetryable, err)
	}

	ord, err := uc.orders.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNonRetryable, err)
		}
		uc.logger.Errorw("failed to get order for retry", "order_id", cmd.OrderID, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if ord.IsPaid() {
		uc.logger.Infow("order already paid, retry aborted", "order_id", cmd.OrderID)
		return &RetryPaymentResult{AbortReason: retryAbortOrderPaid}, nil
	}
	if ord.OrderStatus() != ordervo.OrderStatusCreated {
		uc.logger.Infow("order closed, retry aborted", "order_id", cmd.OrderID, "order_status", ord.OrderStatus())
		return &RetryPaymentResult{AbortReason: retryAbortOrderClosed}, nil
	}

	existing, err := uc.paymentRepo.GetOpenByOrderAndGateway(ctx, cmd.OrderID, cmd.Gateway)
	if err != nil {
		return nil, fmt.Errorf("failed to look up open payment: %w", err)
	}
	if existing != nil {
		uc.logger.Infow("payment attempt already in flight, retry aborted", "order_id", cmd.OrderID, "payment_id", existing.ID())
		return &RetryPaymentResult{AbortReason: retryAbortAttemptPending}, nil
	}

	var created *payment.Payment
	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		closed, err := uc.paymentRepo.FailOpenPayments(txCtx, ord.ID(), cmd.Gateway, vo.FailureReasonNewInitiation)
		if err != nil {
			return fmt.Errorf("failed to close stale payments: %w", err)
		}
		if closed > 0 {
			return payment.ErrDuplicateOpenPayment
		}
		attempts, err := uc.paymentRepo.CountByOrderAndGateway(txCtx, ord.ID(), cmd.Gateway)
		if err != nil {
			return fmt.Errorf("failed to count payments: %w", err)
		}
		p, err := createIntentPayment(txCtx, gw, ord, attempts+1)
		if err != nil {
			return err
		}
		p.MarkAsRetry(cmd.Reason)
		if err := uc.paymentRepo.Create(txCtx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		if errors.Is(err, payment.ErrDuplicateOpenPayment) {
			uc.logger.Infow("concurrent attempt created a payment, retry aborted", "order_id", cmd.OrderID)
			return &RetryPaymentResult{AbortReason: retryAbortAttemptPending}, nil
		}
		if errors.Is(err, paymentgateway.ErrGatewayUnavailable) {
			uc.logger.Warnw("gateway unavailable during retry", "order_id", cmd.OrderID, "error", err)
		} else {
			uc.logger.Errorw("failed to retry payment", "order_id", cmd.OrderID, "error", err)
		}
		return nil, err
	}

	rec := audit.NewRecord(audit.ActionPaymentRetried, constants.ActorRetry)
	rec.OrderID = ord.ID()
	rec.PaymentID = created.ID()
	rec.Amount = created.Amount().MinorUnits()
	rec.Currency = created.Amount().Currency()
	rec.Reason = cmd.Reason
	if err := uc.auditor.Record(ctx, rec); err != nil {
		uc.logger.Warnw("failed to record retry audit", "payment_id", created.ID(), "error", err)
	}

	uc.logger.Infow("payment retried",
		"payment_id", created.ID(),
		"order_id", ord.ID(),
		"gateway", cmd.Gateway,
		"reason", cmd.Reason,
	)
	return &RetryPaymentResult{Payment: created}, nil
}
