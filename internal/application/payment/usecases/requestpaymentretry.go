package usecases

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/orris-inc/payrecon/internal/domain/order"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

const retryReasonUserRequested = "user_requested"

type RequestPaymentRetryCommand struct {
	OrderID     uint
	Gateway     vo.Gateway
	RequesterID uint
	Role        authorization.UserRole
}

type RequestPaymentRetryResult struct {
	JobID    string
	Enqueued bool
}

// RequestPaymentRetryUseCase queues a retry on behalf of the order owner.
type RequestPaymentRetryUseCase struct {
	paymentRepo payment.Repository
	orders      OrderService
	gateways    GatewayResolver
	queue       JobQueue
	logger      logger.Interface
}

func NewRequestPaymentRetryUseCase(
	paymentRepo payment.Repository,
	orders OrderService,
	gateways GatewayResolver,
	queue JobQueue,
	logger logger.Interface,
) *RequestPaymentRetryUseCase {
	return &RequestPaymentRetryUseCase{
		paymentRepo: paymentRepo,
		orders:      orders,
		gateways:    gateways,
		queue:       queue,
		logger:      logger,
	}
}

func (uc *RequestPaymentRetryUseCase) Execute(ctx context.Context, cmd RequestPaymentRetryCommand) (*RequestPaymentRetryResult, error) {
	if _, err := uc.gateways.Get(cmd.Gateway); err != nil {
		return nil, apperrors.NewValidationError("unsupported gateway", err.Error()).WithReason(ReasonUnsupportedGateway)
	}

	ord, err := uc.orders.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, apperrors.NewNotFoundError("order not found").WithReason(ReasonOrderNotFound)
		}
		uc.logger.Errorw("failed to get order", "order_id", cmd.OrderID, "error", err)
		return nil, storeError("failed to load order")
	}
	if !authorization.CanAccessOwnedResource(cmd.RequesterID, cmd.Role, ord.UserID()) {
		return nil, apperrors.NewNotFoundError("order not found").WithReason(ReasonOrderNotFound)
	}
	if ord.IsPaid() {
		return nil, apperrors.NewConflictError("order is already paid").WithReason(ReasonOrderNotEligible)
	}

	attempts, err := uc.paymentRepo.CountByOrderAndGateway(ctx, ord.ID(), cmd.Gateway)
	if err != nil {
		uc.logger.Errorw("failed to count payments", "order_id", ord.ID(), "error", err)
		return nil, storeError("failed to queue retry")
	}

	payload, err := json.Marshal(RetryJobPayload{OrderID: ord.ID(), Gateway: cmd.Gateway, Reason: retryReasonUserRequested})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode retry job")
	}
	jobID := RetryJobID(ord.ID(), cmd.Gateway, attempts+1)
	enqueued, err := uc.queue.Enqueue(ctx, Job{Queue: QueueRetries, ID: jobID, Payload: payload})
	if err != nil {
		uc.logger.Errorw("failed to enqueue retry", "order_id", ord.ID(), "job_id", jobID, "error", err)
		return nil, apperrors.NewUnavailableError("failed to queue retry").WithReason(ReasonEnqueueFailed)
	}

	uc.logger.Infow("payment retry requested", "order_id", ord.ID(), "gateway", cmd.Gateway, "job_id", jobID, "enqueued", enqueued)
	return &RequestPaymentRetryResult{JobID: jobID, Enqueued: enqueued}, nil
}
