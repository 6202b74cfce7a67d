package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/domain/order"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

type InitiatePaymentCommand struct {
	OrderID     uint
	Gateway     vo.Gateway
	RequesterID uint
	Role        authorization.UserRole
}

type InitiatePaymentResult struct {
	Payment     *payment.Payment
	ClientToken string
	Reused      bool
}

type InitiatePaymentUseCase struct {
	paymentRepo payment.Repository
	orders      OrderService
	gateways    GatewayResolver
	txMgr       TransactionManager
	logger      logger.Interface
}

func NewInitiatePaymentUseCase(
	paymentRepo payment.Repository,
	orders OrderService,
	gateways GatewayResolver,
	txMgr TransactionManager,
	logger logger.Interface,
) *InitiatePaymentUseCase {
	return &InitiatePaymentUseCase{
		paymentRepo: paymentRepo,
		orders:      orders,
		gateways:    gateways,
		txMgr:       txMgr,
		logger:      logger,
	}
}

func (uc *InitiatePaymentUseCase) Execute(ctx context.Context, cmd InitiatePaymentCommand) (*InitiatePaymentResult, error) {
	gw, err := uc.gateways.Get(cmd.Gateway)
	if err != nil {
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
	if !ord.IsEligibleForPayment() {
		return nil, apperrors.NewConflictError("order is not eligible for payment",
			fmt.Sprintf("order status %s, payment status %s", ord.OrderStatus(), ord.PaymentStatus()),
		).WithReason(ReasonOrderNotEligible)
	}

	var result *InitiatePaymentResult
	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		existing, err := uc.paymentRepo.GetOpenByOrderAndGateway(txCtx, ord.ID(), cmd.Gateway)
		if err != nil {
			return fmt.Errorf("failed to look up open payment: %w", err)
		}
		if existing != nil {
			result = &InitiatePaymentResult{Payment: existing, ClientToken: existing.ClientToken(), Reused: true}
			return nil
		}

		closed, err := uc.paymentRepo.FailOpenPayments(txCtx, ord.ID(), cmd.Gateway, vo.FailureReasonNewInitiation)
		if err != nil {
			return fmt.Errorf("failed to close stale payments: %w", err)
		}
		if closed > 0 {
			// an open payment committed after the lookup above; roll back and reuse it
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
		if err := uc.paymentRepo.Create(txCtx, p); err != nil {
			return err
		}
		result = &InitiatePaymentResult{Payment: p, ClientToken: p.ClientToken()}
		return nil
	})

	if err != nil {
		if errors.Is(err, payment.ErrDuplicateOpenPayment) {
			return uc.loadWinner(ctx, ord.ID(), cmd.Gateway)
		}
		if errors.Is(err, paymentgateway.ErrGatewayUnavailable) {
			uc.logger.Errorw("gateway rejected intent creation", "order_id", ord.ID(), "gateway", cmd.Gateway, "error", err)
			return nil, gatewayError("failed to create payment intent", err)
		}
		uc.logger.Errorw("failed to initiate payment", "order_id", ord.ID(), "gateway", cmd.Gateway, "error", err)
		return nil, storeError("failed to initiate payment")
	}

	if result.Reused {
		uc.logger.Infow("reusing open payment", "payment_id", result.Payment.ID(), "order_id", ord.ID(), "gateway", cmd.Gateway)
	} else {
		uc.logger.Infow("payment initiated",
			"payment_id", result.Payment.ID(),
			"payment_sid", result.Payment.SID(),
			"order_id", ord.ID(),
			"gateway", cmd.Gateway,
			"amount", result.Payment.Amount().MinorUnits(),
		)
	}
	return result, nil
}

// loadWinner returns the payment created by the request that won the race.
func (uc *InitiatePaymentUseCase) loadWinner(ctx context.Context, orderID uint, gateway vo.Gateway) (*InitiatePaymentResult, error) {
	winner, err := uc.paymentRepo.GetOpenByOrderAndGateway(ctx, orderID, gateway)
	if err != nil {
		uc.logger.Errorw("failed to re-read open payment", "order_id", orderID, "gateway", gateway, "error", err)
		return nil, storeError("failed to initiate payment")
	}
	if winner == nil {
		return nil, apperrors.NewConflictError("concurrent payment initiation, retry the request").WithReason(ReasonOrderNotEligible)
	}
	uc.logger.Infow("concurrent initiation resolved to existing payment", "payment_id", winner.ID(), "order_id", orderID)
	return &InitiatePaymentResult{Payment: winner, ClientToken: winner.ClientToken(), Reused: true}, nil
}

// createIntentPayment asks the gateway for a new intent and builds the
// matching created payment. attempt numbers the intent for idempotency.
func createIntentPayment(ctx context.Context, gw paymentgateway.Gateway, ord *order.Order, attempt int64) (*payment.Payment, error) {
	key := intentIdempotencyKey(ord.ID(), gw.Name(), attempt)
	intent, err := gw.CreateIntent(ctx, paymentgateway.CreateIntentRequest{
		Amount:         ord.Amount().MinorUnits(),
		Currency:       ord.Amount().Currency(),
		ReceiptRef:     ord.OrderNo(),
		IdempotencyKey: key,
		Notes:          map[string]string{"order_no": ord.OrderNo()},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", paymentgateway.ErrGatewayUnavailable, err)
	}

	p, err := payment.NewPayment(ord.ID(), gw.Name(), ord.Amount(), intent.GatewayOrderID, intent.ClientToken)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment: %w", err)
	}
	p.SetMetadata(payment.MetadataIdempotency, key)
	p.RecordGatewayResponse(intent.Raw)
	return p, nil
}
