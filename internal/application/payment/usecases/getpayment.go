package usecases

import (
	"context"
	"errors"

	"github.com/orris-inc/payrecon/internal/domain/payment"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

type GetPaymentQuery struct {
	PaymentSID  string
	RequesterID uint
	Role        authorization.UserRole
}

type GetPaymentUseCase struct {
	paymentRepo payment.Repository
	orders      OrderService
	logger      logger.Interface
}

func NewGetPaymentUseCase(paymentRepo payment.Repository, orders OrderService, logger logger.Interface) *GetPaymentUseCase {
	return &GetPaymentUseCase{
		paymentRepo: paymentRepo,
		orders:      orders,
		logger:      logger,
	}
}

// Execute hides payments of other customers behind not found.
func (uc *GetPaymentUseCase) Execute(ctx context.Context, query GetPaymentQuery) (*payment.Payment, error) {
	p, err := uc.paymentRepo.GetBySID(ctx, query.PaymentSID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return nil, apperrors.NewNotFoundError("payment not found").WithReason(ReasonPaymentNotFound)
		}
		uc.logger.Errorw("failed to get payment", "payment_sid", query.PaymentSID, "error", err)
		return nil, storeError("failed to load payment")
	}

	if !query.Role.IsStaff() {
		ord, err := uc.orders.GetOrder(ctx, p.OrderID())
		if err != nil {
			uc.logger.Errorw("failed to get order of payment", "payment_id", p.ID(), "error", err)
			return nil, storeError("failed to load payment")
		}
		if !authorization.CanAccessOwnedResource(query.RequesterID, query.Role, ord.UserID()) {
			return nil, apperrors.NewNotFoundError("payment not found").WithReason(ReasonPaymentNotFound)
		}
	}
	return p, nil
}
