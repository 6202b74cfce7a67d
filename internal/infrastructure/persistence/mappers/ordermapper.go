package mappers

import (
	"fmt"

	"github.com/orris-inc/payrecon/internal/domain/order"
	ordervo "github.com/orris-inc/payrecon/internal/domain/order/valueobjects"
	paymentvo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/models"
)

func OrderToModel(o *order.Order) *models.OrderModel {
	return &models.OrderModel{
		ID:             o.ID(),
		OrderNo:        o.OrderNo(),
		UserID:         o.UserID(),
		Amount:         o.Amount().MinorUnits(),
		Currency:       o.Amount().Currency(),
		OrderStatus:    o.OrderStatus().String(),
		PaymentStatus:  o.PaymentStatus().String(),
		RefundedAmount: o.RefundedAmount(),
		PaidAt:         o.PaidAt(),
		Version:        o.Version(),
		CreatedAt:      o.CreatedAt(),
		UpdatedAt:      o.UpdatedAt(),
	}
}

func OrderToDomain(model *models.OrderModel) (*order.Order, error) {
	orderStatus := ordervo.OrderStatus(model.OrderStatus)
	if !orderStatus.IsValid() {
		return nil, fmt.Errorf("invalid order status: %s", model.OrderStatus)
	}
	paymentStatus := ordervo.PaymentStatus(model.PaymentStatus)
	if !paymentStatus.IsValid() {
		return nil, fmt.Errorf("invalid order payment status: %s", model.PaymentStatus)
	}

	return order.ReconstructOrder(order.ReconstructOrderParams{
		ID:             model.ID,
		OrderNo:        model.OrderNo,
		UserID:         model.UserID,
		Amount:         paymentvo.NewMoney(model.Amount, model.Currency),
		OrderStatus:    orderStatus,
		PaymentStatus:  paymentStatus,
		RefundedAmount: model.RefundedAmount,
		PaidAt:         model.PaidAt,
		Version:        model.Version,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}), nil
}
