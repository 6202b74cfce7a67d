package testutil

import (
	"time"

	"github.com/orris-inc/payrecon/internal/domain/order"
	ordervo "github.com/orris-inc/payrecon/internal/domain/order/valueobjects"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
)

// NewTestOrder builds a payable order owned by userID.
func NewTestOrder(id, userID uint, amount int64) *order.Order {
	now := time.Now().UTC()
	return order.ReconstructOrder(order.ReconstructOrderParams{
		ID:            id,
		OrderNo:       "ORD-TEST",
		UserID:        userID,
		Amount:        vo.NewMoney(amount, "INR"),
		OrderStatus:   ordervo.OrderStatusCreated,
		PaymentStatus: ordervo.PaymentStatusPending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// PaymentFixture describes a stored payment.
type PaymentFixture struct {
	ID               uint
	OrderID          uint
	Gateway          vo.Gateway
	GatewayOrderID   string
	GatewayPaymentID string
	Amount           int64
	RefundAmount     int64
	SettledRefund    int64
	Status           vo.PaymentStatus
	Age              time.Duration
}

// NewTestPayment reconstructs a payment from f, defaulting to a created
// stripe payment of 1000 INR.
func NewTestPayment(f PaymentFixture) *payment.Payment {
	if f.Gateway == "" {
		f.Gateway = vo.GatewayStripe
	}
	if f.Status == "" {
		f.Status = vo.PaymentStatusCreated
	}
	if f.Amount == 0 {
		f.Amount = 1000
	}
	if f.GatewayOrderID == "" {
		f.GatewayOrderID = "gw_order_fixture"
	}
	if f.SettledRefund == 0 && (f.Status == vo.PaymentStatusPartiallyRefunded || f.Status == vo.PaymentStatusRefunded) {
		f.SettledRefund = f.RefundAmount
	}
	created := time.Now().UTC().Add(-f.Age)
	var gwPaymentID *string
	if f.GatewayPaymentID != "" {
		gwPaymentID = &f.GatewayPaymentID
	}
	return payment.ReconstructPayment(payment.ReconstructPaymentParams{
		ID:                  f.ID,
		SID:                 "pay_fixture" + f.GatewayOrderID,
		OrderID:             f.OrderID,
		Gateway:             f.Gateway,
		GatewayOrderID:      f.GatewayOrderID,
		GatewayPaymentID:    gwPaymentID,
		Amount:              vo.NewMoney(f.Amount, "INR"),
		RefundAmount:        f.RefundAmount,
		SettledRefundAmount: f.SettledRefund,
		Status:              f.Status,
		Metadata:            map[string]interface{}{},
		Version:             1,
		CreatedAt:           created,
		UpdatedAt:           created,
	})
}
