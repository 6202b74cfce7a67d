package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/orris-inc/payrecon/internal/domain/order/valueobjects"
	paymentvo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/biztime"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidTransition      = errors.New("invalid order status transition")
	ErrConcurrentModification = errors.New("order was modified concurrently")
)

// Order is the part of a customer order the payment engine reads and drives.
type Order struct {
	id             uint
	orderNo        string
	userID         uint
	amount         paymentvo.Money
	orderStatus    valueobjects.OrderStatus
	paymentStatus  valueobjects.PaymentStatus
	refundedAmount int64
	paidAt         *time.Time

	version          int
	persistedVersion int
	createdAt        time.Time
	updatedAt        time.Time
}

func NewOrder(orderNo string, userID uint, amount paymentvo.Money) (*Order, error) {
	if orderNo == "" {
		return nil, fmt.Errorf("order number is required")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	now := biztime.NowUTC()
	return &Order{
		orderNo:       orderNo,
		userID:        userID,
		amount:        amount,
		orderStatus:   valueobjects.OrderStatusCreated,
		paymentStatus: valueobjects.PaymentStatusPending,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// IsEligibleForPayment reports whether a new payment may be initiated.
func (o *Order) IsEligibleForPayment() bool {
	return o.orderStatus == valueobjects.OrderStatusCreated &&
		o.paymentStatus == valueobjects.PaymentStatusPending
}

func (o *Order) IsPaid() bool {
	return o.paymentStatus.IsSettled()
}

func (o *Order) BelongsTo(userID uint) bool {
	return o.userID == userID
}

func (o *Order) setPaymentStatus(next valueobjects.PaymentStatus) error {
	if !o.paymentStatus.CanTransitionTo(next) {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, o.paymentStatus, next)
	}
	o.paymentStatus = next
	return nil
}

func (o *Order) setOrderStatus(next valueobjects.OrderStatus) error {
	if !o.orderStatus.CanTransitionTo(next) {
		return fmt.Errorf("%w: order %s -> %s", ErrInvalidTransition, o.orderStatus, next)
	}
	o.orderStatus = next
	return nil
}

func (o *Order) touch() {
	o.updatedAt = biztime.NowUTC()
	o.version++
}

// Confirm marks the order paid. It returns false when the order already was.
func (o *Order) Confirm() (bool, error) {
	if o.paymentStatus.IsSettled() {
		return false, nil
	}
	if err := o.setPaymentStatus(valueobjects.PaymentStatusPaid); err != nil {
		return false, err
	}
	if o.orderStatus == valueobjects.OrderStatusCreated {
		if err := o.setOrderStatus(valueobjects.OrderStatusConfirmed); err != nil {
			return false, err
		}
	}
	now := biztime.NowUTC()
	o.paidAt = &now
	o.touch()
	return true, nil
}

// Fail records a failed payment attempt. Settled orders are left untouched.
func (o *Order) Fail() (bool, error) {
	if o.paymentStatus == valueobjects.PaymentStatusFailed || o.paymentStatus.IsSettled() {
		return false, nil
	}
	if err := o.setPaymentStatus(valueobjects.PaymentStatusFailed); err != nil {
		return false, err
	}
	o.touch()
	return true, nil
}

// MarkRefunded reflects a refund of refundedTotal minor units.
func (o *Order) MarkRefunded(refundedTotal int64, full bool) (bool, error) {
	if !o.paymentStatus.IsSettled() {
		return false, fmt.Errorf("%w: cannot refund an unpaid order", ErrInvalidTransition)
	}
	if o.orderStatus == valueobjects.OrderStatusRefunded {
		return false, nil
	}
	if !full && refundedTotal <= o.refundedAmount {
		return false, nil
	}

	if full {
		if err := o.setOrderStatus(valueobjects.OrderStatusRefunded); err != nil {
			return false, err
		}
		if err := o.setPaymentStatus(valueobjects.PaymentStatusRefunded); err != nil {
			return false, err
		}
		refundedTotal = o.amount.MinorUnits()
	} else if err := o.setOrderStatus(valueobjects.OrderStatusPartiallyRefunded); err != nil {
		return false, err
	}
	if refundedTotal > o.refundedAmount {
		o.refundedAmount = refundedTotal
	}
	o.touch()
	return true, nil
}

// ReflectsRefund reports whether the order already records a refund.
func (o *Order) ReflectsRefund() bool {
	return o.orderStatus == valueobjects.OrderStatusRefunded ||
		o.orderStatus == valueobjects.OrderStatusPartiallyRefunded
}

func (o *Order) ID() uint { return o.id }
func (o *Order) OrderNo() string { return o.orderNo }
func (o *Order) UserID() uint { return o.userID }
func (o *Order) Amount() paymentvo.Money { return o.amount }
func (o *Order) OrderStatus() valueobjects.OrderStatus { return o.orderStatus }
func (o *Order) PaymentStatus() valueobjects.PaymentStatus { return o.paymentStatus }
func (o *Order) RefundedAmount() int64 { return o.refundedAmount }
func (o *Order) PaidAt() *time.Time { return o.paidAt }
func (o *Order) Version() int { return o.version }
func (o *Order) PersistedVersion() int { return o.persistedVersion }
func (o *Order) CreatedAt() time.Time { return o.createdAt }
func (o *Order) UpdatedAt() time.Time { return o.updatedAt }

func (o *Order) SetID(id uint) {
	o.id = id
}

// Clone returns a detached copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}

func (o *Order) MarkPersisted() {
	o.persistedVersion = o.version
}

type ReconstructOrderParams struct {
	ID             uint
	OrderNo        string
	UserID         uint
	Amount         paymentvo.Money
	OrderStatus    valueobjects.OrderStatus
	PaymentStatus  valueobjects.PaymentStatus
	RefundedAmount int64
	PaidAt         *time.Time
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ReconstructOrder(p ReconstructOrderParams) *Order {
	return &Order{
		id:               p.ID,
		orderNo:          p.OrderNo,
		userID:           p.UserID,
		amount:           p.Amount,
		orderStatus:      p.OrderStatus,
		paymentStatus:    p.PaymentStatus,
		refundedAmount:   p.RefundedAmount,
		paidAt:           p.PaidAt,
		version:          p.Version,
		persistedVersion: p.Version,
		createdAt:        p.CreatedAt,
		updatedAt:        p.UpdatedAt,
	}
}
