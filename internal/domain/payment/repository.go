package payment

import (
	"context"
	"time"

	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
)

// Repository persists payments through narrow, named operations. Transition
// writes are compare-and-set on the persisted version and return
// ErrConcurrentModification when another writer got there first.
type Repository interface {
	// Create inserts a payment. A second created payment for the same order
	// and gateway, or a second payment for the same gateway order, fails with
	// ErrDuplicateOpenPayment.
	Create(ctx context.Context, payment *Payment) error

	GetByID(ctx context.Context, id uint) (*Payment, error)
	GetBySID(ctx context.Context, sid string) (*Payment, error)
	GetByGatewayOrderID(ctx context.Context, gateway vo.Gateway, gatewayOrderID string) (*Payment, error)
	// GetOpenByOrderAndGateway returns nil, nil when no created payment exists.
	GetOpenByOrderAndGateway(ctx context.Context, orderID uint, gateway vo.Gateway) (*Payment, error)
	ListByOrder(ctx context.Context, orderID uint) ([]*Payment, error)
	CountByOrderAndGateway(ctx context.Context, orderID uint, gateway vo.Gateway) (int64, error)
	HasCapturedPayment(ctx context.Context, orderID uint) (bool, error)

	MarkSuccess(ctx context.Context, payment *Payment) error
	MarkFailed(ctx context.Context, payment *Payment) error
	MarkManualReview(ctx context.Context, payment *Payment) error
	SaveSuspicion(ctx context.Context, payment *Payment) error
	FinalizeRefund(ctx context.Context, payment *Payment) error
	RecordGatewayResponse(ctx context.Context, id uint, raw []byte) error

	// ApplyRefund atomically adds amount to refund_amount provided the
	// payment is captured and the result stays within the captured amount.
	ApplyRefund(ctx context.Context, id uint, amount int64) error
	// RevertRefund undoes ApplyRefund.
	RevertRefund(ctx context.Context, id uint, amount int64) error

	// FailOpenPayments fails every created payment of the order on the
	// gateway and returns how many were changed.
	FailOpenPayments(ctx context.Context, orderID uint, gateway vo.Gateway, reason string) (int64, error)

	ListStaleCreated(ctx context.Context, createdBefore time.Time, limit int) ([]*Payment, error)
	ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]*Payment, error)
}
