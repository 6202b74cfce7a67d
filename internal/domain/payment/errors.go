package payment

import "errors"

var (
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrInvalidTransition      = errors.New("invalid payment status transition")
	ErrDuplicateOpenPayment   = errors.New("an open payment already exists for this order and gateway")
	ErrConcurrentModification = errors.New("payment was modified concurrently")
	ErrNotRefundable          = errors.New("payment is not refundable")
	ErrInvalidRefundAmount    = errors.New("invalid refund amount")
)
