// Package audit records who did what to a payment, for finance and compliance.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orris-inc/payrecon/internal/shared/biztime"
)

type Action string

const (
	ActionRefundRequested   Action = "refund.requested"
	ActionRefundCompensated Action = "refund.compensated"
	ActionRefundFinalized   Action = "refund.finalized"
	ActionPaymentSucceeded  Action = "payment.succeeded"
	ActionPaymentFailed     Action = "payment.failed"
	ActionPaymentReconciled Action = "payment.reconciled"
	ActionPaymentRetried    Action = "payment.retried"
	ActionReviewOpened      Action = "review.opened"
	ActionReviewResolved    Action = "review.resolved"
)

// Record is an immutable audit entry.
type Record struct {
	ID         string                 `json:"id"`
	Action     Action                 `json:"action"`
	Actor      string                 `json:"actor"`
	OrderID    uint                   `json:"order_id,omitempty"`
	PaymentID  uint                   `json:"payment_id,omitempty"`
	Amount     int64                  `json:"amount,omitempty"`
	Currency   string                 `json:"currency,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func NewRecord(action Action, actor string) *Record {
	return &Record{
		ID:         uuid.NewString(),
		Action:     action,
		Actor:      actor,
		OccurredAt: biztime.NowUTC(),
	}
}

// Recorder persists and forwards audit records.
type Recorder interface {
	Record(ctx context.Context, record *Record) error
}

type Repository interface {
	Save(ctx context.Context, record *Record) error
	ListByPayment(ctx context.Context, paymentID uint) ([]*Record, error)
}
