package usecases

import (
	"context"
	"time"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/domain/billing"
	"github.com/orris-inc/payrecon/internal/domain/order"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/domain/review"
)

// TransactionManager runs fn in a database transaction carried by ctx.
type TransactionManager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// GatewayResolver looks up the configured adapter for a gateway.
type GatewayResolver interface {
	Get(name vo.Gateway) (paymentgateway.Gateway, error)
}

// OrderService is the order collaborator. Every mutation is idempotent.
type OrderService interface {
	GetOrder(ctx context.Context, orderID uint) (*order.Order, error)
	ConfirmOrder(ctx context.Context, orderID uint) error
	FailOrder(ctx context.Context, orderID uint) error
	MarkRefunded(ctx context.Context, orderID uint, refundedTotal int64, full bool) error
}

// InvoiceService issues billing documents, returning the existing one on repeats.
type InvoiceService interface {
	GenerateInvoice(ctx context.Context, orderID, paymentID uint, amount vo.Money) (*billing.Invoice, error)
	// GenerateCreditNote returns nil, nil when the order has no invoice.
	GenerateCreditNote(ctx context.Context, orderID uint, refundedTotal int64) (*billing.CreditNote, error)
}

// DedupeStore reserves keys with set-if-absent semantics.
type DedupeStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Job is a unit of background work. Jobs sharing an ID collapse into one.
type Job struct {
	Queue   string
	ID      string
	Payload []byte
}

// JobQueue is an at-least-once queue with retries.
type JobQueue interface {
	// Enqueue returns false when a job with the same ID is already known.
	Enqueue(ctx context.Context, job Job) (bool, error)
}

// Lock is a held distributed lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker acquires distributed locks without blocking.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (Lock, bool, error)
}

// PermissionEnforcer answers whether subject may perform action on resource.
type PermissionEnforcer interface {
	Enforce(subject, resource, action string) (bool, error)
}

// ReviewNotifier alerts operators about new manual reviews.
type ReviewNotifier interface {
	NotifyReviewOpened(ctx context.Context, r *review.ManualReview) error
}

// TextSanitizer cleans operator supplied free text.
type TextSanitizer interface {
	Text(input string) string
}

// Metrics receives engine counters.
type Metrics interface {
	WebhookReceived(gateway, result string)
	WebhookProcessed(gateway, category, result string)
	ReconciliationOutcome(outcome string)
	RefundRequested(gateway, result string)
	ReviewOpened(reviewType string)
}

type nopMetrics struct{}

func (nopMetrics) WebhookReceived(string, string) {}
func (nopMetrics) WebhookProcessed(string, string, string) {}
func (nopMetrics) ReconciliationOutcome(string) {}
func (nopMetrics) RefundRequested(string, string) {}
func (nopMetrics) ReviewOpened(string) {}

// NopMetrics discards every observation.
var NopMetrics Metrics = nopMetrics{}
