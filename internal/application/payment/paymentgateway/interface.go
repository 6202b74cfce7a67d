package paymentgateway

import (
	"context"
	"errors"

	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
)

var (
	// ErrInvalidSignature is returned when a webhook fails verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrGatewayUnavailable wraps transport and provider side failures.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Gateway is the boundary to one external payment provider. Amounts are in
// the currency's minor unit.
type Gateway interface {
	Name() vo.Gateway
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)
	FetchStatus(ctx context.Context, gatewayOrderID string) (*Status, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	// VerifyWebhook checks the signature over the raw body and normalises the event.
	VerifyWebhook(rawBody []byte, signature string) (*WebhookEvent, error)
}

type CreateIntentRequest struct {
	Amount     int64
	Currency   string
	ReceiptRef string
	// IdempotencyKey lets providers that support it collapse concurrent duplicates.
	IdempotencyKey string
	Notes          map[string]string
}

type Intent struct {
	GatewayOrderID string
	// ClientToken is the Stripe client secret or the Razorpay order token
	// handed to the checkout frontend.
	ClientToken string
	// Raw is the provider's response body, kept for audit.
	Raw []byte
}

// RemoteStatus is the gateway's coarse view of a payment.
type RemoteStatus string

const (
	RemoteStatusPending  RemoteStatus = "pending"
	RemoteStatusSuccess  RemoteStatus = "success"
	RemoteStatusFailed   RemoteStatus = "failed"
	RemoteStatusRefunded RemoteStatus = "refunded"
)

type Status struct {
	Status           RemoteStatus
	GatewayPaymentID string
	TransactionID    string
	Amount           int64
	Currency         string
	RefundedAmount   int64
	FullRefund       bool
}

type RefundRequest struct {
	GatewayPaymentID string
	Amount           int64
	Currency         string
	Reason           string
	IdempotencyKey   string
}

type RefundResult struct {
	RefundID string
	Raw      []byte
}

// EventCategory buckets provider specific event types.
type EventCategory string

const (
	EventCategorySuccess EventCategory = "success"
	EventCategoryRefund  EventCategory = "refund"
	EventCategoryFailure EventCategory = "failure"
	EventCategoryIgnored EventCategory = "ignored"
)

// WebhookEvent is a verified, gateway-neutral webhook.
type WebhookEvent struct {
	Gateway          vo.Gateway    `json:"gateway"`
	EventID          string        `json:"event_id"`
	Type             string        `json:"type"`
	Category         EventCategory `json:"category"`
	GatewayOrderID   string        `json:"gateway_order_id"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`
	TransactionID    string        `json:"transaction_id,omitempty"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	RefundedAmount   int64         `json:"refunded_amount,omitempty"`
	FailureReason    string        `json:"failure_reason,omitempty"`
	Raw              []byte        `json:"raw"`
}
