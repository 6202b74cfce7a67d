package usecases

import (
	"fmt"

	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
)

// Queue names.
const (
	QueueWebhooks = "payment-webhooks"
	QueueRetries  = "payment-retries"
)

// WebhookDedupeKey is the reservation key for a gateway event.
func WebhookDedupeKey(gateway vo.Gateway, eventID string) string {
	return fmt.Sprintf("payment-webhook:%s:%s", gateway, eventID)
}

// WebhookJobID collapses redeliveries of the same event into one job.
func WebhookJobID(gateway vo.Gateway, eventID string) string {
	return fmt.Sprintf("%s:%s", gateway, eventID)
}

// RetryJobID collapses duplicate retry requests for the same attempt.
func RetryJobID(orderID uint, gateway vo.Gateway, attempt int64) string {
	return fmt.Sprintf("retry:%d:%s:%d", orderID, gateway, attempt)
}

// RetryJobPayload is the body of a payment retry job.
type RetryJobPayload struct {
	OrderID uint       `json:"order_id"`
	Gateway vo.Gateway `json:"gateway"`
	Reason  string     `json:"reason"`
}

func intentIdempotencyKey(orderID uint, gateway vo.Gateway, attempt int64) string {
	return fmt.Sprintf("%d:%s:%d", orderID, gateway, attempt)
}
