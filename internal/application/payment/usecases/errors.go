package usecases

import (
	"errors"

	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
)

// Stable reason codes returned to API clients.
const (
	ReasonOrderNotFound       = "order_not_found"
	ReasonOrderNotEligible    = "order_not_eligible"
	ReasonGatewayError        = "gateway_error"
	ReasonStoreError          = "store_error"
	ReasonUnsupportedGateway  = "unsupported_gateway"
	ReasonInvalidSignature    = "invalid_signature"
	ReasonEnqueueFailed       = "enqueue_failed"
	ReasonPaymentNotFound     = "payment_not_found"
	ReasonNotRefundable       = "not_refundable"
	ReasonInvalidRefundAmount = "invalid_refund_amount"
	ReasonReviewNotFound      = "review_not_found"
	ReasonReviewClosed        = "review_closed"
	ReasonInvalidResolution   = "invalid_resolution"
	ReasonForbidden           = "forbidden"
)

// ErrNonRetryable marks job failures that retrying cannot fix.
var ErrNonRetryable = errors.New("non-retryable job failure")

func storeError(message string) error {
	return apperrors.NewInternalError(message).WithReason(ReasonStoreError)
}

func gatewayError(message string, err error) error {
	return apperrors.NewUnavailableError(message, err.Error()).WithReason(ReasonGatewayError)
}
