package valueobjects

// Failure reasons stored on failed payments.
const (
	FailureReasonNewInitiation   = "new_initiation"
	FailureReasonRetrySuperseded = "retry_superseded"
	FailureReasonGatewayFailure  = "gateway_failure"
	FailureReasonManualReview    = "manual_review_rejected"
)
