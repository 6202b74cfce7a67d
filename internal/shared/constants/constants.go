package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// HTTP Headers
	HeaderAuthorization     = "Authorization"
	HeaderXRequestID        = "X-Request-ID"
	HeaderStripeSignature   = "Stripe-Signature"
	HeaderRazorpaySignature = "X-Razorpay-Signature"

	// Context keys
	ContextKeyUserID    = "user_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyRequestID = "request_id"

	// Webhook bodies above this size are rejected before signature checks.
	MaxWebhookBodyBytes = 1 << 20

	// Actors recorded on audit entries written by background processes.
	ActorWebhook    = "system:webhook"
	ActorReconciler = "system:reconciler"
	ActorRetry      = "system:retry"
)
