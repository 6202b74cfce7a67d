// Package gateways holds the provider adapters behind paymentgateway.Gateway.
package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	sharedConfig "github.com/orris-inc/payrecon/internal/shared/config"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// Stripe event types the engine acts on.
const (
	stripeEventIntentSucceeded = "payment_intent.succeeded"
	stripeEventIntentFailed    = "payment_intent.payment_failed"
	stripeEventIntentCanceled  = "payment_intent.canceled"
	stripeEventChargeRefunded  = "charge.refunded"
)

// StripeGateway talks to Stripe through a per-account client so several
// accounts can be configured side by side.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        logger.Interface
}

var _ paymentgateway.Gateway = (*StripeGateway)(nil)

func NewStripeGateway(cfg sharedConfig.StripeConfig, httpClient *http.Client, log logger.Interface) *StripeGateway {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(2),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
		backendCfg.MaxNetworkRetries = stripe.Int64(0)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &StripeGateway{
		api:           client.New(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}),
		webhookSecret: cfg.WebhookSecret,
		logger:        log.With("gateway", vo.GatewayStripe.String()),
	}
}

func (g *StripeGateway) Name() vo.Gateway { return vo.GatewayStripe }

func (g *StripeGateway) CreateIntent(ctx context.Context, req paymentgateway.CreateIntentRequest) (*paymentgateway.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.ReceiptRef),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("receipt", req.ReceiptRef)
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, stripeError("create payment intent", err)
	}

	g.logger.Infow("stripe payment intent created", "payment_intent", pi.ID, "amount", pi.Amount)
	return &paymentgateway.Intent{GatewayOrderID: pi.ID, ClientToken: pi.ClientSecret, Raw: stripeRaw(pi.LastResponse)}, nil
}

// FetchStatus reads the intent with its latest charge expanded.
func (g *StripeGateway) FetchStatus(ctx context.Context, gatewayOrderID string) (*paymentgateway.Status, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	pi, err := g.api.PaymentIntents.Get(gatewayOrderID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, stripeError("fetch payment intent", err)
	}
	return stripeIntentStatus(pi), nil
}

func stripeIntentStatus(pi *stripe.PaymentIntent) *paymentgateway.Status {
	st := &paymentgateway.Status{
		Status:   paymentgateway.RemoteStatusPending,
		Amount:   pi.Amount,
		Currency: strings.ToUpper(string(pi.Currency)),
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		st.Status = paymentgateway.RemoteStatusSuccess
		if pi.AmountReceived > 0 {
			st.Amount = pi.AmountReceived
		}
	case stripe.PaymentIntentStatusCanceled:
		st.Status = paymentgateway.RemoteStatusFailed
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		// a declined attempt returns the intent to requires_payment_method
		if pi.LastPaymentError != nil {
			st.Status = paymentgateway.RemoteStatusFailed
		}
	}

	if ch := pi.LatestCharge; ch != nil {
		st.GatewayPaymentID = ch.ID
		if ch.BalanceTransaction != nil {
			st.TransactionID = ch.BalanceTransaction.ID
		}
		if ch.AmountRefunded > 0 {
			st.Status = paymentgateway.RemoteStatusRefunded
			st.RefundedAmount = ch.AmountRefunded
			st.FullRefund = ch.Refunded
		}
	}
	return st
}

func (g *StripeGateway) Refund(ctx context.Context, req paymentgateway.RefundRequest) (*paymentgateway.RefundResult, error) {
	params := &stripe.RefundParams{
		Charge: stripe.String(req.GatewayPaymentID),
		Amount: stripe.Int64(req.Amount),
		Reason: stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	r, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, stripeError("create refund", err)
	}

	g.logger.Infow("stripe refund created", "refund_id", r.ID, "charge", req.GatewayPaymentID, "amount", req.Amount)
	return &paymentgateway.RefundResult{RefundID: r.ID, Raw: stripeRaw(r.LastResponse)}, nil
}

func stripeRaw(resp *stripe.APIResponse) []byte {
	if resp == nil {
		return nil
	}
	return resp.RawJSON
}

// VerifyWebhook checks the Stripe-Signature header and maps the event.
func (g *StripeGateway) VerifyWebhook(rawBody []byte, signature string) (*paymentgateway.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(rawBody, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", paymentgateway.ErrInvalidSignature, err)
	}
	if event.ID == "" || event.Data == nil {
		return nil, fmt.Errorf("stripe event without id or data")
	}

	out := &paymentgateway.WebhookEvent{
		Gateway:  vo.GatewayStripe,
		EventID:  event.ID,
		Type:     string(event.Type),
		Category: paymentgateway.EventCategoryIgnored,
		Raw:      rawBody,
	}

	switch event.Type {
	case stripeEventIntentSucceeded, stripeEventIntentFailed, stripeEventIntentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("malformed payment intent: %w", err)
		}
		out.GatewayOrderID = pi.ID
		out.Amount = pi.Amount
		out.Currency = strings.ToUpper(string(pi.Currency))
		if pi.LatestCharge != nil {
			out.GatewayPaymentID = pi.LatestCharge.ID
		}
		if event.Type == stripeEventIntentSucceeded {
			out.Category = paymentgateway.EventCategorySuccess
			if pi.AmountReceived > 0 {
				out.Amount = pi.AmountReceived
			}
		} else {
			out.Category = paymentgateway.EventCategoryFailure
			if pi.LastPaymentError != nil {
				out.FailureReason = string(pi.LastPaymentError.Code)
			}
			if out.FailureReason == "" {
				out.FailureReason = string(pi.Status)
			}
		}
	case stripeEventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("malformed charge: %w", err)
		}
		out.Category = paymentgateway.EventCategoryRefund
		out.GatewayPaymentID = ch.ID
		if ch.PaymentIntent != nil {
			out.GatewayOrderID = ch.PaymentIntent.ID
		}
		out.Amount = ch.Amount
		out.Currency = strings.ToUpper(string(ch.Currency))
		out.RefundedAmount = ch.AmountRefunded
	}
	return out, nil
}

// stripeError keeps card and request errors distinct from outages so the
// caller can tell a decline from an unreachable provider.
func stripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 || stripeErr.Type == stripe.ErrorTypeAPI {
			return fmt.Errorf("%w: stripe %s: %s", paymentgateway.ErrGatewayUnavailable, op, stripeErr.Msg)
		}
		return fmt.Errorf("stripe %s rejected (%s): %s", op, stripeErr.Code, stripeErr.Msg)
	}
	return fmt.Errorf("%w: stripe %s: %v", paymentgateway.ErrGatewayUnavailable, op, err)
}
