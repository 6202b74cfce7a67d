package gateways

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	sharedConfig "github.com/orris-inc/payrecon/internal/shared/config"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

const defaultRazorpayBaseURL = "https://api.razorpay.com/v1"

// Razorpay webhook events the engine acts on.
const (
	razorpayEventPaymentCaptured = "payment.captured"
	razorpayEventOrderPaid       = "order.paid"
	razorpayEventPaymentFailed   = "payment.failed"
	razorpayEventRefundProcessed = "refund.processed"
)

// RazorpayGateway calls the Razorpay REST API with HTTP basic auth.
type RazorpayGateway struct {
	httpClient    *http.Client
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	logger        logger.Interface
}

var _ paymentgateway.Gateway = (*RazorpayGateway)(nil)

func NewRazorpayGateway(cfg sharedConfig.RazorpayConfig, httpClient *http.Client, log logger.Interface) *RazorpayGateway {
	if httpClient == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultRazorpayBaseURL
	}
	return &RazorpayGateway{
		httpClient:    httpClient,
		baseURL:       baseURL,
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		logger:        log.With("gateway", vo.GatewayRazorpay.String()),
	}
}

func (g *RazorpayGateway) Name() vo.Gateway { return vo.GatewayRazorpay }

type razorpayOrder struct {
	ID       string            `json:"id,omitempty"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayPayment struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	AmountRefunded int64  `json:"amount_refunded"`
	RefundStatus   string `json:"refund_status"`
	ErrorCode      string `json:"error_code"`
	ErrorReason    string `json:"error_reason"`
	AcquirerData   struct {
		RRN string `json:"rrn"`
	} `json:"acquirer_data"`
}

type razorpayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

type razorpayAPIError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (g *RazorpayGateway) CreateIntent(ctx context.Context, req paymentgateway.CreateIntentRequest) (*paymentgateway.Intent, error) {
	notes := map[string]string{"idempotency_key": req.IdempotencyKey}
	for k, v := range req.Notes {
		notes[k] = v
	}
	body := razorpayOrder{
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
		Receipt:  req.ReceiptRef,
		Notes:    notes,
	}

	var order razorpayOrder
	raw, err := g.do(ctx, http.MethodPost, "/orders", body, &order)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	g.logger.Infow("razorpay order created", "razorpay_order_id", order.ID, "amount", order.Amount)
	return &paymentgateway.Intent{GatewayOrderID: order.ID, ClientToken: order.ID, Raw: raw}, nil
}

// FetchStatus derives the order's status from its payments. A captured
// payment wins over failed attempts.
func (g *RazorpayGateway) FetchStatus(ctx context.Context, gatewayOrderID string) (*paymentgateway.Status, error) {
	var list struct {
		Items []razorpayPayment `json:"items"`
	}
	_, err := g.do(ctx, http.MethodGet, "/orders/"+gatewayOrderID+"/payments", nil, &list)
	if err != nil {
		if isRazorpayNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("razorpay fetch payments: %w", err)
	}
	if len(list.Items) == 0 {
		return &paymentgateway.Status{Status: paymentgateway.RemoteStatusPending}, nil
	}

	var chosen *razorpayPayment
	for i := range list.Items {
		p := &list.Items[i]
		if p.Status == "captured" || p.Status == "refunded" {
			chosen = p
			break
		}
		if chosen == nil {
			chosen = p
		}
	}
	return razorpayPaymentStatus(chosen), nil
}

func razorpayPaymentStatus(p *razorpayPayment) *paymentgateway.Status {
	st := &paymentgateway.Status{
		Status:           paymentgateway.RemoteStatusPending,
		GatewayPaymentID: p.ID,
		TransactionID:    p.AcquirerData.RRN,
		Amount:           p.Amount,
		Currency:         strings.ToUpper(p.Currency),
	}
	switch p.Status {
	case "captured":
		st.Status = paymentgateway.RemoteStatusSuccess
	case "failed":
		st.Status = paymentgateway.RemoteStatusFailed
	case "refunded":
		st.Status = paymentgateway.RemoteStatusRefunded
	}
	if p.AmountRefunded > 0 {
		st.Status = paymentgateway.RemoteStatusRefunded
		st.RefundedAmount = p.AmountRefunded
		st.FullRefund = p.RefundStatus == "full" || p.AmountRefunded >= p.Amount
	}
	return st
}

func (g *RazorpayGateway) Refund(ctx context.Context, req paymentgateway.RefundRequest) (*paymentgateway.RefundResult, error) {
	body := map[string]interface{}{
		"amount": req.Amount,
		"notes": map[string]string{
			"reason":          req.Reason,
			"idempotency_key": req.IdempotencyKey,
		},
	}

	var refund razorpayRefund
	raw, err := g.do(ctx, http.MethodPost, "/payments/"+req.GatewayPaymentID+"/refund", body, &refund)
	if err != nil {
		return nil, fmt.Errorf("razorpay refund: %w", err)
	}

	g.logger.Infow("razorpay refund created", "refund_id", refund.ID, "payment", req.GatewayPaymentID, "amount", req.Amount)
	return &paymentgateway.RefundResult{RefundID: refund.ID, Raw: raw}, nil
}

type razorpayWebhook struct {
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Payment *struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity razorpayRefund `json:"entity"`
		} `json:"refund"`
		Order *struct {
			Entity razorpayOrder `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// VerifyWebhook checks X-Razorpay-Signature, a hex HMAC-SHA256 of the raw
// body keyed with the webhook secret.
func (g *RazorpayGateway) VerifyWebhook(rawBody []byte, signature string) (*paymentgateway.WebhookEvent, error) {
	if signature == "" || !g.validSignature(rawBody, signature) {
		return nil, paymentgateway.ErrInvalidSignature
	}

	var hook razorpayWebhook
	if err := json.Unmarshal(rawBody, &hook); err != nil {
		return nil, fmt.Errorf("malformed razorpay payload: %w", err)
	}
	if hook.Event == "" {
		return nil, fmt.Errorf("razorpay payload without event")
	}

	out := &paymentgateway.WebhookEvent{
		Gateway:  vo.GatewayRazorpay,
		Type:     hook.Event,
		Category: paymentgateway.EventCategoryIgnored,
		Raw:      rawBody,
	}

	var entityID string
	if p := hook.Payload.Payment; p != nil {
		entityID = p.Entity.ID
		out.GatewayOrderID = p.Entity.OrderID
		out.GatewayPaymentID = p.Entity.ID
		out.TransactionID = p.Entity.AcquirerData.RRN
		out.Amount = p.Entity.Amount
		out.Currency = strings.ToUpper(p.Entity.Currency)
		out.RefundedAmount = p.Entity.AmountRefunded
	}

	switch hook.Event {
	case razorpayEventPaymentCaptured, razorpayEventOrderPaid:
		out.Category = paymentgateway.EventCategorySuccess
	case razorpayEventPaymentFailed:
		out.Category = paymentgateway.EventCategoryFailure
		if p := hook.Payload.Payment; p != nil {
			out.FailureReason = p.Entity.ErrorCode
			if p.Entity.ErrorReason != "" {
				out.FailureReason = p.Entity.ErrorReason
			}
		}
	case razorpayEventRefundProcessed:
		out.Category = paymentgateway.EventCategoryRefund
		if r := hook.Payload.Refund; r != nil {
			entityID = r.Entity.ID
			if out.GatewayPaymentID == "" {
				out.GatewayPaymentID = r.Entity.PaymentID
			}
		}
	}

	// Razorpay sends the event id only as a header; the entity makes the
	// delivery unique per event type.
	if entityID == "" {
		sum := sha256.Sum256(rawBody)
		entityID = hex.EncodeToString(sum[:8])
	}
	out.EventID = hook.Event + ":" + entityID
	return out, nil
}

func (g *RazorpayGateway) validSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

type razorpayStatusError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *razorpayStatusError) Error() string {
	return fmt.Sprintf("razorpay returned %d %s: %s", e.StatusCode, e.Code, e.Description)
}

func isRazorpayNotFound(err error) bool {
	var se *razorpayStatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound ||
			(se.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(se.Description), "does not exist"))
	}
	return false
}

// do sends one API call and returns the response body.
func (g *RazorpayGateway) do(ctx context.Context, method, path string, in, out interface{}) ([]byte, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", paymentgateway.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", paymentgateway.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		var apiErr razorpayAPIError
		_ = json.Unmarshal(raw, &apiErr)
		se := &razorpayStatusError{
			StatusCode:  resp.StatusCode,
			Code:        apiErr.Error.Code,
			Description: apiErr.Error.Description,
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %v", paymentgateway.ErrGatewayUnavailable, se)
		}
		return nil, se
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return raw, nil
}
