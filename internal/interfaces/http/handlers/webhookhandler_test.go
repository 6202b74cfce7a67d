package handlers

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/interfaces/http/handlers/testutil"
	"github.com/orris-inc/payrecon/internal/shared/constants"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

type mockReceiveWebhookUC struct {
	result *usecases.ReceiveWebhookResult
	calls  int
	got    usecases.ReceiveWebhookCommand
}

func (m *mockReceiveWebhookUC) Execute(ctx context.Context, cmd usecases.ReceiveWebhookCommand) *usecases.ReceiveWebhookResult {
	m.calls++
	m.got = cmd
	return m.result
}

func newWebhookContext(gateway string, body []byte, headers map[string]string) (*WebhookHandler, *mockReceiveWebhookUC, func() (int, string)) {
	uc := &mockReceiveWebhookUC{result: &usecases.ReceiveWebhookResult{StatusCode: http.StatusOK, EventID: "evt_1"}}
	handler := NewWebhookHandler(uc, logger.NewNopLogger())

	c, w := testutil.NewRawTestContext(http.MethodPost, "/webhooks/"+gateway, body, "application/json")
	testutil.SetURLParam(c, "gateway", gateway)
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}

	run := func() (int, string) {
		handler.Receive(c)
		return w.Code, w.Body.String()
	}
	return handler, uc, run
}

func TestWebhookHandler_PassesRawBodyAndGatewaySignature(t *testing.T) {
	tests := []struct {
		gateway vo.Gateway
		header  string
	}{
		{vo.GatewayStripe, constants.HeaderStripeSignature},
		{vo.GatewayRazorpay, constants.HeaderRazorpaySignature},
	}
	for _, tt := range tests {
		t.Run(tt.gateway.String(), func(t *testing.T) {
			body := []byte(`{"id":"evt_1",  "type":"x"}`)
			_, uc, run := newWebhookContext(tt.gateway.String(), body, map[string]string{tt.header: "sig-value"})

			code, _ := run()

			assert.Equal(t, http.StatusOK, code)
			require.Equal(t, 1, uc.calls)
			assert.Equal(t, tt.gateway, uc.got.Gateway)
			assert.Equal(t, "sig-value", uc.got.Signature)
			assert.Equal(t, body, uc.got.RawBody)
		})
	}
}

func TestWebhookHandler_ForwardsUseCaseStatus(t *testing.T) {
	tests := []struct {
		name   string
		result usecases.ReceiveWebhookResult
	}{
		{"invalid signature", usecases.ReceiveWebhookResult{StatusCode: http.StatusBadRequest}},
		{"enqueue failure", usecases.ReceiveWebhookResult{StatusCode: http.StatusInternalServerError, EventID: "evt_1"}},
		{"duplicate", usecases.ReceiveWebhookResult{StatusCode: http.StatusOK, EventID: "evt_1", Duplicate: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, uc, run := newWebhookContext("stripe", []byte(`{}`), nil)
			result := tt.result
			uc.result = &result

			code, body := run()

			assert.Equal(t, tt.result.StatusCode, code)
			if tt.result.Duplicate {
				assert.Contains(t, body, `"duplicate":true`)
			}
		})
	}
}

func TestWebhookHandler_UnknownGateway(t *testing.T) {
	_, uc, run := newWebhookContext("paypal", []byte(`{}`), nil)

	code, _ := run()

	assert.Equal(t, http.StatusNotFound, code)
	assert.Zero(t, uc.calls)
}

func TestWebhookHandler_BodyTooLarge(t *testing.T) {
	body := bytes.Repeat([]byte("a"), constants.MaxWebhookBodyBytes+1)
	_, uc, run := newWebhookContext("razorpay", body, nil)

	code, _ := run()

	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Zero(t, uc.calls)
}
