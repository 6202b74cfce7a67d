package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymenttestutil "github.com/orris-inc/payrecon/internal/application/payment/testutil"
	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/interfaces/dto"
	"github.com/orris-inc/payrecon/internal/interfaces/http/handlers/testutil"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	"github.com/orris-inc/payrecon/internal/shared/errors"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// =====================================================================
// Mock use cases
// =====================================================================

type mockInitiatePaymentUC struct {
	result *usecases.InitiatePaymentResult
	err    error
	got    usecases.InitiatePaymentCommand
}

func (m *mockInitiatePaymentUC) Execute(ctx context.Context, cmd usecases.InitiatePaymentCommand) (*usecases.InitiatePaymentResult, error) {
	m.got = cmd
	return m.result, m.err
}

type mockGetPaymentUC struct {
	result *payment.Payment
	err    error
	got    usecases.GetPaymentQuery
}

func (m *mockGetPaymentUC) Execute(ctx context.Context, query usecases.GetPaymentQuery) (*payment.Payment, error) {
	m.got = query
	return m.result, m.err
}

type mockRequestRetryUC struct {
	result *usecases.RequestPaymentRetryResult
	err    error
}

func (m *mockRequestRetryUC) Execute(ctx context.Context, cmd usecases.RequestPaymentRetryCommand) (*usecases.RequestPaymentRetryResult, error) {
	return m.result, m.err
}

type mockRequestRefundUC struct {
	result *usecases.RequestRefundResult
	err    error
	got    usecases.RequestRefundCommand
}

func (m *mockRequestRefundUC) Execute(ctx context.Context, cmd usecases.RequestRefundCommand) (*usecases.RequestRefundResult, error) {
	m.got = cmd
	return m.result, m.err
}

// =====================================================================
// Test helpers
// =====================================================================

func newTestPaymentHandler(
	initiateUC initiatePaymentUseCase,
	getUC getPaymentUseCase,
	retryUC requestPaymentRetryUseCase,
	refundUC requestRefundUseCase,
) *PaymentHandler {
	return NewPaymentHandler(initiateUC, getUC, retryUC, refundUC, logger.NewNopLogger())
}

func decodePayment(t *testing.T, resp testutil.APIResponse) dto.PaymentResponse {
	t.Helper()
	var out dto.PaymentResponse
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

// =====================================================================
// InitiatePayment
// =====================================================================

func TestPaymentHandler_InitiatePayment_Created(t *testing.T) {
	p := paymenttestutil.NewTestPayment(paymenttestutil.PaymentFixture{ID: 1, OrderID: 7, GatewayOrderID: "pi_1"})
	uc := &mockInitiatePaymentUC{result: &usecases.InitiatePaymentResult{Payment: p, ClientToken: "secret_1"}}
	handler := newTestPaymentHandler(uc, nil, nil, nil)

	c, w := testutil.NewTestContext(http.MethodPost, "/payments", InitiatePaymentRequest{OrderID: 7, Gateway: "stripe"})
	testutil.SetAuthContext(c, 3, authorization.RoleCustomer)

	handler.InitiatePayment(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	assert.True(t, resp.Success)
	body := decodePayment(t, resp)
	assert.Equal(t, "secret_1", body.ClientToken)
	assert.Equal(t, "created", body.Status)
	assert.EqualValues(t, 1000, body.Amount)

	assert.Equal(t, uint(7), uc.got.OrderID)
	assert.Equal(t, vo.GatewayStripe, uc.got.Gateway)
	assert.Equal(t, uint(3), uc.got.RequesterID)
	assert.Equal(t, authorization.RoleCustomer, uc.got.Role)
}

func TestPaymentHandler_InitiatePayment_ReusedReturnsOK(t *testing.T) {
	p := paymenttestutil.NewTestPayment(paymenttestutil.PaymentFixture{ID: 1, OrderID: 7})
	uc := &mockInitiatePaymentUC{result: &usecases.InitiatePaymentResult{Payment: p, Reused: true}}
	handler := newTestPaymentHandler(uc, nil, nil, nil)

	c, w := testutil.NewTestContext(http.MethodPost, "/payments", InitiatePaymentRequest{OrderID: 7, Gateway: "razorpay"})
	testutil.SetAuthContext(c, 3, authorization.RoleCustomer)

	handler.InitiatePayment(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentHandler_InitiatePayment_Unauthenticated(t *testing.T) {
	handler := newTestPaymentHandler(&mockInitiatePaymentUC{}, nil, nil, nil)

	c, w := testutil.NewTestContext(http.MethodPost, "/payments", InitiatePaymentRequest{OrderID: 7, Gateway: "stripe"})
	handler.InitiatePayment(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentHandler_InitiatePayment_UnknownGateway(t *testing.T) {
	uc := &mockInitiatePaymentUC{}
	handler := newTestPaymentHandler(uc, nil, nil, nil)

	c, w := testutil.NewTestContext(http.MethodPost, "/payments", map[string]interface{}{"order_id": 7, "gateway": "paypal"})
	testutil.SetAuthContext(c, 3, authorization.RoleCustomer)

	handler.InitiatePayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, uc.got.OrderID)
}

func TestPaymentHandler_InitiatePayment_ReasonCodeSurfaced(t *testing.T) {
	uc := &mockInitiatePaymentUC{
		err: errors.NewConflictError("order is not eligible for payment").WithReason(usecases.ReasonOrderNotEligible),
	}
	handler := newTestPaymentHandler(uc, nil, nil, nil)

	c, w := testutil.NewTestContext(http.MethodPost, "/payments", InitiatePaymentRequest{OrderID: 7, Gateway: "stripe"})
	testutil.SetAuthContext(c, 3, authorization.RoleCustomer)

	handler.InitiatePayment(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, usecases.ReasonOrderNotEligible, resp.Error.Reason)
}

// =====================================================================
// GetPayment
// =====================================================================

func TestPaymentHandler_GetPayment(t *testing.T) {
	p := paymenttestutil.NewTestPayment(paymenttestutil.PaymentFixture{ID: 1, OrderID: 7})
	uc := &mockGetPaymentUC{result: p}
	handler := newTestPaymentHandler(nil, uc, nil, nil)

	c, w := testutil.NewTestContext(http.MethodGet, "/payments/pay_abc", nil)
	testutil.SetURLParam(c, "id", "pay_abc")
	testutil.SetAuthContext(c, 3, authorization.RoleCustomer)

	handler.GetPayment(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pay_abc", uc.got.PaymentSID)

	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	assert.Empty(t, decodePayment(t, resp).ClientToken)
}

func TestPaymentHandler_GetPayment_BadID(t *testing.T) {
	uc := &mockGetPaymentUC{}
	handler := newTestPaymentHandler(nil, uc, nil, nil)

	c, w := testutil.NewTestContext(http.MethodGet, "/payments/mrv_abc", nil)
	testutil.SetURLParam(c, "id", "mrv_abc")
	testutil.SetAuthContext(c, 3, authorization.RoleCustomer)

	handler.GetPayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, uc.got.PaymentSID)
}

func TestPaymentHandler_GetPayment_NotFound(t *testing.T) {
	uc := &mockGetPaymentUC{err: errors.NewNotFoundError("payment not found")}
	handler := newTestPaymentHandler(nil, uc, nil, nil)

	c, w := testutil.NewTestContext(http.MethodGet, "/payments/pay_abc", nil)
	testutil.SetURLParam(c, "id", "pay_abc")
	testutil.SetAuthContext(c, 3, authorization.RoleCustomer)

	handler.GetPayment(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =====================================================================
// RequestRetry / RequestRefund
// =====================================================================

func TestPaymentHandler_RequestRetry_Accepted(t *testing.T) {
	uc := &mockRequestRetryUC{result: &usecases.RequestPaymentRetryResult{JobID: "retry:7:stripe:2", Enqueued: true}}
	handler := newTestPaymentHandler(nil, nil, uc, nil)

	c, w := testutil.NewTestContext(http.MethodPost, "/payments/retry", RequestRetryRequest{OrderID: 7, Gateway: "stripe"})
	testutil.SetAuthContext(c, 3, authorization.RoleCustomer)

	handler.RequestRetry(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "retry:7:stripe:2")
}

func TestPaymentHandler_RequestRefund(t *testing.T) {
	uc := &mockRequestRefundUC{result: &usecases.RequestRefundResult{
		RefundRequested:     300,
		RemainingRefundable: 700,
		RefundID:            "re_1",
		Currency:            "INR",
	}}
	handler := newTestPaymentHandler(nil, nil, nil, uc)

	amount := int64(300)
	c, w := testutil.NewTestContext(http.MethodPost, "/payments/pay_abc/refunds", RequestRefundRequest{Amount: &amount, Reason: "damaged"})
	testutil.SetURLParam(c, "id", "pay_abc")
	testutil.SetAuthContext(c, 9, authorization.RoleFinance)

	handler.RequestRefund(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, uc.got.Amount)
	assert.EqualValues(t, 300, *uc.got.Amount)
	assert.Equal(t, uint(9), uc.got.ActorID)
	assert.Equal(t, authorization.RoleFinance, uc.got.Role)

	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	var body usecases.RequestRefundResult
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	assert.EqualValues(t, 700, body.RemainingRefundable)
}

func TestPaymentHandler_RequestRefund_FullWhenAmountOmitted(t *testing.T) {
	uc := &mockRequestRefundUC{result: &usecases.RequestRefundResult{RefundRequested: 1000}}
	handler := newTestPaymentHandler(nil, nil, nil, uc)

	c, w := testutil.NewTestContext(http.MethodPost, "/payments/pay_abc/refunds", map[string]string{})
	testutil.SetURLParam(c, "id", "pay_abc")
	testutil.SetAuthContext(c, 9, authorization.RoleAdmin)

	handler.RequestRefund(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, uc.got.Amount)
}

func TestPaymentHandler_RequestRefund_RejectsNonPositiveAmount(t *testing.T) {
	uc := &mockRequestRefundUC{}
	handler := newTestPaymentHandler(nil, nil, nil, uc)

	c, w := testutil.NewTestContext(http.MethodPost, "/payments/pay_abc/refunds", map[string]int{"amount": 0})
	testutil.SetURLParam(c, "id", "pay_abc")
	testutil.SetAuthContext(c, 9, authorization.RoleAdmin)

	handler.RequestRefund(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, uc.got.PaymentSID)
}
