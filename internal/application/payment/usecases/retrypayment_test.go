package usecases_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/application/payment/testutil"
	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
)

func retryCmd() usecases.RetryPaymentCommand {
	return usecases.RetryPaymentCommand{OrderID: 1, Gateway: vo.GatewayStripe, Reason: "user_requested"}
}

func TestRetryPayment_PaidOrderCreatesNothing(t *testing.T) {
	h := newHarness()
	o := h.orders.Add(1, testutil.NewTestOrder(1, 7, 1000))
	_, _ = o.Confirm()

	result, err := h.retrier().Execute(context.Background(), retryCmd())

	require.NoError(t, err)
	assert.Nil(t, result.Payment)
	assert.Equal(t, "order_paid", result.AbortReason)
	assert.Empty(t, h.payments.All())
	assert.Zero(t, h.stripe.CreateCalls())
}

func TestRetryPayment_OpenAttemptAborts(t *testing.T) {
	h := newHarness()
	seedOpenPayment(h, 1000)

	result, err := h.retrier().Execute(context.Background(), retryCmd())

	require.NoError(t, err)
	assert.Equal(t, "attempt_in_flight", result.AbortReason)
	assert.Len(t, h.payments.All(), 1)
	assert.Zero(t, h.stripe.CreateCalls())
}

func TestRetryPayment_CreatesTaggedPayment(t *testing.T) {
	h := newHarness()
	o := h.orders.Add(1, testutil.NewTestOrder(1, 7, 1000))
	_, _ = o.Fail()
	h.payments.Seed(testutil.NewTestPayment(testutil.PaymentFixture{
		OrderID: 1, GatewayOrderID: "pi_old", Status: vo.PaymentStatusFailed,
	}))

	result, err := h.retrier().Execute(context.Background(), retryCmd())

	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	assert.Equal(t, vo.PaymentStatusCreated, result.Payment.Status())
	assert.True(t, result.Payment.IsRetry())
	assert.Equal(t, "user_requested", result.Payment.Metadata()[payment.MetadataRetryReason])
	assert.Equal(t, []string{"1:stripe:2"}, h.stripe.IdempotencyKey)
	assert.Equal(t, []audit.Action{audit.ActionPaymentRetried}, h.auditor.Actions())
}

func TestRetryPayment_HandleJob(t *testing.T) {
	h := newHarness()
	h.orders.Add(1, testutil.NewTestOrder(1, 7, 1000))
	payload, err := json.Marshal(usecases.RetryJobPayload{OrderID: 1, Gateway: vo.GatewayStripe, Reason: "reconciliation_failed"})
	require.NoError(t, err)

	require.NoError(t, h.retrier().HandleJob(context.Background(), payload))
	assert.Len(t, h.payments.All(), 1)

	assert.ErrorIs(t, h.retrier().HandleJob(context.Background(), []byte("nope")), usecases.ErrNonRetryable)
}

func TestRequestPaymentRetry_EnqueuesDeterministicJob(t *testing.T) {
	h := newHarness()
	o := h.orders.Add(1, testutil.NewTestOrder(1, 7, 1000))
	_, _ = o.Fail()
	uc := usecases.NewRequestPaymentRetryUseCase(h.payments, h.orders, h.gateways, h.queue, h.log)
	cmd := usecases.RequestPaymentRetryCommand{OrderID: 1, Gateway: vo.GatewayStripe, RequesterID: 7, Role: authorization.RoleCustomer}

	first, err := uc.Execute(context.Background(), cmd)
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, "retry:1:stripe:1", first.JobID)
	assert.True(t, first.Enqueued)
	assert.False(t, second.Enqueued)
	assert.Len(t, h.queue.Jobs, 1)
	assert.Equal(t, usecases.QueueRetries, h.queue.Jobs[0].Queue)
}

func TestRequestPaymentRetry_Rejections(t *testing.T) {
	h := newHarness()
	o := h.orders.Add(1, testutil.NewTestOrder(1, 7, 1000))
	uc := usecases.NewRequestPaymentRetryUseCase(h.payments, h.orders, h.gateways, h.queue, h.log)

	_, err := uc.Execute(context.Background(), usecases.RequestPaymentRetryCommand{
		OrderID: 1, Gateway: vo.GatewayStripe, RequesterID: 8, Role: authorization.RoleCustomer,
	})
	assert.True(t, apperrors.IsNotFoundError(err))

	_, _ = o.Confirm()
	_, err = uc.Execute(context.Background(), usecases.RequestPaymentRetryCommand{
		OrderID: 1, Gateway: vo.GatewayStripe, RequesterID: 7, Role: authorization.RoleCustomer,
	})
	assert.True(t, apperrors.HasReason(err, usecases.ReasonOrderNotEligible))
	assert.Empty(t, h.queue.Jobs)
}
