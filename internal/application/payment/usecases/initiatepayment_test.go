package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/application/payment/testutil"
	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	ordervo "github.com/orris-inc/payrecon/internal/domain/order/valueobjects"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
)

func initiateCmd(orderID, userID uint) usecases.InitiatePaymentCommand {
	return usecases.InitiatePaymentCommand{
		OrderID:     orderID,
		Gateway:     vo.GatewayStripe,
		RequesterID: userID,
		Role:        authorization.RoleCustomer,
	}
}

func TestInitiatePayment_CreatesPayment(t *testing.T) {
	h := newHarness()
	h.orders.Add(1, testutil.NewTestOrder(1, 7, 50000))

	result, err := h.initiate().Execute(context.Background(), initiateCmd(1, 7))

	require.NoError(t, err)
	assert.False(t, result.Reused)
	assert.Equal(t, vo.PaymentStatusCreated, result.Payment.Status())
	assert.Equal(t, int64(50000), result.Payment.Amount().MinorUnits())
	assert.Equal(t, "stripe_order_1_secret", result.ClientToken)
	assert.Equal(t, int64(1), h.stripe.CreateCalls())
	assert.Equal(t, []string{"1:stripe:1"}, h.stripe.IdempotencyKey)
	require.Len(t, h.payments.All(), 1)
	assert.JSONEq(t, `{"id":"stripe_order_1","amount":50000}`, string(h.payments.All()[0].GatewayResponse()))
}

func TestInitiatePayment_ReusesOpenPayment(t *testing.T) {
	h := newHarness()
	h.orders.Add(1, testutil.NewTestOrder(1, 7, 50000))
	uc := h.initiate()

	first, err := uc.Execute(context.Background(), initiateCmd(1, 7))
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), initiateCmd(1, 7))
	require.NoError(t, err)

	assert.True(t, second.Reused)
	assert.Equal(t, first.Payment.ID(), second.Payment.ID())
	assert.Equal(t, int64(1), h.stripe.CreateCalls())
}

func TestInitiatePayment_ConcurrentCallersShareOnePayment(t *testing.T) {
	h := newHarness()
	h.orders.Add(1, testutil.NewTestOrder(1, 7, 50000))
	h.stripe.CreateDelay = 10 * time.Millisecond
	uc := h.initiate()

	const callers = 8
	ids := make([]uint, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := uc.Execute(context.Background(), initiateCmd(1, 7))
			errs[i] = err
			if err == nil {
				ids[i] = res.Payment.ID()
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	open := 0
	for _, p := range h.payments.All() {
		if p.Status() == vo.PaymentStatusCreated {
			open++
		}
	}
	assert.Equal(t, 1, open)
}

func TestInitiatePayment_NumbersIntentAfterFailedAttempt(t *testing.T) {
	h := newHarness()
	h.orders.Add(1, testutil.NewTestOrder(1, 7, 50000))
	h.payments.Seed(testutil.NewTestPayment(testutil.PaymentFixture{
		OrderID: 1, Status: vo.PaymentStatusFailed, GatewayOrderID: "gw_old",
	}))

	result, err := h.initiate().Execute(context.Background(), initiateCmd(1, 7))

	require.NoError(t, err)
	assert.Equal(t, []string{"1:stripe:2"}, h.stripe.IdempotencyKey)
	assert.NotEqual(t, "gw_old", result.Payment.GatewayOrderID())
}

func TestInitiatePayment_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *harness)
		cmd        usecases.InitiatePaymentCommand
		wantType   apperrors.ErrorType
		wantReason string
	}{
		{
			name:       "order missing",
			setup:      func(h *harness) {},
			cmd:        initiateCmd(99, 7),
			wantType:   apperrors.ErrorTypeNotFound,
			wantReason: usecases.ReasonOrderNotFound,
		},
		{
			name: "order of another customer",
			setup: func(h *harness) {
				h.orders.Add(1, testutil.NewTestOrder(1, 8, 50000))
			},
			cmd:        initiateCmd(1, 7),
			wantType:   apperrors.ErrorTypeNotFound,
			wantReason: usecases.ReasonOrderNotFound,
		},
		{
			name: "order already paid",
			setup: func(h *harness) {
				o := h.orders.Add(1, testutil.NewTestOrder(1, 7, 50000))
				_, _ = o.Confirm()
			},
			cmd:        initiateCmd(1, 7),
			wantType:   apperrors.ErrorTypeConflict,
			wantReason: usecases.ReasonOrderNotEligible,
		},
		{
			name: "unknown gateway",
			setup: func(h *harness) {
				h.orders.Add(1, testutil.NewTestOrder(1, 7, 50000))
			},
			cmd: usecases.InitiatePaymentCommand{
				OrderID: 1, Gateway: "paypal", RequesterID: 7, Role: authorization.RoleCustomer,
			},
			wantType:   apperrors.ErrorTypeValidation,
			wantReason: usecases.ReasonUnsupportedGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)

			_, err := h.initiate().Execute(context.Background(), tt.cmd)

			require.Error(t, err)
			appErr := apperrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Equal(t, tt.wantReason, appErr.Reason)
			assert.Zero(t, h.stripe.CreateCalls())
			assert.Empty(t, h.payments.All())
		})
	}
}

func TestInitiatePayment_StaffMayInitiateForCustomer(t *testing.T) {
	h := newHarness()
	h.orders.Add(1, testutil.NewTestOrder(1, 8, 50000))

	cmd := initiateCmd(1, 1)
	cmd.Role = authorization.RoleAdmin
	_, err := h.initiate().Execute(context.Background(), cmd)

	require.NoError(t, err)
}

func TestInitiatePayment_GatewayFailureLeavesNoPayment(t *testing.T) {
	h := newHarness()
	h.orders.Add(1, testutil.NewTestOrder(1, 7, 50000))
	h.stripe.CreateErr = errors.New("connection reset")

	_, err := h.initiate().Execute(context.Background(), initiateCmd(1, 7))

	require.Error(t, err)
	assert.True(t, apperrors.HasReason(err, usecases.ReasonGatewayError))
	assert.Equal(t, apperrors.ErrorTypeUnavailable, apperrors.GetAppError(err).Type)
	assert.Empty(t, h.payments.All())
}

func TestInitiatePayment_StoreFailure(t *testing.T) {
	h := newHarness()
	h.orders.Add(1, testutil.NewTestOrder(1, 7, 50000))
	h.payments.CreateErr = errors.New("db down")

	_, err := h.initiate().Execute(context.Background(), initiateCmd(1, 7))

	require.Error(t, err)
	assert.True(t, apperrors.HasReason(err, usecases.ReasonStoreError))
	assert.False(t, errors.Is(err, payment.ErrDuplicateOpenPayment))
}

func TestInitiatePayment_OrderStatusUnchangedOnReject(t *testing.T) {
	h := newHarness()
	o := h.orders.Add(1, testutil.NewTestOrder(1, 7, 50000))
	_, _ = o.Fail()

	_, err := h.initiate().Execute(context.Background(), initiateCmd(1, 7))

	require.Error(t, err)
	got, _ := h.orders.GetOrder(context.Background(), 1)
	assert.Equal(t, ordervo.PaymentStatusFailed, got.PaymentStatus())
}
