package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
)

// --- helpers ---

func validMoney() vo.Money {
	return vo.NewMoney(50000, "INR")
}

func newCreated(t *testing.T) *Payment {
	t.Helper()
	p, err := NewPayment(7, vo.GatewayRazorpay, validMoney(), "order_rzp_1", "order_rzp_1")
	require.NoError(t, err)
	return p
}

func reconstructWithStatus(status vo.PaymentStatus, refundAmount int64) *Payment {
	now := time.Now().UTC()
	return ReconstructPayment(ReconstructPaymentParams{
		ID:             10,
		SID:            "pay_test",
		OrderID:        7,
		Gateway:        vo.GatewayStripe,
		GatewayOrderID: "pi_123",
		Amount:         validMoney(),
		RefundAmount:   refundAmount,
		Status:         status,
		Version:        3,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func int64Ptr(v int64) *int64 { return &v }

// =============================================================================
// Constructor
// =============================================================================

func TestNewPayment(t *testing.T) {
	p := newCreated(t)

	assert.Equal(t, vo.PaymentStatusCreated, p.Status())
	assert.Contains(t, p.SID(), "pay_")
	require.NotNil(t, p.OpenIntentKey())
	assert.Equal(t, "7:razorpay", *p.OpenIntentKey())
	assert.Equal(t, int64(0), p.RefundAmount())
}

func TestNewPayment_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		orderID uint
		gateway vo.Gateway
		amount  vo.Money
		gwOrder string
	}{
		{"missing order", 0, vo.GatewayStripe, validMoney(), "pi_1"},
		{"unknown gateway", 1, vo.Gateway("paypal"), validMoney(), "pi_1"},
		{"zero amount", 1, vo.GatewayStripe, vo.NewMoney(0, "INR"), "pi_1"},
		{"missing gateway order", 1, vo.GatewayStripe, validMoney(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPayment(tt.orderID, tt.gateway, tt.amount, tt.gwOrder, "")
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// Transitions
// =============================================================================

func TestMarkSuccess(t *testing.T) {
	p := newCreated(t)

	require.NoError(t, p.MarkSuccess("pay_rzp_9", "txn_9"))
	assert.Equal(t, vo.PaymentStatusSuccess, p.Status())
	assert.Nil(t, p.OpenIntentKey())
	require.NotNil(t, p.PaidAt())
	assert.Equal(t, "pay_rzp_9", *p.GatewayPaymentID())

	version := p.Version()
	require.NoError(t, p.MarkSuccess("pay_rzp_9", "txn_9"))
	assert.Equal(t, version, p.Version(), "second success is a no-op")
}

func TestMarkFailed_FromSuccessRejected(t *testing.T) {
	p := reconstructWithStatus(vo.PaymentStatusSuccess, 0)

	err := p.MarkFailed(vo.FailureReasonGatewayFailure)

	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, vo.PaymentStatusSuccess, p.Status())
}

func TestMarkFailed_SetsReason(t *testing.T) {
	p := newCreated(t)

	require.NoError(t, p.MarkFailed(vo.FailureReasonNewInitiation))

	require.NotNil(t, p.FailureReason())
	assert.Equal(t, vo.FailureReasonNewInitiation, *p.FailureReason())
}

func TestRefundedIsTerminal(t *testing.T) {
	p := reconstructWithStatus(vo.PaymentStatusRefunded, 50000)

	assert.ErrorIs(t, p.MarkSuccess("", ""), ErrInvalidTransition)
	assert.ErrorIs(t, p.MarkManualReview("x"), ErrInvalidTransition)
}

// =============================================================================
// Refunds
// =============================================================================

func TestResolveRefundAmount(t *testing.T) {
	tests := []struct {
		name      string
		status    vo.PaymentStatus
		refunded  int64
		requested *int64
		want      int64
		wantErr   error
	}{
		{"full by default", vo.PaymentStatusSuccess, 0, nil, 50000, nil},
		{"partial", vo.PaymentStatusSuccess, 0, int64Ptr(20000), 20000, nil},
		{"remaining after partial", vo.PaymentStatusPartiallyRefunded, 20000, nil, 30000, nil},
		{"over refundable", vo.PaymentStatusSuccess, 20000, int64Ptr(40000), 0, ErrInvalidRefundAmount},
		{"zero", vo.PaymentStatusSuccess, 0, int64Ptr(0), 0, ErrInvalidRefundAmount},
		{"negative", vo.PaymentStatusSuccess, 0, int64Ptr(-5), 0, ErrInvalidRefundAmount},
		{"not captured", vo.PaymentStatusCreated, 0, nil, 0, ErrNotRefundable},
		{"fully refunded", vo.PaymentStatusRefunded, 50000, nil, 0, ErrNotRefundable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := reconstructWithStatus(tt.status, tt.refunded)
			got, err := p.ResolveRefundAmount(tt.requested)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddAndRevertRefund(t *testing.T) {
	p := reconstructWithStatus(vo.PaymentStatusSuccess, 0)

	require.NoError(t, p.AddRefund(30000))
	assert.ErrorIs(t, p.AddRefund(30000), ErrInvalidRefundAmount)
	require.NoError(t, p.RevertRefund(30000))
	assert.Equal(t, int64(0), p.RefundAmount())
	assert.Error(t, p.RevertRefund(1))
}

func TestFinalizeRefund(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		p := reconstructWithStatus(vo.PaymentStatusSuccess, 20000)
		require.NoError(t, p.FinalizeRefund(20000))
		assert.Equal(t, vo.PaymentStatusPartiallyRefunded, p.Status())
		assert.True(t, p.IsRefundSettled(20000))
		assert.False(t, p.IsRefundSettled(30000))
	})

	t.Run("full", func(t *testing.T) {
		p := reconstructWithStatus(vo.PaymentStatusSuccess, 50000)
		require.NoError(t, p.FinalizeRefund(50000))
		assert.Equal(t, vo.PaymentStatusRefunded, p.Status())
		assert.Equal(t, int64(50000), p.RefundAmount())
	})

	t.Run("gateway total beyond captured is capped", func(t *testing.T) {
		p := reconstructWithStatus(vo.PaymentStatusSuccess, 0)
		require.NoError(t, p.FinalizeRefund(90000))
		assert.Equal(t, int64(50000), p.RefundAmount())
		assert.Equal(t, vo.PaymentStatusRefunded, p.Status())
	})

	t.Run("stored amount never decreases", func(t *testing.T) {
		p := reconstructWithStatus(vo.PaymentStatusSuccess, 30000)
		require.NoError(t, p.FinalizeRefund(10000))
		assert.Equal(t, int64(30000), p.RefundAmount())
		assert.Equal(t, int64(10000), p.SettledRefundAmount())
		assert.Equal(t, vo.PaymentStatusPartiallyRefunded, p.Status())
	})

	t.Run("further reservation settles on later confirmation", func(t *testing.T) {
		p := reconstructWithStatus(vo.PaymentStatusSuccess, 20000)
		require.NoError(t, p.FinalizeRefund(20000))
		require.NoError(t, p.AddRefund(30000))

		assert.Equal(t, int64(50000), p.RefundAmount())
		assert.False(t, p.IsRefundSettled(50000))

		require.NoError(t, p.FinalizeRefund(50000))
		assert.Equal(t, vo.PaymentStatusRefunded, p.Status())
		assert.Equal(t, int64(50000), p.SettledRefundAmount())
	})

	t.Run("older confirmation does not lower settled total", func(t *testing.T) {
		p := reconstructWithStatus(vo.PaymentStatusSuccess, 40000)
		require.NoError(t, p.FinalizeRefund(40000))
		require.NoError(t, p.FinalizeRefund(20000))
		assert.Equal(t, int64(40000), p.SettledRefundAmount())
		assert.True(t, p.IsRefundSettled(20000))
	})
}

func TestRecordGatewayResponse(t *testing.T) {
	p := reconstructWithStatus(vo.PaymentStatusCreated, 0)
	raw := []byte(`{"id":"pi_123"}`)

	p.RecordGatewayResponse(raw)
	raw[0] = 'x'

	assert.JSONEq(t, `{"id":"pi_123"}`, string(p.GatewayResponse()))
	assert.Equal(t, p.GatewayResponse(), p.Clone().GatewayResponse())
}

func TestFlagSuspicious_KeepsStatus(t *testing.T) {
	p := reconstructWithStatus(vo.PaymentStatusCreated, 0)

	p.FlagSuspicious("amount mismatch")

	assert.True(t, p.IsSuspicious())
	assert.Equal(t, vo.PaymentStatusCreated, p.Status())
	assert.Equal(t, 3, p.PersistedVersion())
	assert.Equal(t, 4, p.Version())

	p.ClearSuspicious()
	assert.False(t, p.IsSuspicious())
}

func TestAmountMatches(t *testing.T) {
	p := newCreated(t)

	assert.True(t, p.AmountMatches(vo.NewMoney(50000, "INR"), 0))
	assert.False(t, p.AmountMatches(vo.NewMoney(49000, "INR"), 0))
	assert.True(t, p.AmountMatches(vo.NewMoney(49990, "INR"), 10))
}
