package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/domain/order/valueobjects"
	paymentvo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
)

func orderWith(os valueobjects.OrderStatus, ps valueobjects.PaymentStatus) *Order {
	return ReconstructOrder(ReconstructOrderParams{
		ID:            1,
		OrderNo:       "ORD-1",
		UserID:        9,
		Amount:        paymentvo.NewMoney(50000, "INR"),
		OrderStatus:   os,
		PaymentStatus: ps,
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	})
}

func TestNewOrder(t *testing.T) {
	o, err := NewOrder("ORD-1", 9, paymentvo.NewMoney(100, "INR"))
	require.NoError(t, err)
	assert.True(t, o.IsEligibleForPayment())
	assert.True(t, o.BelongsTo(9))
	assert.False(t, o.BelongsTo(10))

	_, err = NewOrder("", 9, paymentvo.NewMoney(100, "INR"))
	assert.Error(t, err)
}

func TestConfirm_Idempotent(t *testing.T) {
	o := orderWith(valueobjects.OrderStatusCreated, valueobjects.PaymentStatusPending)

	changed, err := o.Confirm()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, valueobjects.PaymentStatusPaid, o.PaymentStatus())
	assert.Equal(t, valueobjects.OrderStatusConfirmed, o.OrderStatus())

	changed, err = o.Confirm()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestConfirm_AfterFailure(t *testing.T) {
	o := orderWith(valueobjects.OrderStatusCreated, valueobjects.PaymentStatusFailed)

	changed, err := o.Confirm()

	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, o.IsPaid())
}

func TestFail_DoesNotTouchPaidOrder(t *testing.T) {
	o := orderWith(valueobjects.OrderStatusConfirmed, valueobjects.PaymentStatusPaid)

	changed, err := o.Fail()

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, valueobjects.PaymentStatusPaid, o.PaymentStatus())
}

func TestMarkRefunded(t *testing.T) {
	t.Run("partial then full", func(t *testing.T) {
		o := orderWith(valueobjects.OrderStatusConfirmed, valueobjects.PaymentStatusPaid)

		changed, err := o.MarkRefunded(20000, false)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, valueobjects.OrderStatusPartiallyRefunded, o.OrderStatus())
		assert.Equal(t, valueobjects.PaymentStatusPaid, o.PaymentStatus())

		changed, err = o.MarkRefunded(20000, false)
		require.NoError(t, err)
		assert.False(t, changed, "same partial total is a no-op")

		changed, err = o.MarkRefunded(50000, true)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, valueobjects.PaymentStatusRefunded, o.PaymentStatus())
		assert.Equal(t, int64(50000), o.RefundedAmount())
	})

	t.Run("unpaid order rejected", func(t *testing.T) {
		o := orderWith(valueobjects.OrderStatusCreated, valueobjects.PaymentStatusPending)
		_, err := o.MarkRefunded(100, false)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestEligibility(t *testing.T) {
	assert.False(t, orderWith(valueobjects.OrderStatusConfirmed, valueobjects.PaymentStatusPaid).IsEligibleForPayment())
	assert.False(t, orderWith(valueobjects.OrderStatusCreated, valueobjects.PaymentStatusFailed).IsEligibleForPayment())
	assert.False(t, orderWith(valueobjects.OrderStatusCancelled, valueobjects.PaymentStatusPending).IsEligibleForPayment())
}
