package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentvo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
)

func TestNewInvoice(t *testing.T) {
	inv, err := NewInvoice(42, 7, paymentvo.NewMoney(50000, "INR"))
	require.NoError(t, err)

	assert.Contains(t, inv.Number(), "INV-")
	assert.Contains(t, inv.Number(), "00000042")
	assert.Equal(t, uint(7), inv.PaymentID())

	_, err = NewInvoice(42, 7, paymentvo.NewMoney(0, "INR"))
	assert.Error(t, err)
}

func TestNewCreditNote_Delta(t *testing.T) {
	inv, err := NewInvoice(42, 7, paymentvo.NewMoney(50000, "INR"))
	require.NoError(t, err)
	inv.SetID(3)

	first, err := NewCreditNote(inv, 20000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), first.Amount().MinorUnits())
	assert.Equal(t, uint(3), first.InvoiceID())

	second, err := NewCreditNote(inv, 50000, 20000)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), second.Amount().MinorUnits())
	assert.Equal(t, int64(50000), second.CumulativeRefunded())

	_, err = NewCreditNote(inv, 20000, 20000)
	assert.Error(t, err)

	_, err = NewCreditNote(inv, 60000, 0)
	assert.Error(t, err)
}
