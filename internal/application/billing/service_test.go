package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingapp "github.com/orris-inc/payrecon/internal/application/billing"
	paymentvo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/infrastructure/repository"
	"github.com/orris-inc/payrecon/internal/infrastructure/repository/repotest"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

func newService(t *testing.T) *billingapp.Service {
	t.Helper()
	gdb := repotest.OpenSQLite(t)
	return billingapp.NewService(
		repository.NewInvoiceRepository(gdb),
		repository.NewCreditNoteRepository(gdb),
		logger.NewNopLogger(),
	)
}

func TestService_GenerateInvoiceOncePerOrder(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.GenerateInvoice(ctx, 1, 10, paymentvo.NewMoney(1000, "INR"))
	require.NoError(t, err)
	again, err := svc.GenerateInvoice(ctx, 1, 11, paymentvo.NewMoney(1000, "INR"))
	require.NoError(t, err)

	assert.Equal(t, first.ID(), again.ID())
	assert.Equal(t, uint(10), again.PaymentID())
}

func TestService_GenerateCreditNoteCreditsOnlyTheDelta(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.GenerateInvoice(ctx, 1, 10, paymentvo.NewMoney(1000, "INR"))
	require.NoError(t, err)

	first, err := svc.GenerateCreditNote(ctx, 1, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(300), first.Amount().MinorUnits())

	replay, err := svc.GenerateCreditNote(ctx, 1, 300)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), replay.ID())

	rest, err := svc.GenerateCreditNote(ctx, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(700), rest.Amount().MinorUnits())
	assert.Equal(t, int64(1000), rest.CumulativeRefunded())
}

func TestService_GenerateCreditNoteWithoutInvoice(t *testing.T) {
	svc := newService(t)

	note, err := svc.GenerateCreditNote(context.Background(), 1, 300)

	assert.NoError(t, err)
	assert.Nil(t, note)
}
