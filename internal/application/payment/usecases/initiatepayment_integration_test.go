package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderapp "github.com/orris-inc/payrecon/internal/application/order"
	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/application/payment/testutil"
	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/domain/order"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/infrastructure/repository"
	"github.com/orris-inc/payrecon/internal/infrastructure/repository/repotest"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	"github.com/orris-inc/payrecon/internal/shared/db"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

func TestInitiatePayment_ConcurrentRequestsShareOnePayment(t *testing.T) {
	gdb := repotest.OpenSQLite(t)
	ctx := context.Background()

	orderRepo := repository.NewOrderRepository(gdb)
	ord, err := order.NewOrder("ORD-RACE", 42, vo.NewMoney(1000, "INR"))
	require.NoError(t, err)
	require.NoError(t, orderRepo.Create(ctx, ord))

	gw := testutil.NewMockGateway(vo.GatewayStripe)
	gw.CreateDelay = 5 * time.Millisecond
	paymentRepo := repository.NewPaymentRepository(gdb)
	uc := usecases.NewInitiatePaymentUseCase(
		paymentRepo,
		orderapp.NewService(orderRepo, logger.NewNopLogger()),
		paymentgateway.NewRegistry(gw),
		db.NewTransactionManager(gdb),
		logger.NewNopLogger(),
	)

	const callers = 8
	results := make([]*usecases.InitiatePaymentResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = uc.Execute(ctx, usecases.InitiatePaymentCommand{
				OrderID:     ord.ID(),
				Gateway:     vo.GatewayStripe,
				RequesterID: 42,
				Role:        authorization.RoleCustomer,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Payment.ID(), results[i].Payment.ID())
		assert.Equal(t, results[0].ClientToken, results[i].ClientToken)
	}
	assert.Equal(t, int64(1), gw.CreateCalls())

	count, err := paymentRepo.CountByOrderAndGateway(ctx, ord.ID(), vo.GatewayStripe)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// staleSnapshotRepo answers the first open-payment lookup the way a
// transaction that started before the winner committed would.
type staleSnapshotRepo struct {
	*repository.PaymentRepository
	lookups int
}

func (r *staleSnapshotRepo) GetOpenByOrderAndGateway(ctx context.Context, orderID uint, gateway vo.Gateway) (*payment.Payment, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.PaymentRepository.GetOpenByOrderAndGateway(ctx, orderID, gateway)
}

func (r *staleSnapshotRepo) FailOpenPayments(ctx context.Context, orderID uint, gateway vo.Gateway, reason string) (int64, error) {
	return 0, nil
}

func (r *staleSnapshotRepo) CountByOrderAndGateway(ctx context.Context, orderID uint, gateway vo.Gateway) (int64, error) {
	return 0, nil
}

func TestInitiatePayment_SharedIdempotencyKeyReusesWinner(t *testing.T) {
	gdb := repotest.OpenSQLite(t)
	ctx := context.Background()

	orderRepo := repository.NewOrderRepository(gdb)
	ord, err := order.NewOrder("ORD-IDEM", 42, vo.NewMoney(1000, "INR"))
	require.NoError(t, err)
	require.NoError(t, orderRepo.Create(ctx, ord))

	gw := testutil.NewMockGateway(vo.GatewayStripe)
	gw.IdempotentIntents = true
	paymentRepo := repository.NewPaymentRepository(gdb)
	newUseCase := func(repo payment.Repository) *usecases.InitiatePaymentUseCase {
		return usecases.NewInitiatePaymentUseCase(
			repo,
			orderapp.NewService(orderRepo, logger.NewNopLogger()),
			paymentgateway.NewRegistry(gw),
			db.NewTransactionManager(gdb),
			logger.NewNopLogger(),
		)
	}
	cmd := usecases.InitiatePaymentCommand{
		OrderID: ord.ID(), Gateway: vo.GatewayStripe, RequesterID: 42, Role: authorization.RoleCustomer,
	}

	winner, err := newUseCase(paymentRepo).Execute(ctx, cmd)
	require.NoError(t, err)
	assert.NotEmpty(t, winner.Payment.GatewayResponse())

	loser, err := newUseCase(&staleSnapshotRepo{PaymentRepository: paymentRepo}).Execute(ctx, cmd)

	require.NoError(t, err)
	assert.True(t, loser.Reused)
	assert.Equal(t, winner.Payment.ID(), loser.Payment.ID())
	assert.Equal(t, winner.ClientToken, loser.ClientToken)
	assert.Equal(t, int64(2), gw.CreateCalls())
	count, err := paymentRepo.CountByOrderAndGateway(ctx, ord.ID(), vo.GatewayStripe)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
