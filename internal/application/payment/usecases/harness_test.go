package usecases_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/application/payment/testutil"
	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/logger"
	"github.com/orris-inc/payrecon/internal/shared/services/sanitize"
)

type harness struct {
	payments *testutil.MockPaymentRepository
	orders   *testutil.MockOrderService
	invoices *testutil.MockInvoiceService
	reviews  *testutil.MockReviewRepository
	dedupe   *testutil.MockDedupeStore
	queue    *testutil.MockJobQueue
	locker   *testutil.MockLocker
	auditor  *testutil.MockAuditRecorder
	tx       *testutil.MockTxManager
	notifier *testutil.MockNotifier
	enforcer *testutil.MockEnforcer
	stripe   *testutil.MockGateway
	razorpay *testutil.MockGateway
	gateways testutil.MockGatewayResolver
	log      logger.Interface

	settler   *usecases.Settler
	escalator *usecases.Escalator
}

func newHarness() *harness {
	h := &harness{
		payments: testutil.NewMockPaymentRepository(),
		orders:   testutil.NewMockOrderService(),
		invoices: testutil.NewMockInvoiceService(),
		reviews:  testutil.NewMockReviewRepository(),
		dedupe:   testutil.NewMockDedupeStore(),
		queue:    testutil.NewMockJobQueue(),
		locker:   testutil.NewMockLocker(),
		auditor:  &testutil.MockAuditRecorder{},
		tx:       &testutil.MockTxManager{},
		notifier: &testutil.MockNotifier{},
		enforcer: testutil.NewMockEnforcer("admin", "finance"),
		stripe:   testutil.NewMockGateway(vo.GatewayStripe),
		razorpay: testutil.NewMockGateway(vo.GatewayRazorpay),
		log:      logger.NewNopLogger(),
	}
	h.gateways = testutil.MockGatewayResolver{
		vo.GatewayStripe:   h.stripe,
		vo.GatewayRazorpay: h.razorpay,
	}
	h.settler = usecases.NewSettler(h.orders, h.invoices, h.log)
	h.escalator = usecases.NewEscalator(h.reviews, h.notifier, h.auditor, nil, h.log)
	return h
}

func (h *harness) initiate() *usecases.InitiatePaymentUseCase {
	return usecases.NewInitiatePaymentUseCase(h.payments, h.orders, h.gateways, h.tx, h.log)
}

func (h *harness) receiver() *usecases.ReceiveWebhookUseCase {
	return usecases.NewReceiveWebhookUseCase(h.gateways, h.dedupe, h.queue, 24*time.Hour, nil, h.log)
}

func (h *harness) processor(epsilon int64) *usecases.ProcessWebhookUseCase {
	return usecases.NewProcessWebhookUseCase(h.payments, h.orders, h.settler, h.escalator, h.tx, h.auditor, epsilon, nil, h.log)
}

func (h *harness) retrier() *usecases.RetryPaymentUseCase {
	return usecases.NewRetryPaymentUseCase(h.payments, h.orders, h.gateways, h.tx, h.auditor, h.log)
}

func (h *harness) reconciler(cfg usecases.ReconcileConfig) *usecases.ReconcilePaymentsUseCase {
	return usecases.NewReconcilePaymentsUseCase(h.payments, h.orders, h.gateways, h.settler, h.escalator, h.tx, h.locker, h.queue, h.auditor, nil, cfg, h.log)
}

func (h *harness) refunder() *usecases.RequestRefundUseCase {
	return usecases.NewRequestRefundUseCase(h.payments, h.gateways, h.enforcer, sanitize.NewSanitizer(), h.auditor, nil, h.log)
}

func (h *harness) resolver() *usecases.ResolveManualReviewUseCase {
	return usecases.NewResolveManualReviewUseCase(h.reviews, h.payments, h.settler, h.tx, h.enforcer, sanitize.NewSanitizer(), h.auditor, h.log)
}

func webhookBody(t *testing.T, event paymentgateway.WebhookEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}
