// Package testutil provides in-memory implementations of the payment
// engine's ports for use case tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/domain/billing"
	"github.com/orris-inc/payrecon/internal/domain/order"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/domain/review"
	reviewvo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
)

// MockPaymentRepository stores copies of payments and enforces the open
// payment uniqueness rule and version checks like the real table.
type MockPaymentRepository struct {
	mu       sync.Mutex
	payments map[uint]*payment.Payment
	nextID   uint

	// Error injection for testing
	CreateErr      error
	GetErr         error
	ApplyRefundErr error
	RevertErr      error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[uint]*payment.Payment)}
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	key := p.OpenIntentKey()
	for _, existing := range m.payments {
		if existing.Gateway() == p.Gateway() && existing.GatewayOrderID() == p.GatewayOrderID() {
			return payment.ErrDuplicateOpenPayment
		}
		if k := existing.OpenIntentKey(); key != nil && k != nil && *k == *key {
			return payment.ErrDuplicateOpenPayment
		}
	}
	m.nextID++
	p.SetID(m.nextID)
	p.MarkPersisted()
	m.payments[p.ID()] = p.Clone()
	return nil
}

// Seed stores p as is, keeping its ID when set.
func (m *MockPaymentRepository) Seed(p *payment.Payment) *payment.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID() == 0 {
		m.nextID++
		p.SetID(m.nextID)
	} else if p.ID() > m.nextID {
		m.nextID = p.ID()
	}
	p.MarkPersisted()
	m.payments[p.ID()] = p.Clone()
	return p
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uint) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.payments[id]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return p.Clone(), nil
}

func (m *MockPaymentRepository) GetBySID(ctx context.Context, sid string) (*payment.Payment, error) {
	return m.find(func(p *payment.Payment) bool { return p.SID() == sid })
}

func (m *MockPaymentRepository) GetByGatewayOrderID(ctx context.Context, gateway vo.Gateway, gatewayOrderID string) (*payment.Payment, error) {
	return m.find(func(p *payment.Payment) bool {
		return p.Gateway() == gateway && p.GatewayOrderID() == gatewayOrderID
	})
}

func (m *MockPaymentRepository) GetOpenByOrderAndGateway(ctx context.Context, orderID uint, gateway vo.Gateway) (*payment.Payment, error) {
	p, err := m.find(func(p *payment.Payment) bool {
		return p.OrderID() == orderID && p.Gateway() == gateway && p.Status() == vo.PaymentStatusCreated
	})
	if err == payment.ErrPaymentNotFound {
		return nil, nil
	}
	return p, err
}

func (m *MockPaymentRepository) find(match func(p *payment.Payment) bool) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, id := range m.sortedIDs() {
		if p := m.payments[id]; match(p) {
			return p.Clone(), nil
		}
	}
	return nil, payment.ErrPaymentNotFound
}

func (m *MockPaymentRepository) sortedIDs() []uint {
	ids := make([]uint, 0, len(m.payments))
	for id := range m.payments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *MockPaymentRepository) ListByOrder(ctx context.Context, orderID uint) ([]*payment.Payment, error) {
	return m.list(func(p *payment.Payment) bool { return p.OrderID() == orderID }, 0), nil
}

func (m *MockPaymentRepository) list(match func(p *payment.Payment) bool, limit int) []*payment.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*payment.Payment
	for _, id := range m.sortedIDs() {
		if p := m.payments[id]; match(p) {
			out = append(out, p.Clone())
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

func (m *MockPaymentRepository) CountByOrderAndGateway(ctx context.Context, orderID uint, gateway vo.Gateway) (int64, error) {
	return int64(len(m.list(func(p *payment.Payment) bool {
		return p.OrderID() == orderID && p.Gateway() == gateway
	}, 0))), nil
}

func (m *MockPaymentRepository) HasCapturedPayment(ctx context.Context, orderID uint) (bool, error) {
	return len(m.list(func(p *payment.Payment) bool {
		return p.OrderID() == orderID && (p.Status().IsCaptured() || p.Status() == vo.PaymentStatusRefunded)
	}, 1)) > 0, nil
}

func (m *MockPaymentRepository) save(p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[p.ID()]
	if !ok {
		return payment.ErrPaymentNotFound
	}
	if stored.Version() != p.PersistedVersion() {
		return payment.ErrConcurrentModification
	}
	p.MarkPersisted()
	m.payments[p.ID()] = p.Clone()
	return nil
}

func (m *MockPaymentRepository) MarkSuccess(ctx context.Context, p *payment.Payment) error {
	return m.save(p)
}

func (m *MockPaymentRepository) MarkFailed(ctx context.Context, p *payment.Payment) error {
	return m.save(p)
}

func (m *MockPaymentRepository) MarkManualReview(ctx context.Context, p *payment.Payment) error {
	return m.save(p)
}

func (m *MockPaymentRepository) SaveSuspicion(ctx context.Context, p *payment.Payment) error {
	return m.save(p)
}

func (m *MockPaymentRepository) FinalizeRefund(ctx context.Context, p *payment.Payment) error {
	return m.save(p)
}

func (m *MockPaymentRepository) RecordGatewayResponse(ctx context.Context, id uint, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return payment.ErrPaymentNotFound
	}
	p.RecordGatewayResponse(raw)
	return nil
}

func (m *MockPaymentRepository) ApplyRefund(ctx context.Context, id uint, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ApplyRefundErr != nil {
		return m.ApplyRefundErr
	}
	p, ok := m.payments[id]
	if !ok {
		return payment.ErrPaymentNotFound
	}
	if !p.Status().IsCaptured() {
		return payment.ErrNotRefundable
	}
	return p.AddRefund(amount)
}

func (m *MockPaymentRepository) RevertRefund(ctx context.Context, id uint, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RevertErr != nil {
		return m.RevertErr
	}
	p, ok := m.payments[id]
	if !ok {
		return payment.ErrPaymentNotFound
	}
	return p.RevertRefund(amount)
}

func (m *MockPaymentRepository) FailOpenPayments(ctx context.Context, orderID uint, gateway vo.Gateway, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.payments {
		if p.OrderID() == orderID && p.Gateway() == gateway && p.Status() == vo.PaymentStatusCreated {
			if err := p.MarkFailed(reason); err != nil {
				return n, err
			}
			p.MarkPersisted()
			n++
		}
	}
	return n, nil
}

func (m *MockPaymentRepository) ListStaleCreated(ctx context.Context, createdBefore time.Time, limit int) ([]*payment.Payment, error) {
	return m.list(func(p *payment.Payment) bool {
		return p.Status() == vo.PaymentStatusCreated && p.CreatedAt().Before(createdBefore)
	}, limit), nil
}

func (m *MockPaymentRepository) ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]*payment.Payment, error) {
	return m.list(func(p *payment.Payment) bool { return !p.UpdatedAt().Before(since) }, limit), nil
}

// All returns copies of every stored payment ordered by ID.
func (m *MockPaymentRepository) All() []*payment.Payment {
	return m.list(func(*payment.Payment) bool { return true }, 0)
}

// MockOrderService keeps orders in memory and counts state changes.
type MockOrderService struct {
	mu     sync.Mutex
	orders map[uint]*order.Order

	ConfirmCalls  int
	Confirmations int
	FailCalls     int
	RefundCalls   int
	ConfirmErr    error
}

func NewMockOrderService() *MockOrderService {
	return &MockOrderService{orders: make(map[uint]*order.Order)}
}

// Add registers o under id.
func (m *MockOrderService) Add(id uint, o *order.Order) *order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.SetID(id)
	m.orders[id] = o
	return o
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID uint) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (m *MockOrderService) ConfirmOrder(ctx context.Context, orderID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmCalls++
	if m.ConfirmErr != nil {
		return m.ConfirmErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	changed, err := o.Confirm()
	if changed {
		m.Confirmations++
	}
	return err
}

func (m *MockOrderService) FailOrder(ctx context.Context, orderID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailCalls++
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	_, err := o.Fail()
	return err
}

func (m *MockOrderService) MarkRefunded(ctx context.Context, orderID uint, refundedTotal int64, full bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefundCalls++
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	_, err := o.MarkRefunded(refundedTotal, full)
	return err
}

// MockInvoiceService issues at most one invoice per order.
type MockInvoiceService struct {
	mu          sync.Mutex
	invoices    map[uint]*billing.Invoice
	credited    map[uint]int64
	CreditNotes int
}

func NewMockInvoiceService() *MockInvoiceService {
	return &MockInvoiceService{
		invoices: make(map[uint]*billing.Invoice),
		credited: make(map[uint]int64),
	}
}

func (m *MockInvoiceService) GenerateInvoice(ctx context.Context, orderID, paymentID uint, amount vo.Money) (*billing.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.invoices[orderID]; ok {
		return inv, nil
	}
	inv, err := billing.NewInvoice(orderID, paymentID, amount)
	if err != nil {
		return nil, err
	}
	inv.SetID(uint(len(m.invoices) + 1))
	m.invoices[orderID] = inv
	return inv, nil
}

func (m *MockInvoiceService) GenerateCreditNote(ctx context.Context, orderID uint, refundedTotal int64) (*billing.CreditNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[orderID]
	if !ok {
		return nil, nil
	}
	if refundedTotal <= m.credited[orderID] {
		return nil, nil
	}
	note, err := billing.NewCreditNote(inv, refundedTotal, m.credited[orderID])
	if err != nil {
		return nil, err
	}
	m.credited[orderID] = refundedTotal
	m.CreditNotes++
	return note, nil
}

// InvoiceCount is the number of invoices issued.
func (m *MockInvoiceService) InvoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoices)
}

// MockGateway is a scriptable payment gateway. Webhooks carrying the
// signature "valid" are accepted and decoded from JSON.
type MockGateway struct {
	GatewayName vo.Gateway

	mu             sync.Mutex
	Statuses       map[string]*paymentgateway.Status
	CreateErr      error
	RefundErr      error
	FetchErr       error
	Refunds        []paymentgateway.RefundRequest
	IdempotencyKey []string
	// CreateDelay widens race windows in concurrency tests.
	CreateDelay time.Duration
	// IdempotentIntents returns the same intent for a repeated idempotency
	// key, the way Stripe does.
	IdempotentIntents bool

	createCalls atomic.Int64
}

func NewMockGateway(name vo.Gateway) *MockGateway {
	return &MockGateway{GatewayName: name, Statuses: make(map[string]*paymentgateway.Status)}
}

func (g *MockGateway) Name() vo.Gateway { return g.GatewayName }

func (g *MockGateway) CreateIntent(ctx context.Context, req paymentgateway.CreateIntentRequest) (*paymentgateway.Intent, error) {
	n := g.createCalls.Add(1)
	if g.CreateDelay > 0 {
		time.Sleep(g.CreateDelay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.IdempotencyKey = append(g.IdempotencyKey, req.IdempotencyKey)
	id := fmt.Sprintf("%s_order_%d", g.GatewayName, n)
	if g.IdempotentIntents {
		id = fmt.Sprintf("%s_order_%s", g.GatewayName, req.IdempotencyKey)
	}
	raw := fmt.Sprintf(`{"id":%q,"amount":%d}`, id, req.Amount)
	return &paymentgateway.Intent{GatewayOrderID: id, ClientToken: id + "_secret", Raw: []byte(raw)}, nil
}

// CreateCalls is the number of intents requested.
func (g *MockGateway) CreateCalls() int64 {
	return g.createCalls.Load()
}

func (g *MockGateway) FetchStatus(ctx context.Context, gatewayOrderID string) (*paymentgateway.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FetchErr != nil {
		return nil, g.FetchErr
	}
	return g.Statuses[gatewayOrderID], nil
}

func (g *MockGateway) SetStatus(gatewayOrderID string, status *paymentgateway.Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Statuses[gatewayOrderID] = status
}

func (g *MockGateway) Refund(ctx context.Context, req paymentgateway.RefundRequest) (*paymentgateway.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Refunds = append(g.Refunds, req)
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	refundID := fmt.Sprintf("rfnd_%d", len(g.Refunds))
	raw := fmt.Sprintf(`{"id":%q,"amount":%d}`, refundID, req.Amount)
	return &paymentgateway.RefundResult{RefundID: refundID, Raw: []byte(raw)}, nil
}

func (g *MockGateway) VerifyWebhook(rawBody []byte, signature string) (*paymentgateway.WebhookEvent, error) {
	if signature != "valid" {
		return nil, paymentgateway.ErrInvalidSignature
	}
	var event paymentgateway.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	event.Gateway = g.GatewayName
	event.Raw = rawBody
	return &event, nil
}

// MockReviewRepository enforces one pending review per open key.
type MockReviewRepository struct {
	mu      sync.Mutex
	reviews []*review.ManualReview

	// CreateErr fails the next Create and is then cleared.
	CreateErr error
}

func NewMockReviewRepository() *MockReviewRepository {
	return &MockReviewRepository{}
}

func (m *MockReviewRepository) Create(ctx context.Context, r *review.ManualReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.CreateErr; err != nil {
		m.CreateErr = nil
		return err
	}
	if key := r.OpenKey(); key != nil {
		for _, existing := range m.reviews {
			if k := existing.OpenKey(); k != nil && *k == *key {
				return review.ErrDuplicatePending
			}
		}
	}
	r.SetID(uint(len(m.reviews) + 1))
	m.reviews = append(m.reviews, r.Clone())
	return nil
}

func (m *MockReviewRepository) GetBySID(ctx context.Context, sid string) (*review.ManualReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.SID() == sid {
			return r.Clone(), nil
		}
	}
	return nil, review.ErrReviewNotFound
}

func (m *MockReviewRepository) GetPending(ctx context.Context, orderID, paymentID uint, t reviewvo.ReviewType) (*review.ManualReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := review.OpenKey(orderID, paymentID, t)
	for _, r := range m.reviews {
		if k := r.OpenKey(); k != nil && *k == key {
			return r.Clone(), nil
		}
	}
	return nil, review.ErrReviewNotFound
}

func (m *MockReviewRepository) List(ctx context.Context, filter review.ListFilter) ([]*review.ManualReview, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*review.ManualReview
	for _, r := range m.reviews {
		if filter.Status != nil && r.Status() != *filter.Status {
			continue
		}
		if filter.Type != nil && r.Type() != *filter.Type {
			continue
		}
		if filter.OrderID != nil && r.OrderID() != *filter.OrderID {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, int64(len(out)), nil
}

func (m *MockReviewRepository) SaveResolution(ctx context.Context, r *review.ManualReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.reviews {
		if existing.ID() == r.ID() {
			if !existing.IsPending() {
				return review.ErrConcurrentResolution
			}
			m.reviews[i] = r.Clone()
			return nil
		}
	}
	return review.ErrReviewNotFound
}

// All returns every stored review.
func (m *MockReviewRepository) All() []*review.ManualReview {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*review.ManualReview, 0, len(m.reviews))
	for _, r := range m.reviews {
		out = append(out, r.Clone())
	}
	return out
}

// MockDedupeStore is an in-memory set-if-absent store.
type MockDedupeStore struct {
	mu       sync.Mutex
	keys     map[string]bool
	Released []string
	Err      error
}

func NewMockDedupeStore() *MockDedupeStore {
	return &MockDedupeStore{keys: make(map[string]bool)}
}

func (m *MockDedupeStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *MockDedupeStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	m.Released = append(m.Released, key)
	return nil
}

func (m *MockDedupeStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key]
}

// MockJobQueue collapses jobs by ID.
type MockJobQueue struct {
	mu   sync.Mutex
	Jobs []usecases.Job
	ids  map[string]bool
	Err  error
}

func NewMockJobQueue() *MockJobQueue {
	return &MockJobQueue{ids: make(map[string]bool)}
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job usecases.Job) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if m.ids[job.ID] {
		return false, nil
	}
	m.ids[job.ID] = true
	m.Jobs = append(m.Jobs, job)
	return true, nil
}

// MockLocker grants each key to one holder at a time.
type MockLocker struct {
	mu   sync.Mutex
	held map[string]bool
	Err  error
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: make(map[string]bool)}
}

type mockLock struct {
	locker *MockLocker
	key    string
}

func (l *mockLock) Release(ctx context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	delete(l.locker.held, l.key)
	return nil
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (usecases.Lock, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	if m.held[key] {
		return nil, false, nil
	}
	m.held[key] = true
	return &mockLock{locker: m, key: key}, true, nil
}

func (m *MockLocker) IsHeld(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[key]
}

// MockAuditRecorder keeps records in memory.
type MockAuditRecorder struct {
	mu      sync.Mutex
	Records []*audit.Record
}

func (m *MockAuditRecorder) Record(ctx context.Context, record *audit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, record)
	return nil
}

// Actions lists recorded actions in order.
func (m *MockAuditRecorder) Actions() []audit.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Action, 0, len(m.Records))
	for _, r := range m.Records {
		out = append(out, r.Action)
	}
	return out
}

// MockTxManager serializes transactions without rolling anything back.
type MockTxManager struct {
	mu    sync.Mutex
	Calls int
}

func (m *MockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return fn(ctx)
}

// MockEnforcer allows the listed roles on every resource.
type MockEnforcer struct {
	Allowed map[string]bool
	Err     error
}

func NewMockEnforcer(roles ...string) *MockEnforcer {
	allowed := make(map[string]bool)
	for _, r := range roles {
		allowed[r] = true
	}
	return &MockEnforcer{Allowed: allowed}
}

func (m *MockEnforcer) Enforce(subject, resource, action string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.Allowed[subject], nil
}

// MockNotifier counts review notifications.
type MockNotifier struct {
	notified atomic.Int64
}

func (m *MockNotifier) NotifyReviewOpened(ctx context.Context, r *review.ManualReview) error {
	m.notified.Add(1)
	return nil
}

func (m *MockNotifier) Count() int64 {
	return m.notified.Load()
}

// MockGatewayResolver resolves a fixed set of gateways.
type MockGatewayResolver map[vo.Gateway]paymentgateway.Gateway

func (m MockGatewayResolver) Get(name vo.Gateway) (paymentgateway.Gateway, error) {
	gw, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("gateway %s not configured", name)
	}
	return gw, nil
}
