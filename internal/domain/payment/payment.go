package payment

import (
	"fmt"
	"time"

	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/biztime"
	"github.com/orris-inc/payrecon/internal/shared/id"
)

// Metadata keys written by the engine.
const (
	MetadataRetry        = "retry"
	MetadataRetryReason  = "retry_reason"
	MetadataReviewNote   = "review_note"
	MetadataSuspicion    = "suspicion"
	MetadataReceivedAmt  = "received_amount"
	MetadataIdempotency  = "idempotency_key"
	MetadataRefundReason = "last_refund_reason"
)

// Payment is one attempt to collect money for an order through a gateway.
type Payment struct {
	id               uint
	sid              string
	orderID          uint
	gateway          vo.Gateway
	gatewayOrderID   string
	gatewayPaymentID *string
	transactionID    *string
	clientToken      string
	amount           vo.Money
	refundAmount     int64
	refundSettled    int64
	status           vo.PaymentStatus
	failureReason    *string
	metadata         map[string]interface{}
	gatewayResponse  []byte
	rawWebhook       []byte
	suspicious       bool

	paidAt     *time.Time
	refundedAt *time.Time

	version          int
	persistedVersion int
	createdAt        time.Time
	updatedAt        time.Time
}

func NewPayment(orderID uint, gateway vo.Gateway, amount vo.Money, gatewayOrderID, clientToken string) (*Payment, error) {
	if orderID == 0 {
		return nil, fmt.Errorf("order ID is required")
	}
	if !gateway.IsValid() {
		return nil, fmt.Errorf("invalid gateway: %s", gateway)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	if gatewayOrderID == "" {
		return nil, fmt.Errorf("gateway order ID is required")
	}

	sid, err := id.NewPaymentSID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payment ID: %w", err)
	}

	now := biztime.NowUTC()
	return &Payment{
		sid:            sid,
		orderID:        orderID,
		gateway:        gateway,
		gatewayOrderID: gatewayOrderID,
		clientToken:    clientToken,
		amount:         amount,
		status:         vo.PaymentStatusCreated,
		metadata:       make(map[string]interface{}),
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

func (p *Payment) transitionTo(next vo.PaymentStatus) error {
	if !p.status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.status, next)
	}
	p.status = next
	p.updatedAt = biztime.NowUTC()
	p.version++
	return nil
}

// MarkSuccess records gateway capture. Calling it on a successful payment is a no-op.
func (p *Payment) MarkSuccess(gatewayPaymentID, transactionID string) error {
	if p.status == vo.PaymentStatusSuccess {
		return nil
	}
	if err := p.transitionTo(vo.PaymentStatusSuccess); err != nil {
		return err
	}
	if gatewayPaymentID != "" {
		p.gatewayPaymentID = &gatewayPaymentID
	}
	if transactionID != "" {
		p.transactionID = &transactionID
	}
	now := p.updatedAt
	p.paidAt = &now
	p.failureReason = nil
	return nil
}

// MarkFailed fails the payment. Failing a failed payment is a no-op.
func (p *Payment) MarkFailed(reason string) error {
	if p.status == vo.PaymentStatusFailed {
		return nil
	}
	if err := p.transitionTo(vo.PaymentStatusFailed); err != nil {
		return err
	}
	p.failureReason = &reason
	return nil
}

// MarkManualReview parks the payment until an operator resolves it.
func (p *Payment) MarkManualReview(note string) error {
	if p.status == vo.PaymentStatusManualReview {
		return nil
	}
	if err := p.transitionTo(vo.PaymentStatusManualReview); err != nil {
		return err
	}
	p.setMetadata(MetadataReviewNote, note)
	return nil
}

// FlagSuspicious marks the payment for anomaly follow-up without changing its status.
func (p *Payment) FlagSuspicious(note string) {
	p.suspicious = true
	p.setMetadata(MetadataSuspicion, note)
	p.updatedAt = biztime.NowUTC()
	p.version++
}

func (p *Payment) ClearSuspicious() {
	if !p.suspicious {
		return
	}
	p.suspicious = false
	delete(p.metadata, MetadataSuspicion)
	p.updatedAt = biztime.NowUTC()
	p.version++
}

// RefundableAmount is the captured amount not yet refunded.
func (p *Payment) RefundableAmount() int64 {
	return p.amount.MinorUnits() - p.refundAmount
}

// ResolveRefundAmount validates a refund request against the payment. A nil
// request means the whole refundable amount.
func (p *Payment) ResolveRefundAmount(requested *int64) (int64, error) {
	if !p.status.IsCaptured() {
		return 0, fmt.Errorf("%w: status %s", ErrNotRefundable, p.status)
	}
	refundable := p.RefundableAmount()
	if refundable <= 0 {
		return 0, fmt.Errorf("%w: nothing left to refund", ErrNotRefundable)
	}
	amount := refundable
	if requested != nil {
		amount = *requested
	}
	if amount <= 0 || amount > refundable {
		return 0, fmt.Errorf("%w: requested %d, refundable %d", ErrInvalidRefundAmount, amount, refundable)
	}
	return amount, nil
}

// AddRefund reserves amount against the refundable balance.
func (p *Payment) AddRefund(amount int64) error {
	if amount <= 0 || p.refundAmount+amount > p.amount.MinorUnits() {
		return fmt.Errorf("%w: requested %d, refundable %d", ErrInvalidRefundAmount, amount, p.RefundableAmount())
	}
	p.refundAmount += amount
	p.updatedAt = biztime.NowUTC()
	return nil
}

// RevertRefund releases a reservation made by AddRefund.
func (p *Payment) RevertRefund(amount int64) error {
	if amount <= 0 || amount > p.refundAmount {
		return fmt.Errorf("%w: cannot revert %d of %d", ErrInvalidRefundAmount, amount, p.refundAmount)
	}
	p.refundAmount -= amount
	p.updatedAt = biztime.NowUTC()
	return nil
}

// FinalizeRefund applies the gateway's confirmed refund total. The status
// follows the confirmed total, not the reserved refund amount. Neither total
// decreases and both stay within the captured amount.
func (p *Payment) FinalizeRefund(refundedTotal int64) error {
	settled := p.refundSettled
	if refundedTotal > settled {
		settled = refundedTotal
	}
	if settled > p.amount.MinorUnits() {
		settled = p.amount.MinorUnits()
	}
	if settled <= 0 {
		return fmt.Errorf("%w: refunded total must be positive", ErrInvalidRefundAmount)
	}

	next := vo.PaymentStatusPartiallyRefunded
	if settled >= p.amount.MinorUnits() {
		next = vo.PaymentStatusRefunded
	}
	if err := p.transitionTo(next); err != nil {
		return err
	}
	p.refundSettled = settled
	if settled > p.refundAmount {
		p.refundAmount = settled
	}
	now := p.updatedAt
	p.refundedAt = &now
	return nil
}

// IsRefundSettled reports whether the gateway total refundedTotal has
// already been confirmed on the payment.
func (p *Payment) IsRefundSettled(refundedTotal int64) bool {
	switch p.status {
	case vo.PaymentStatusRefunded:
		return true
	case vo.PaymentStatusPartiallyRefunded:
		return p.refundSettled >= refundedTotal
	default:
		return false
	}
}

// AmountMatches compares a gateway reported amount with the recorded one.
func (p *Payment) AmountMatches(received vo.Money, epsilon int64) bool {
	return p.amount.WithinTolerance(received, epsilon)
}

func (p *Payment) RecordWebhook(raw []byte) {
	p.rawWebhook = raw
}

// RecordGatewayResponse keeps the provider's last response to an intent or
// refund call.
func (p *Payment) RecordGatewayResponse(raw []byte) {
	p.gatewayResponse = append([]byte(nil), raw...)
}

func (p *Payment) MarkAsRetry(reason string) {
	p.setMetadata(MetadataRetry, true)
	p.setMetadata(MetadataRetryReason, reason)
}

// SetMetadata sets a metadata key-value pair
func (p *Payment) SetMetadata(key string, value interface{}) {
	p.setMetadata(key, value)
	p.updatedAt = biztime.NowUTC()
}

func (p *Payment) setMetadata(key string, value interface{}) {
	if p.metadata == nil {
		p.metadata = make(map[string]interface{})
	}
	p.metadata[key] = value
}

// OpenIntentKey is the uniqueness key of a created payment and nil otherwise.
func (p *Payment) OpenIntentKey() *string {
	if !p.status.IsOpen() {
		return nil
	}
	key := OpenIntentKey(p.orderID, p.gateway)
	return &key
}

func OpenIntentKey(orderID uint, gateway vo.Gateway) string {
	return fmt.Sprintf("%d:%s", orderID, gateway)
}

// Clone returns a copy that shares no mutable state with p.
func (p *Payment) Clone() *Payment {
	c := *p
	c.metadata = make(map[string]interface{}, len(p.metadata))
	for k, v := range p.metadata {
		c.metadata[k] = v
	}
	if p.rawWebhook != nil {
		c.rawWebhook = append([]byte(nil), p.rawWebhook...)
	}
	if p.gatewayResponse != nil {
		c.gatewayResponse = append([]byte(nil), p.gatewayResponse...)
	}
	return &c
}

func (p *Payment) ID() uint {
	return p.id
}

func (p *Payment) SID() string {
	return p.sid
}

func (p *Payment) OrderID() uint {
	return p.orderID
}

func (p *Payment) Gateway() vo.Gateway {
	return p.gateway
}

func (p *Payment) GatewayOrderID() string {
	return p.gatewayOrderID
}

func (p *Payment) GatewayPaymentID() *string {
	return p.gatewayPaymentID
}

func (p *Payment) TransactionID() *string {
	return p.transactionID
}

func (p *Payment) ClientToken() string {
	return p.clientToken
}

func (p *Payment) Amount() vo.Money {
	return p.amount
}

// RefundAmount includes refunds reserved but not yet confirmed by the gateway.
func (p *Payment) RefundAmount() int64 {
	return p.refundAmount
}

// SettledRefundAmount is the refund total the gateway has confirmed.
func (p *Payment) SettledRefundAmount() int64 {
	return p.refundSettled
}

func (p *Payment) Status() vo.PaymentStatus {
	return p.status
}

func (p *Payment) FailureReason() *string {
	return p.failureReason
}

func (p *Payment) Metadata() map[string]interface{} {
	return p.metadata
}

func (p *Payment) RawWebhook() []byte {
	return p.rawWebhook
}

func (p *Payment) GatewayResponse() []byte {
	return p.gatewayResponse
}

func (p *Payment) IsSuspicious() bool {
	return p.suspicious
}

func (p *Payment) IsRetry() bool {
	v, ok := p.metadata[MetadataRetry].(bool)
	return ok && v
}

func (p *Payment) PaidAt() *time.Time {
	return p.paidAt
}

func (p *Payment) RefundedAt() *time.Time {
	return p.refundedAt
}

func (p *Payment) Version() int {
	return p.version
}

// PersistedVersion is the version last read from or written to storage.
// Repositories use it as the compare-and-set guard.
func (p *Payment) PersistedVersion() int {
	return p.persistedVersion
}

// MarkPersisted records a successful write of the current state.
func (p *Payment) MarkPersisted() {
	p.persistedVersion = p.version
}

func (p *Payment) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Payment) UpdatedAt() time.Time {
	return p.updatedAt
}

// SetID sets the payment ID after persistence (used by repository after Create)
func (p *Payment) SetID(id uint) {
	p.id = id
}

// ReconstructPaymentParams carries persisted state into ReconstructPayment.
type ReconstructPaymentParams struct {
	ID                  uint
	SID                 string
	OrderID             uint
	Gateway             vo.Gateway
	GatewayOrderID      string
	GatewayPaymentID    *string
	TransactionID       *string
	ClientToken         string
	Amount              vo.Money
	RefundAmount        int64
	SettledRefundAmount int64
	Status              vo.PaymentStatus
	FailureReason       *string
	Metadata            map[string]interface{}
	GatewayResponse     []byte
	RawWebhook          []byte
	Suspicious          bool
	PaidAt              *time.Time
	RefundedAt          *time.Time
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func ReconstructPayment(params ReconstructPaymentParams) *Payment {
	metadata := params.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	return &Payment{
		id:               params.ID,
		sid:              params.SID,
		orderID:          params.OrderID,
		gateway:          params.Gateway,
		gatewayOrderID:   params.GatewayOrderID,
		gatewayPaymentID: params.GatewayPaymentID,
		transactionID:    params.TransactionID,
		clientToken:      params.ClientToken,
		amount:           params.Amount,
		refundAmount:     params.RefundAmount,
		refundSettled:    params.SettledRefundAmount,
		status:           params.Status,
		failureReason:    params.FailureReason,
		metadata:         metadata,
		gatewayResponse:  params.GatewayResponse,
		rawWebhook:       params.RawWebhook,
		suspicious:       params.Suspicious,
		paidAt:           params.PaidAt,
		refundedAt:       params.RefundedAt,
		version:          params.Version,
		persistedVersion: params.Version,
		createdAt:        params.CreatedAt,
		updatedAt:        params.UpdatedAt,
	}
}
