package review

import (
	"errors"
	"fmt"
	"time"

	vo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/biztime"
	"github.com/orris-inc/payrecon/internal/shared/id"
)

var (
	ErrReviewNotFound       = errors.New("manual review not found")
	ErrDuplicatePending     = errors.New("a pending review of this type already exists")
	ErrInvalidTransition    = errors.New("invalid review status transition")
	ErrConcurrentResolution = errors.New("review was resolved concurrently")
)

// ManualReview is a ticket asking a human to reconcile a payment anomaly.
type ManualReview struct {
	id             uint
	sid            string
	reviewType     vo.ReviewType
	orderID        uint
	paymentID      uint
	expectedAmount int64
	receivedAmount int64
	currency       string
	summary        string
	status         vo.ReviewStatus
	resolution     *vo.Resolution
	note           string
	resolvedBy     *uint
	resolvedAt     *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

type NewReviewParams struct {
	Type           vo.ReviewType
	OrderID        uint
	PaymentID      uint
	ExpectedAmount int64
	ReceivedAmount int64
	Currency       string
	Summary        string
}

func NewManualReview(p NewReviewParams) (*ManualReview, error) {
	if !p.Type.IsValid() {
		return nil, fmt.Errorf("invalid review type: %s", p.Type)
	}
	if p.OrderID == 0 {
		return nil, fmt.Errorf("order ID is required")
	}
	sid, err := id.NewManualReviewSID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate review ID: %w", err)
	}
	now := biztime.NowUTC()
	return &ManualReview{
		sid:            sid,
		reviewType:     p.Type,
		orderID:        p.OrderID,
		paymentID:      p.PaymentID,
		expectedAmount: p.ExpectedAmount,
		receivedAmount: p.ReceivedAmount,
		currency:       p.Currency,
		summary:        p.Summary,
		status:         vo.StatusPending,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// Resolve closes the review with the operator's decision.
func (r *ManualReview) Resolve(resolution vo.Resolution, actorID uint, note string) error {
	if !resolution.IsValid() {
		return fmt.Errorf("invalid resolution: %s", resolution)
	}
	target := resolution.TargetStatus()
	if !r.status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.status, target)
	}
	now := biztime.NowUTC()
	r.status = target
	r.resolution = &resolution
	r.note = note
	r.resolvedBy = &actorID
	r.resolvedAt = &now
	r.updatedAt = now
	return nil
}

// OpenKey deduplicates pending reviews per payment (or order) and type.
func (r *ManualReview) OpenKey() *string {
	if r.status != vo.StatusPending {
		return nil
	}
	key := OpenKey(r.orderID, r.paymentID, r.reviewType)
	return &key
}

func OpenKey(orderID, paymentID uint, t vo.ReviewType) string {
	if paymentID == 0 {
		return fmt.Sprintf("order-%d:%s", orderID, t)
	}
	return fmt.Sprintf("payment-%d:%s", paymentID, t)
}

func (r *ManualReview) ID() uint { return r.id }
func (r *ManualReview) SID() string { return r.sid }
func (r *ManualReview) Type() vo.ReviewType { return r.reviewType }
func (r *ManualReview) OrderID() uint { return r.orderID }
func (r *ManualReview) PaymentID() uint { return r.paymentID }
func (r *ManualReview) ExpectedAmount() int64 { return r.expectedAmount }
func (r *ManualReview) ReceivedAmount() int64 { return r.receivedAmount }
func (r *ManualReview) Currency() string { return r.currency }
func (r *ManualReview) Summary() string { return r.summary }
func (r *ManualReview) Status() vo.ReviewStatus { return r.status }
func (r *ManualReview) Resolution() *vo.Resolution { return r.resolution }
func (r *ManualReview) Note() string { return r.note }
func (r *ManualReview) ResolvedBy() *uint { return r.resolvedBy }
func (r *ManualReview) ResolvedAt() *time.Time { return r.resolvedAt }
func (r *ManualReview) CreatedAt() time.Time { return r.createdAt }
func (r *ManualReview) UpdatedAt() time.Time { return r.updatedAt }
func (r *ManualReview) IsPending() bool { return r.status == vo.StatusPending }

func (r *ManualReview) Clone() *ManualReview {
	c := *r
	return &c
}

func (r *ManualReview) SetID(id uint) {
	r.id = id
}

type ReconstructParams struct {
	ID             uint
	SID            string
	Type           vo.ReviewType
	OrderID        uint
	PaymentID      uint
	ExpectedAmount int64
	ReceivedAmount int64
	Currency       string
	Summary        string
	Status         vo.ReviewStatus
	Resolution     *vo.Resolution
	Note           string
	ResolvedBy     *uint
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ReconstructManualReview(p ReconstructParams) *ManualReview {
	return &ManualReview{
		id:             p.ID,
		sid:            p.SID,
		reviewType:     p.Type,
		orderID:        p.OrderID,
		paymentID:      p.PaymentID,
		expectedAmount: p.ExpectedAmount,
		receivedAmount: p.ReceivedAmount,
		currency:       p.Currency,
		summary:        p.Summary,
		status:         p.Status,
		resolution:     p.Resolution,
		note:           p.Note,
		resolvedBy:     p.ResolvedBy,
		resolvedAt:     p.ResolvedAt,
		createdAt:      p.CreatedAt,
		updatedAt:      p.UpdatedAt,
	}
}
