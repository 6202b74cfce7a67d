package review

import (
	"context"

	vo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
)

type ListFilter struct {
	Status   *vo.ReviewStatus
	Type     *vo.ReviewType
	OrderID  *uint
	Page     int
	PageSize int
}

type Repository interface {
	// Create fails with ErrDuplicatePending when an equivalent pending review exists.
	Create(ctx context.Context, review *ManualReview) error
	GetBySID(ctx context.Context, sid string) (*ManualReview, error)
	GetPending(ctx context.Context, orderID, paymentID uint, t vo.ReviewType) (*ManualReview, error)
	List(ctx context.Context, filter ListFilter) ([]*ManualReview, int64, error)
	// SaveResolution persists a resolution only if the review is still pending.
	SaveResolution(ctx context.Context, review *ManualReview) error
}
