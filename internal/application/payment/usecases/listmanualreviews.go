package usecases

import (
	"context"

	"github.com/orris-inc/payrecon/internal/domain/review"
	reviewvo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
	"github.com/orris-inc/payrecon/internal/shared/logger"
	"github.com/orris-inc/payrecon/internal/shared/utils"
)

type ListManualReviewsQuery struct {
	Status   string
	Type     string
	OrderID  *uint
	Page     int
	PageSize int
	Role     authorization.UserRole
}

type ListManualReviewsResult struct {
	Reviews  []*review.ManualReview
	Total    int64
	Page     int
	PageSize int
}

type ListManualReviewsUseCase struct {
	reviews  review.Repository
	enforcer PermissionEnforcer
	logger   logger.Interface
}

func NewListManualReviewsUseCase(reviews review.Repository, enforcer PermissionEnforcer, logger logger.Interface) *ListManualReviewsUseCase {
	return &ListManualReviewsUseCase{
		reviews:  reviews,
		enforcer: enforcer,
		logger:   logger,
	}
}

func (uc *ListManualReviewsUseCase) Execute(ctx context.Context, query ListManualReviewsQuery) (*ListManualReviewsResult, error) {
	allowed, err := uc.enforcer.Enforce(query.Role.String(), "manual_review", "read")
	if err != nil {
		uc.logger.Errorw("permission check failed", "role", query.Role, "error", err)
		return nil, apperrors.NewInternalError("permission check failed")
	}
	if !allowed {
		return nil, apperrors.NewForbiddenError("not allowed to view reviews").WithReason(ReasonForbidden)
	}

	pg := utils.ValidatePagination(query.Page, query.PageSize)
	filter := review.ListFilter{OrderID: query.OrderID, Page: pg.Page, PageSize: pg.PageSize}
	if query.Status != "" {
		status, err := reviewvo.ParseReviewStatus(query.Status)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid status filter", query.Status)
		}
		filter.Status = &status
	}
	if query.Type != "" {
		t := reviewvo.ReviewType(query.Type)
		if !t.IsValid() {
			return nil, apperrors.NewValidationError("invalid type filter", query.Type)
		}
		filter.Type = &t
	}

	reviews, total, err := uc.reviews.List(ctx, filter)
	if err != nil {
		uc.logger.Errorw("failed to list reviews", "error", err)
		return nil, storeError("failed to list reviews")
	}
	return &ListManualReviewsResult{Reviews: reviews, Total: total, Page: pg.Page, PageSize: pg.PageSize}, nil
}
