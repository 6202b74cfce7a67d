package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/payrecon/internal/domain/review"
	vo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/models"
	"github.com/orris-inc/payrecon/internal/shared/db"
)

type ManualReviewRepository struct {
	db *gorm.DB
}

var _ review.Repository = (*ManualReviewRepository)(nil)

func NewManualReviewRepository(db *gorm.DB) *ManualReviewRepository {
	return &ManualReviewRepository{db: db}
}

func (r *ManualReviewRepository) Create(ctx context.Context, mr *review.ManualReview) error {
	model := mappers.ManualReviewToModel(mr)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if violatesIndex(err, "open_key") {
			return review.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create manual review: %w", err)
	}

	mr.SetID(model.ID)
	return nil
}

func (r *ManualReviewRepository) GetBySID(ctx context.Context, sid string) (*review.ManualReview, error) {
	return r.first(ctx, "sid = ?", sid)
}

func (r *ManualReviewRepository) GetPending(ctx context.Context, orderID, paymentID uint, t vo.ReviewType) (*review.ManualReview, error) {
	return r.first(ctx, "open_key = ?", review.OpenKey(orderID, paymentID, t))
}

func (r *ManualReviewRepository) first(ctx context.Context, query string, args ...interface{}) (*review.ManualReview, error) {
	var model models.ManualReviewModel

	if err := db.GetTxFromContext(ctx, r.db).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get manual review: %w", err)
	}

	return mappers.ManualReviewToDomain(&model)
}

func (r *ManualReviewRepository) List(ctx context.Context, filter review.ListFilter) ([]*review.ManualReview, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.ManualReviewModel{})

	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.Type != nil {
		query = query.Where("type = ?", filter.Type.String())
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count manual reviews: %w", err)
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var list []models.ManualReviewModel
	if err := query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list manual reviews: %w", err)
	}

	reviews := make([]*review.ManualReview, 0, len(list))
	for i := range list {
		mr, err := mappers.ManualReviewToDomain(&list[i])
		if err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, mr)
	}
	return reviews, total, nil
}

// SaveResolution closes the review if it is still pending and releases its
// open key so a later anomaly can open a fresh review.
func (r *ManualReviewRepository) SaveResolution(ctx context.Context, mr *review.ManualReview) error {
	model := mappers.ManualReviewToModel(mr)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.ManualReviewModel{}).
		Where("id = ? AND status = ?", mr.ID(), vo.StatusPending.String()).
		Updates(map[string]interface{}{
			"status":      model.Status,
			"resolution":  model.Resolution,
			"note":        model.Note,
			"resolved_by": model.ResolvedBy,
			"resolved_at": model.ResolvedAt,
			"open_key":    nil,
			"updated_at":  model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save review resolution: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetBySID(ctx, mr.SID()); err != nil {
			return err
		}
		return review.ErrConcurrentResolution
	}
	return nil
}
