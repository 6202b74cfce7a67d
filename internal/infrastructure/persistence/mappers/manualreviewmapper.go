package mappers

import (
	"fmt"

	"github.com/orris-inc/payrecon/internal/domain/review"
	vo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/models"
)

func ManualReviewToModel(r *review.ManualReview) *models.ManualReviewModel {
	var resolution *string
	if r.Resolution() != nil {
		s := r.Resolution().String()
		resolution = &s
	}
	return &models.ManualReviewModel{
		ID:             r.ID(),
		SID:            r.SID(),
		Type:           r.Type().String(),
		OrderID:        r.OrderID(),
		PaymentID:      r.PaymentID(),
		ExpectedAmount: r.ExpectedAmount(),
		ReceivedAmount: r.ReceivedAmount(),
		Currency:       r.Currency(),
		Summary:        r.Summary(),
		Status:         r.Status().String(),
		Resolution:     resolution,
		Note:           r.Note(),
		ResolvedBy:     r.ResolvedBy(),
		ResolvedAt:     r.ResolvedAt(),
		OpenKey:        r.OpenKey(),
		CreatedAt:      r.CreatedAt(),
		UpdatedAt:      r.UpdatedAt(),
	}
}

func ManualReviewToDomain(model *models.ManualReviewModel) (*review.ManualReview, error) {
	status, err := vo.ParseReviewStatus(model.Status)
	if err != nil {
		return nil, err
	}
	reviewType := vo.ReviewType(model.Type)
	if !reviewType.IsValid() {
		return nil, fmt.Errorf("invalid review type: %s", model.Type)
	}
	var resolution *vo.Resolution
	if model.Resolution != nil {
		r := vo.Resolution(*model.Resolution)
		resolution = &r
	}

	return review.ReconstructManualReview(review.ReconstructParams{
		ID:             model.ID,
		SID:            model.SID,
		Type:           reviewType,
		OrderID:        model.OrderID,
		PaymentID:      model.PaymentID,
		ExpectedAmount: model.ExpectedAmount,
		ReceivedAmount: model.ReceivedAmount,
		Currency:       model.Currency,
		Summary:        model.Summary,
		Status:         status,
		Resolution:     resolution,
		Note:           model.Note,
		ResolvedBy:     model.ResolvedBy,
		ResolvedAt:     model.ResolvedAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}), nil
}
