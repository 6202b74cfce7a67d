package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/domain/review"
	"github.com/orris-inc/payrecon/internal/shared/goroutine"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// Escalator opens manual reviews, at most one pending per payment and type.
type Escalator struct {
	reviews  review.Repository
	notifier ReviewNotifier
	auditor  audit.Recorder
	metrics  Metrics
	logger   logger.Interface
}

func NewEscalator(
	reviews review.Repository,
	notifier ReviewNotifier,
	auditor audit.Recorder,
	metrics Metrics,
	logger logger.Interface,
) *Escalator {
	if metrics == nil {
		metrics = NopMetrics
	}
	return &Escalator{
		reviews:  reviews,
		notifier: notifier,
		auditor:  auditor,
		metrics:  metrics,
		logger:   logger,
	}
}

// Escalate opens a review or returns the pending one. The boolean is true
// when a new review was created.
func (e *Escalator) Escalate(ctx context.Context, params review.NewReviewParams, actor string) (*review.ManualReview, bool, error) {
	r, err := review.NewManualReview(params)
	if err != nil {
		return nil, false, err
	}

	if err := e.reviews.Create(ctx, r); err != nil {
		if !errors.Is(err, review.ErrDuplicatePending) {
			e.logger.Errorw("failed to create manual review", "order_id", params.OrderID, "payment_id", params.PaymentID, "error", err)
			return nil, false, fmt.Errorf("failed to create manual review: %w", err)
		}
		existing, getErr := e.reviews.GetPending(ctx, params.OrderID, params.PaymentID, params.Type)
		if getErr != nil {
			return nil, false, fmt.Errorf("failed to load pending review: %w", getErr)
		}
		return existing, false, nil
	}

	e.metrics.ReviewOpened(string(params.Type))
	e.logger.Warnw("manual review opened",
		"review_sid", r.SID(),
		"type", params.Type,
		"order_id", params.OrderID,
		"payment_id", params.PaymentID,
		"expected", params.ExpectedAmount,
		"received", params.ReceivedAmount,
	)

	rec := audit.NewRecord(audit.ActionReviewOpened, actor)
	rec.OrderID = params.OrderID
	rec.PaymentID = params.PaymentID
	rec.Amount = params.ReceivedAmount
	rec.Currency = params.Currency
	rec.Reason = string(params.Type)
	rec.Details = map[string]interface{}{"review_sid": r.SID(), "expected": params.ExpectedAmount}
	if err := e.auditor.Record(ctx, rec); err != nil {
		e.logger.Warnw("failed to record review audit", "review_sid", r.SID(), "error", err)
	}

	if e.notifier != nil {
		notifyCtx := context.WithoutCancel(ctx)
		goroutine.SafeGo(e.logger, "review-notify", func() {
			if err := e.notifier.NotifyReviewOpened(notifyCtx, r); err != nil {
				e.logger.Warnw("failed to notify review", "review_sid", r.SID(), "error", err)
			}
		})
	}

	return r, true, nil
}
