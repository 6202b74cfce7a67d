package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/domain/review"
	reviewvo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

type ResolveManualReviewCommand struct {
	ReviewSID  string
	Resolution string
	Note       string
	ActorID    uint
	Role       authorization.UserRole
}

// ResolveManualReviewUseCase closes a review and re-drives the payment and
// order state machines according to the operator's decision.
type ResolveManualReviewUseCase struct {
	reviews     review.Repository
	paymentRepo payment.Repository
	settler     *Settler
	txMgr       TransactionManager
	enforcer    PermissionEnforcer
	sanitizer   TextSanitizer
	auditor     audit.Recorder
	logger      logger.Interface
}

func NewResolveManualReviewUseCase(
	reviews review.Repository,
	paymentRepo payment.Repository,
	settler *Settler,
	txMgr TransactionManager,
	enforcer PermissionEnforcer,
	sanitizer TextSanitizer,
	auditor audit.Recorder,
	logger logger.Interface,
) *ResolveManualReviewUseCase {
	return &ResolveManualReviewUseCase{
		reviews:     reviews,
		paymentRepo: paymentRepo,
		settler:     settler,
		txMgr:       txMgr,
		enforcer:    enforcer,
		sanitizer:   sanitizer,
		auditor:     auditor,
		logger:      logger,
	}
}

func (uc *ResolveManualReviewUseCase) Execute(ctx context.Context, cmd ResolveManualReviewCommand) (*review.ManualReview, error) {
	allowed, err := uc.enforcer.Enforce(cmd.Role.String(), "manual_review", "resolve")
	if err != nil {
		uc.logger.Errorw("permission check failed", "role", cmd.Role, "error", err)
		return nil, apperrors.NewInternalError("permission check failed")
	}
	if !allowed {
		return nil, apperrors.NewForbiddenError("not allowed to resolve reviews").WithReason(ReasonForbidden)
	}

	resolution := reviewvo.Resolution(cmd.Resolution)
	if !resolution.IsValid() {
		return nil, apperrors.NewValidationError("invalid resolution", cmd.Resolution).WithReason(ReasonInvalidResolution)
	}

	r, err := uc.reviews.GetBySID(ctx, cmd.ReviewSID)
	if err != nil {
		if errors.Is(err, review.ErrReviewNotFound) {
			return nil, apperrors.NewNotFoundError("manual review not found").WithReason(ReasonReviewNotFound)
		}
		uc.logger.Errorw("failed to get review", "review_sid", cmd.ReviewSID, "error", err)
		return nil, storeError("failed to load review")
	}
	if !r.IsPending() {
		return nil, apperrors.NewConflictError("manual review already closed").WithReason(ReasonReviewClosed)
	}
	if r.PaymentID() == 0 && (resolution == reviewvo.ResolutionMarkPaid || resolution == reviewvo.ResolutionMarkFailed) {
		return nil, apperrors.NewValidationError("order level reviews can only be closed", cmd.Resolution).WithReason(ReasonInvalidResolution)
	}

	note := uc.sanitizer.Text(cmd.Note)

	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := r.Resolve(resolution, cmd.ActorID, note); err != nil {
			return err
		}
		if err := uc.reviews.SaveResolution(txCtx, r); err != nil {
			return err
		}
		if r.PaymentID() == 0 {
			return nil
		}
		return uc.applyToPayment(txCtx, r.PaymentID(), resolution, note)
	})
	if err != nil {
		switch {
		case errors.Is(err, review.ErrConcurrentResolution), errors.Is(err, review.ErrInvalidTransition):
			return nil, apperrors.NewConflictError("manual review already closed").WithReason(ReasonReviewClosed)
		case errors.Is(err, payment.ErrInvalidTransition):
			return nil, apperrors.NewConflictError("resolution does not apply to the payment's current status", err.Error()).WithReason(ReasonInvalidResolution)
		case errors.Is(err, payment.ErrConcurrentModification):
			return nil, apperrors.NewConflictError("payment changed concurrently, retry").WithReason(ReasonStoreError)
		}
		uc.logger.Errorw("failed to resolve review", "review_sid", r.SID(), "error", err)
		return nil, storeError("failed to resolve review")
	}

	rec := audit.NewRecord(audit.ActionReviewResolved, fmt.Sprintf("user:%d", cmd.ActorID))
	rec.OrderID = r.OrderID()
	rec.PaymentID = r.PaymentID()
	rec.Amount = r.ReceivedAmount()
	rec.Currency = r.Currency()
	rec.Reason = resolution.String()
	rec.Details = map[string]interface{}{"review_sid": r.SID(), "type": r.Type().String(), "note": note}
	if err := uc.auditor.Record(ctx, rec); err != nil {
		uc.logger.Warnw("failed to record review audit", "review_sid", r.SID(), "error", err)
	}

	uc.logger.Infow("manual review resolved",
		"review_sid", r.SID(),
		"resolution", resolution,
		"actor_id", cmd.ActorID,
	)
	return r, nil
}

func (uc *ResolveManualReviewUseCase) applyToPayment(ctx context.Context, paymentID uint, resolution reviewvo.Resolution, note string) error {
	p, err := uc.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to load payment: %w", err)
	}

	switch resolution {
	case reviewvo.ResolutionMarkPaid:
		p.ClearSuspicious()
		if err := p.MarkSuccess("", ""); err != nil {
			return err
		}
		p.SetMetadata(payment.MetadataReviewNote, note)
		if err := uc.paymentRepo.MarkSuccess(ctx, p); err != nil {
			return err
		}
		return uc.settler.SettleSuccess(ctx, p)
	case reviewvo.ResolutionMarkFailed:
		if err := p.MarkFailed(vo.FailureReasonManualReview); err != nil {
			return err
		}
		p.ClearSuspicious()
		p.SetMetadata(payment.MetadataReviewNote, note)
		if err := uc.paymentRepo.MarkFailed(ctx, p); err != nil {
			return err
		}
		return uc.settler.SettleFailure(ctx, p)
	case reviewvo.ResolutionDismiss:
		if !p.IsSuspicious() {
			return nil
		}
		p.ClearSuspicious()
		return uc.paymentRepo.SaveSuspicion(ctx, p)
	}
	return nil
}
