package email

import (
	"context"
	"strconv"
	"time"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/domain/review"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// AlertGate decides whether an alert may be sent now.
type AlertGate interface {
	TryAcquireAlertLock(ctx context.Context, alertType, subject string, ttl time.Duration) (bool, error)
	ClearAlert(ctx context.Context, alertType, subject string) error
}

// ThrottledNotifier forwards at most one review alert per review type and
// order within the cooldown.
type ThrottledNotifier struct {
	next     usecases.ReviewNotifier
	gate     AlertGate
	cooldown time.Duration
	logger   logger.Interface
}

func NewThrottledNotifier(next usecases.ReviewNotifier, gate AlertGate, cooldown time.Duration, log logger.Interface) *ThrottledNotifier {
	return &ThrottledNotifier{next: next, gate: gate, cooldown: cooldown, logger: log}
}

func (n *ThrottledNotifier) NotifyReviewOpened(ctx context.Context, r *review.ManualReview) error {
	alertType := r.Type().String()
	subject := strconv.FormatUint(uint64(r.OrderID()), 10)

	ok, err := n.gate.TryAcquireAlertLock(ctx, alertType, subject, n.cooldown)
	if err != nil {
		// an extra email beats a missed one
		n.logger.Warnw("alert gate unavailable, sending anyway", "error", err)
		ok = true
	}
	if !ok {
		n.logger.Infow("review alert suppressed", "review_id", r.SID(), "type", alertType, "order_id", r.OrderID())
		return nil
	}

	if err := n.next.NotifyReviewOpened(ctx, r); err != nil {
		if clearErr := n.gate.ClearAlert(context.WithoutCancel(ctx), alertType, subject); clearErr != nil {
			n.logger.Warnw("failed to clear alert cooldown", "error", clearErr)
		}
		return err
	}
	return nil
}
