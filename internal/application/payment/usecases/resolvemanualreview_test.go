package usecases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/domain/audit"
	ordervo "github.com/orris-inc/payrecon/internal/domain/order/valueobjects"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/domain/review"
	reviewvo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
)

// mismatchReview drives a mismatching webhook so a real review exists.
func mismatchReview(t *testing.T, h *harness) *review.ManualReview {
	t.Helper()
	seedOpenPayment(h, 1000)
	require.NoError(t, processEvent(t, h.processor(0), successEvent("evt_1", "pi_1", 900)))
	reviews := h.reviews.All()
	require.Len(t, reviews, 1)
	return reviews[0]
}

func resolveCmd(sid, resolution string) usecases.ResolveManualReviewCommand {
	return usecases.ResolveManualReviewCommand{
		ReviewSID:  sid,
		Resolution: resolution,
		Note:       "<script>x</script>checked with bank",
		ActorID:    2,
		Role:       authorization.RoleAdmin,
	}
}

func TestResolveManualReview_MarkPaid(t *testing.T) {
	h := newHarness()
	r := mismatchReview(t, h)

	resolved, err := h.resolver().Execute(context.Background(), resolveCmd(r.SID(), "mark_paid"))

	require.NoError(t, err)
	assert.Equal(t, reviewvo.StatusResolved, resolved.Status())
	assert.Equal(t, "checked with bank", resolved.Note())

	p, _ := h.payments.GetByID(context.Background(), r.PaymentID())
	assert.Equal(t, vo.PaymentStatusSuccess, p.Status())
	assert.False(t, p.IsSuspicious())
	ord, _ := h.orders.GetOrder(context.Background(), r.OrderID())
	assert.Equal(t, ordervo.PaymentStatusPaid, ord.PaymentStatus())
	assert.Contains(t, h.auditor.Actions(), audit.ActionReviewResolved)
}

func TestResolveManualReview_MarkFailed(t *testing.T) {
	h := newHarness()
	r := mismatchReview(t, h)

	_, err := h.resolver().Execute(context.Background(), resolveCmd(r.SID(), "mark_failed"))

	require.NoError(t, err)
	p, _ := h.payments.GetByID(context.Background(), r.PaymentID())
	assert.Equal(t, vo.PaymentStatusFailed, p.Status())
	assert.Equal(t, vo.FailureReasonManualReview, *p.FailureReason())
}

func TestResolveManualReview_DismissClearsSuspicion(t *testing.T) {
	h := newHarness()
	r := mismatchReview(t, h)

	resolved, err := h.resolver().Execute(context.Background(), resolveCmd(r.SID(), "dismiss"))

	require.NoError(t, err)
	assert.Equal(t, reviewvo.StatusRejected, resolved.Status())
	p, _ := h.payments.GetByID(context.Background(), r.PaymentID())
	assert.False(t, p.IsSuspicious())
	assert.Equal(t, vo.PaymentStatusCreated, p.Status())
}

func TestResolveManualReview_Rejections(t *testing.T) {
	h := newHarness()
	r := mismatchReview(t, h)
	uc := h.resolver()

	_, err := uc.Execute(context.Background(), resolveCmd(r.SID(), "refund_everything"))
	assert.True(t, apperrors.HasReason(err, usecases.ReasonInvalidResolution))

	cmd := resolveCmd(r.SID(), "no_action")
	cmd.Role = authorization.RoleCustomer
	_, err = uc.Execute(context.Background(), cmd)
	assert.True(t, apperrors.HasReason(err, usecases.ReasonForbidden))

	_, err = uc.Execute(context.Background(), resolveCmd("mrv_missing", "no_action"))
	assert.True(t, apperrors.HasReason(err, usecases.ReasonReviewNotFound))

	_, err = uc.Execute(context.Background(), resolveCmd(r.SID(), "no_action"))
	require.NoError(t, err)
	_, err = uc.Execute(context.Background(), resolveCmd(r.SID(), "no_action"))
	assert.True(t, apperrors.HasReason(err, usecases.ReasonReviewClosed))
}

func TestListManualReviews_FiltersByStatus(t *testing.T) {
	h := newHarness()
	mismatchReview(t, h)
	uc := usecases.NewListManualReviewsUseCase(h.reviews, h.enforcer, h.log)

	result, err := uc.Execute(context.Background(), usecases.ListManualReviewsQuery{Status: "pending", Role: authorization.RoleFinance})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	result, err = uc.Execute(context.Background(), usecases.ListManualReviewsQuery{Status: "resolved", Role: authorization.RoleFinance})
	require.NoError(t, err)
	assert.Zero(t, result.Total)

	_, err = uc.Execute(context.Background(), usecases.ListManualReviewsQuery{Status: "bogus", Role: authorization.RoleFinance})
	assert.True(t, apperrors.IsValidationError(err))
}
