package handlers

import (
	"context"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/domain/payment"
	"github.com/orris-inc/payrecon/internal/domain/review"
)

type initiatePaymentUseCase interface {
	Execute(ctx context.Context, cmd usecases.InitiatePaymentCommand) (*usecases.InitiatePaymentResult, error)
}

type getPaymentUseCase interface {
	Execute(ctx context.Context, query usecases.GetPaymentQuery) (*payment.Payment, error)
}

type requestPaymentRetryUseCase interface {
	Execute(ctx context.Context, cmd usecases.RequestPaymentRetryCommand) (*usecases.RequestPaymentRetryResult, error)
}

type requestRefundUseCase interface {
	Execute(ctx context.Context, cmd usecases.RequestRefundCommand) (*usecases.RequestRefundResult, error)
}

type receiveWebhookUseCase interface {
	Execute(ctx context.Context, cmd usecases.ReceiveWebhookCommand) *usecases.ReceiveWebhookResult
}

type listManualReviewsUseCase interface {
	Execute(ctx context.Context, query usecases.ListManualReviewsQuery) (*usecases.ListManualReviewsResult, error)
}

type resolveManualReviewUseCase interface {
	Execute(ctx context.Context, cmd usecases.ResolveManualReviewCommand) (*review.ManualReview, error)
}

type reconcilePaymentsUseCase interface {
	Execute(ctx context.Context, mode usecases.SweepMode) (*usecases.SweepReport, error)
}
