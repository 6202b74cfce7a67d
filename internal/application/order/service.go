// Package order is the order collaborator of the payment engine. It owns the
// order's payment status and only changes it through idempotent operations.
package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/orris-inc/payrecon/internal/domain/order"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

type Service struct {
	repo   order.Repository
	logger logger.Interface
}

func NewService(repo order.Repository, logger logger.Interface) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetOrder(ctx context.Context, orderID uint) (*order.Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// ConfirmOrder marks the order paid. Confirming a paid order is a no-op.
func (s *Service) ConfirmOrder(ctx context.Context, orderID uint) error {
	return s.mutate(ctx, orderID, "confirm", func(o *order.Order) (bool, error) {
		return o.Confirm()
	})
}

// FailOrder records a failed payment unless the order is already settled.
func (s *Service) FailOrder(ctx context.Context, orderID uint) error {
	return s.mutate(ctx, orderID, "fail", func(o *order.Order) (bool, error) {
		return o.Fail()
	})
}

// MarkRefunded reflects refundedTotal on the order.
func (s *Service) MarkRefunded(ctx context.Context, orderID uint, refundedTotal int64, full bool) error {
	return s.mutate(ctx, orderID, "mark_refunded", func(o *order.Order) (bool, error) {
		return o.MarkRefunded(refundedTotal, full)
	})
}

// mutate applies one transition. A version conflict is returned as is: a
// reload inside the caller's transaction would see the same snapshot, so the
// caller's job retries instead.
func (s *Service) mutate(ctx context.Context, orderID uint, op string, apply func(o *order.Order) (bool, error)) error {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}

	changed, err := apply(o)
	if err != nil {
		s.logger.Warnw("order transition rejected", "order_id", orderID, "op", op, "error", err)
		return err
	}
	if !changed {
		s.logger.Debugw("order already in target state", "order_id", orderID, "op", op)
		return nil
	}

	if err := s.repo.SaveStatus(ctx, o); err != nil {
		if errors.Is(err, order.ErrConcurrentModification) {
			s.logger.Warnw("order changed concurrently", "order_id", orderID, "op", op)
		}
		return fmt.Errorf("failed to save order: %w", err)
	}
	s.logger.Infow("order updated",
		"order_id", orderID,
		"op", op,
		"order_status", o.OrderStatus(),
		"payment_status", o.PaymentStatus(),
	)
	return nil
}
