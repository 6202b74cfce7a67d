package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// Settler propagates a payment outcome to the order and billing
// collaborators. Every call is safe to repeat.
type Settler struct {
	orders   OrderService
	invoices InvoiceService
	logger   logger.Interface
}

func NewSettler(orders OrderService, invoices InvoiceService, logger logger.Interface) *Settler {
	return &Settler{
		orders:   orders,
		invoices: invoices,
		logger:   logger,
	}
}

// SettleSuccess confirms the order and issues its invoice.
func (s *Settler) SettleSuccess(ctx context.Context, p *payment.Payment) error {
	if err := s.orders.ConfirmOrder(ctx, p.OrderID()); err != nil {
		s.logger.Errorw("failed to confirm order", "order_id", p.OrderID(), "payment_id", p.ID(), "error", err)
		return fmt.Errorf("failed to confirm order: %w", err)
	}
	if _, err := s.invoices.GenerateInvoice(ctx, p.OrderID(), p.ID(), p.Amount()); err != nil {
		s.logger.Errorw("failed to generate invoice", "order_id", p.OrderID(), "payment_id", p.ID(), "error", err)
		return fmt.Errorf("failed to generate invoice: %w", err)
	}
	return nil
}

// SettleRefund marks the order refunded and issues a credit note for the
// newly confirmed part of the refund.
func (s *Settler) SettleRefund(ctx context.Context, p *payment.Payment) error {
	full := p.Status() == vo.PaymentStatusRefunded
	if err := s.orders.MarkRefunded(ctx, p.OrderID(), p.SettledRefundAmount(), full); err != nil {
		s.logger.Errorw("failed to mark order refunded", "order_id", p.OrderID(), "error", err)
		return fmt.Errorf("failed to mark order refunded: %w", err)
	}
	note, err := s.invoices.GenerateCreditNote(ctx, p.OrderID(), p.SettledRefundAmount())
	if err != nil {
		s.logger.Errorw("failed to generate credit note", "order_id", p.OrderID(), "error", err)
		return fmt.Errorf("failed to generate credit note: %w", err)
	}
	if note == nil {
		s.logger.Warnw("refund settled without invoice, no credit note issued", "order_id", p.OrderID())
	}
	return nil
}

// SettleFailure fails the order unless it was already settled.
func (s *Settler) SettleFailure(ctx context.Context, p *payment.Payment) error {
	if err := s.orders.FailOrder(ctx, p.OrderID()); err != nil {
		s.logger.Errorw("failed to fail order", "order_id", p.OrderID(), "error", err)
		return fmt.Errorf("failed to fail order: %w", err)
	}
	return nil
}
