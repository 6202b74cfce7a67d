// Package billing issues invoices and credit notes for settled payments.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/orris-inc/payrecon/internal/domain/billing"
	paymentvo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

type Service struct {
	invoices    billing.InvoiceRepository
	creditNotes billing.CreditNoteRepository
	logger      logger.Interface
}

func NewService(invoices billing.InvoiceRepository, creditNotes billing.CreditNoteRepository, logger logger.Interface) *Service {
	return &Service{
		invoices:    invoices,
		creditNotes: creditNotes,
		logger:      logger,
	}
}

// GenerateInvoice creates the order's invoice or returns the existing one.
func (s *Service) GenerateInvoice(ctx context.Context, orderID, paymentID uint, amount paymentvo.Money) (*billing.Invoice, error) {
	existing, err := s.invoices.GetByOrderID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, billing.ErrInvoiceNotFound) {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	inv, err := billing.NewInvoice(orderID, paymentID, amount)
	if err != nil {
		return nil, err
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		if errors.Is(err, billing.ErrDuplicateInvoice) {
			return s.invoices.GetByOrderID(ctx, orderID)
		}
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.Infow("invoice issued", "order_id", orderID, "invoice_number", inv.Number(), "amount", amount.MinorUnits())
	return inv, nil
}

// GenerateCreditNote credits the part of refundedTotal not yet covered by an
// earlier note. A total that is already credited returns the latest note.
func (s *Service) GenerateCreditNote(ctx context.Context, orderID uint, refundedTotal int64) (*billing.CreditNote, error) {
	inv, err := s.invoices.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, billing.ErrInvoiceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	notes, err := s.creditNotes.ListByInvoice(ctx, inv.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to list credit notes: %w", err)
	}
	var latest *billing.CreditNote
	for _, n := range notes {
		if latest == nil || n.CumulativeRefunded() > latest.CumulativeRefunded() {
			latest = n
		}
	}
	credited := int64(0)
	if latest != nil {
		credited = latest.CumulativeRefunded()
	}
	if refundedTotal <= credited {
		return latest, nil
	}

	note, err := billing.NewCreditNote(inv, refundedTotal, credited)
	if err != nil {
		return nil, err
	}
	if err := s.creditNotes.Create(ctx, note); err != nil {
		if errors.Is(err, billing.ErrDuplicateCreditNote) {
			return s.GenerateCreditNote(ctx, orderID, refundedTotal)
		}
		return nil, fmt.Errorf("failed to create credit note: %w", err)
	}

	s.logger.Infow("credit note issued",
		"order_id", orderID,
		"invoice_number", inv.Number(),
		"credit_note_number", note.Number(),
		"amount", note.Amount().MinorUnits(),
	)
	return note, nil
}
