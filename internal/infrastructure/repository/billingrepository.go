package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/payrecon/internal/domain/billing"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/models"
	"github.com/orris-inc/payrecon/internal/shared/db"
	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
)

type InvoiceRepository struct {
	db *gorm.DB
}

var _ billing.InvoiceRepository = (*InvoiceRepository)(nil)

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	model := mappers.InvoiceToModel(inv)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if violatesIndex(err, "order_id") {
			return billing.ErrDuplicateInvoice
		}
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	inv.SetID(model.ID)
	return nil
}

func (r *InvoiceRepository) GetByOrderID(ctx context.Context, orderID uint) (*billing.Invoice, error) {
	var model models.InvoiceModel

	if err := db.GetTxFromContext(ctx, r.db).Where("order_id = ?", orderID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return mappers.InvoiceToDomain(&model), nil
}

type CreditNoteRepository struct {
	db *gorm.DB
}

var _ billing.CreditNoteRepository = (*CreditNoteRepository)(nil)

func NewCreditNoteRepository(db *gorm.DB) *CreditNoteRepository {
	return &CreditNoteRepository{db: db}
}

func (r *CreditNoteRepository) Create(ctx context.Context, note *billing.CreditNote) error {
	model := mappers.CreditNoteToModel(note)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return billing.ErrDuplicateCreditNote
		}
		return fmt.Errorf("failed to create credit note: %w", err)
	}

	note.SetID(model.ID)
	return nil
}

func (r *CreditNoteRepository) ListByInvoice(ctx context.Context, invoiceID uint) ([]*billing.CreditNote, error) {
	var list []models.CreditNoteModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("invoice_id = ?", invoiceID).
		Order("cumulative_refunded ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list credit notes: %w", err)
	}

	notes := make([]*billing.CreditNote, 0, len(list))
	for i := range list {
		notes = append(notes, mappers.CreditNoteToDomain(&list[i]))
	}
	return notes, nil
}
