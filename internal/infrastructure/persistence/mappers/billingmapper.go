package mappers

import (
	"github.com/orris-inc/payrecon/internal/domain/billing"
	paymentvo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/models"
)

func InvoiceToModel(inv *billing.Invoice) *models.InvoiceModel {
	return &models.InvoiceModel{
		ID:        inv.ID(),
		SID:       inv.SID(),
		Number:    inv.Number(),
		OrderID:   inv.OrderID(),
		PaymentID: inv.PaymentID(),
		Amount:    inv.Amount().MinorUnits(),
		Currency:  inv.Amount().Currency(),
		IssuedAt:  inv.IssuedAt(),
	}
}

func InvoiceToDomain(model *models.InvoiceModel) *billing.Invoice {
	return billing.ReconstructInvoice(
		model.ID, model.SID, model.Number,
		model.OrderID, model.PaymentID,
		paymentvo.NewMoney(model.Amount, model.Currency),
		model.IssuedAt,
	)
}

func CreditNoteToModel(note *billing.CreditNote) *models.CreditNoteModel {
	return &models.CreditNoteModel{
		ID:                 note.ID(),
		SID:                note.SID(),
		Number:             note.Number(),
		InvoiceID:          note.InvoiceID(),
		OrderID:            note.OrderID(),
		Amount:             note.Amount().MinorUnits(),
		Currency:           note.Amount().Currency(),
		CumulativeRefunded: note.CumulativeRefunded(),
		IssuedAt:           note.IssuedAt(),
	}
}

func CreditNoteToDomain(model *models.CreditNoteModel) *billing.CreditNote {
	return billing.ReconstructCreditNote(
		model.ID, model.SID, model.Number,
		model.InvoiceID, model.OrderID,
		paymentvo.NewMoney(model.Amount, model.Currency),
		model.CumulativeRefunded,
		model.IssuedAt,
	)
}
