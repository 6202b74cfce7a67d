package billing

import "context"

type InvoiceRepository interface {
	// Create fails with ErrDuplicateInvoice when the order already has one.
	Create(ctx context.Context, invoice *Invoice) error
	GetByOrderID(ctx context.Context, orderID uint) (*Invoice, error)
}

type CreditNoteRepository interface {
	// Create fails with ErrDuplicateCreditNote for a repeated cumulative total.
	Create(ctx context.Context, note *CreditNote) error
	ListByInvoice(ctx context.Context, invoiceID uint) ([]*CreditNote, error)
}
