package http

import (
	"github.com/orris-inc/payrecon/internal/infrastructure/repository"
)

// repositories holds the gorm repositories. Types match the constructors.
type repositories struct {
	paymentRepo    *repository.PaymentRepository
	orderRepo      *repository.OrderRepository
	reviewRepo     *repository.ManualReviewRepository
	invoiceRepo    *repository.InvoiceRepository
	creditNoteRepo *repository.CreditNoteRepository
	auditRepo      *repository.AuditLogRepository
}

func (c *Container) initRepositories() {
	c.repos = &repositories{
		paymentRepo:    repository.NewPaymentRepository(c.db),
		orderRepo:      repository.NewOrderRepository(c.db),
		reviewRepo:     repository.NewManualReviewRepository(c.db),
		invoiceRepo:    repository.NewInvoiceRepository(c.db),
		creditNoteRepo: repository.NewCreditNoteRepository(c.db),
		auditRepo:      repository.NewAuditLogRepository(c.db),
	}
}
