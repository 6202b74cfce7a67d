package models

import "time"

type InvoiceModel struct {
	ID        uint   `gorm:"primaryKey"`
	SID       string `gorm:"column:sid;uniqueIndex;size:50;not null"`
	Number    string `gorm:"uniqueIndex;size:64;not null"`
	OrderID   uint   `gorm:"uniqueIndex;not null"`
	PaymentID uint   `gorm:"index;not null"`
	Amount    int64  `gorm:"not null"`
	Currency  string `gorm:"size:10;not null"`
	IssuedAt  time.Time
}

func (InvoiceModel) TableName() string {
	return "invoices"
}

// CreditNoteModel is unique per invoice and cumulative refunded total, so a
// redelivered refund cannot credit the same money twice.
type CreditNoteModel struct {
	ID                 uint   `gorm:"primaryKey"`
	SID                string `gorm:"column:sid;uniqueIndex;size:50;not null"`
	Number             string `gorm:"uniqueIndex;size:80;not null"`
	InvoiceID          uint   `gorm:"not null;uniqueIndex:idx_credit_notes_invoice_cumulative"`
	OrderID            uint   `gorm:"index;not null"`
	Amount             int64  `gorm:"not null"`
	Currency           string `gorm:"size:10;not null"`
	CumulativeRefunded int64  `gorm:"not null;uniqueIndex:idx_credit_notes_invoice_cumulative"`
	IssuedAt           time.Time
}

func (CreditNoteModel) TableName() string {
	return "credit_notes"
}
