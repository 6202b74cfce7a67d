package billing

import (
	"errors"
	"fmt"
	"time"

	paymentvo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/biztime"
	"github.com/orris-inc/payrecon/internal/shared/id"
)

var (
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrDuplicateInvoice    = errors.New("invoice already exists for order")
	ErrDuplicateCreditNote = errors.New("credit note already exists for this refund total")
)

// Invoice documents a captured order payment. There is one per order.
type Invoice struct {
	id        uint
	sid       string
	number    string
	orderID   uint
	paymentID uint
	amount    paymentvo.Money
	issuedAt  time.Time
}

func NewInvoice(orderID, paymentID uint, amount paymentvo.Money) (*Invoice, error) {
	if orderID == 0 {
		return nil, fmt.Errorf("order ID is required")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("invoice amount must be positive")
	}
	sid, err := id.NewInvoiceSID()
	if err != nil {
		return nil, err
	}
	now := biztime.NowUTC()
	return &Invoice{
		sid:       sid,
		number:    fmt.Sprintf("INV-%s-%08d", biztime.DateStamp(now), orderID),
		orderID:   orderID,
		paymentID: paymentID,
		amount:    amount,
		issuedAt:  now,
	}, nil
}

func (i *Invoice) ID() uint { return i.id }
func (i *Invoice) SID() string { return i.sid }
func (i *Invoice) Number() string { return i.number }
func (i *Invoice) OrderID() uint { return i.orderID }
func (i *Invoice) PaymentID() uint { return i.paymentID }
func (i *Invoice) Amount() paymentvo.Money { return i.amount }
func (i *Invoice) IssuedAt() time.Time { return i.issuedAt }
func (i *Invoice) SetID(id uint) { i.id = id }

func ReconstructInvoice(id uint, sid, number string, orderID, paymentID uint, amount paymentvo.Money, issuedAt time.Time) *Invoice {
	return &Invoice{
		id:        id,
		sid:       sid,
		number:    number,
		orderID:   orderID,
		paymentID: paymentID,
		amount:    amount,
		issuedAt:  issuedAt,
	}
}
