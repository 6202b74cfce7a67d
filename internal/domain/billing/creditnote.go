package billing

import (
	"fmt"
	"time"

	paymentvo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/biztime"
	"github.com/orris-inc/payrecon/internal/shared/id"
)

// CreditNote documents a refund against an invoice. Each note covers the
// delta between the previous cumulative refunded total and its own.
type CreditNote struct {
	id                 uint
	sid                string
	number             string
	invoiceID          uint
	orderID            uint
	amount             paymentvo.Money
	cumulativeRefunded int64
	issuedAt           time.Time
}

// NewCreditNote issues a note for the refunded total beyond alreadyCredited.
func NewCreditNote(invoice *Invoice, refundedTotal, alreadyCredited int64) (*CreditNote, error) {
	if invoice == nil {
		return nil, fmt.Errorf("invoice is required")
	}
	delta := refundedTotal - alreadyCredited
	if delta <= 0 {
		return nil, fmt.Errorf("refunded total %d is already credited", refundedTotal)
	}
	if refundedTotal > invoice.Amount().MinorUnits() {
		return nil, fmt.Errorf("refunded total %d exceeds invoice amount %d", refundedTotal, invoice.Amount().MinorUnits())
	}
	sid, err := id.NewCreditNoteSID()
	if err != nil {
		return nil, err
	}
	now := biztime.NowUTC()
	return &CreditNote{
		sid:                sid,
		number:             fmt.Sprintf("CN-%s-%08d-%d", biztime.DateStamp(now), invoice.OrderID(), refundedTotal),
		invoiceID:          invoice.ID(),
		orderID:            invoice.OrderID(),
		amount:             paymentvo.NewMoney(delta, invoice.Amount().Currency()),
		cumulativeRefunded: refundedTotal,
		issuedAt:           now,
	}, nil
}

func (c *CreditNote) ID() uint { return c.id }
func (c *CreditNote) SID() string { return c.sid }
func (c *CreditNote) Number() string { return c.number }
func (c *CreditNote) InvoiceID() uint { return c.invoiceID }
func (c *CreditNote) OrderID() uint { return c.orderID }
func (c *CreditNote) Amount() paymentvo.Money { return c.amount }
func (c *CreditNote) CumulativeRefunded() int64 { return c.cumulativeRefunded }
func (c *CreditNote) IssuedAt() time.Time { return c.issuedAt }
func (c *CreditNote) SetID(id uint) { c.id = id }

func ReconstructCreditNote(id uint, sid, number string, invoiceID, orderID uint, amount paymentvo.Money, cumulative int64, issuedAt time.Time) *CreditNote {
	return &CreditNote{
		id:                 id,
		sid:                sid,
		number:             number,
		invoiceID:          invoiceID,
		orderID:            orderID,
		amount:             amount,
		cumulativeRefunded: cumulative,
		issuedAt:           issuedAt,
	}
}
