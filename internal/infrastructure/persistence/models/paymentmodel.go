package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentModel is the payments table. OpenIntentKey is set only while the
// payment is created, so its unique index admits one open attempt per
// order and gateway.
type PaymentModel struct {
	ID                  uint    `gorm:"primaryKey"`
	SID                 string  `gorm:"column:sid;uniqueIndex;size:50;not null"`
	OrderID             uint    `gorm:"index:idx_payments_order_gateway;not null"`
	Gateway             string  `gorm:"size:20;not null;index:idx_payments_order_gateway;uniqueIndex:idx_payments_gateway_order_id"`
	GatewayOrderID      string  `gorm:"size:128;not null;uniqueIndex:idx_payments_gateway_order_id"`
	GatewayPaymentID    *string `gorm:"size:128"`
	TransactionID       *string `gorm:"size:128"`
	ClientToken         string  `gorm:"type:text"`
	Amount              int64   `gorm:"not null"`
	Currency            string  `gorm:"size:10;not null"`
	RefundAmount        int64   `gorm:"not null;default:0"`
	SettledRefundAmount int64   `gorm:"not null;default:0"`
	Status              string  `gorm:"size:20;not null;index"`
	FailureReason       *string `gorm:"size:64"`
	OpenIntentKey       *string `gorm:"size:96;uniqueIndex"`
	Suspicious          bool    `gorm:"not null;default:false"`
	Metadata            datatypes.JSON
	GatewayResponse     datatypes.JSON
	RawWebhook          datatypes.JSON
	PaidAt              *time.Time
	RefundedAt          *time.Time
	Version             int       `gorm:"not null;default:1"`
	CreatedAt           time.Time `gorm:"index"`
	UpdatedAt           time.Time `gorm:"index"`
}

func (PaymentModel) TableName() string {
	return "payments"
}
