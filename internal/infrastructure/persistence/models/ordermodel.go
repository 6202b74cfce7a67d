package models

import "time"

type OrderModel struct {
	ID             uint   `gorm:"primaryKey"`
	OrderNo        string `gorm:"uniqueIndex;size:64;not null"`
	UserID         uint   `gorm:"index;not null"`
	Amount         int64  `gorm:"not null"`
	Currency       string `gorm:"size:10;not null"`
	OrderStatus    string `gorm:"size:20;not null;index"`
	PaymentStatus  string `gorm:"size:20;not null;index"`
	RefundedAmount int64  `gorm:"not null;default:0"`
	PaidAt         *time.Time
	Version        int `gorm:"not null;default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}
