package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLogModel struct {
	ID         uint   `gorm:"primaryKey"`
	EventID    string `gorm:"uniqueIndex;size:64;not null"`
	Action     string `gorm:"size:40;not null;index"`
	Actor      string `gorm:"size:64;not null"`
	OrderID    uint   `gorm:"index"`
	PaymentID  uint   `gorm:"index"`
	Amount     int64
	Currency   string `gorm:"size:10"`
	Reason     string `gorm:"type:text"`
	Details    datatypes.JSON
	OccurredAt time.Time `gorm:"index"`
}

func (AuditLogModel) TableName() string {
	return "audit_logs"
}
