package models

import "time"

// ManualReviewModel is the manual_reviews table. OpenKey is non-null only
// while the review is pending.
type ManualReviewModel struct {
	ID             uint    `gorm:"primaryKey"`
	SID            string  `gorm:"column:sid;uniqueIndex;size:50;not null"`
	Type           string  `gorm:"size:32;not null;index"`
	OrderID        uint    `gorm:"index;not null"`
	PaymentID      uint    `gorm:"index;not null;default:0"`
	ExpectedAmount int64   `gorm:"not null;default:0"`
	ReceivedAmount int64   `gorm:"not null;default:0"`
	Currency       string  `gorm:"size:10"`
	Summary        string  `gorm:"type:text"`
	Status         string  `gorm:"size:20;not null;index"`
	Resolution     *string `gorm:"size:20"`
	Note           string  `gorm:"type:text"`
	ResolvedBy     *uint
	ResolvedAt     *time.Time
	OpenKey        *string   `gorm:"size:96;uniqueIndex"`
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

func (ManualReviewModel) TableName() string {
	return "manual_reviews"
}
