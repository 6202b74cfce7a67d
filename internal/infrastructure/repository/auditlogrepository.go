package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/models"
	"github.com/orris-inc/payrecon/internal/shared/db"
)

type AuditLogRepository struct {
	db *gorm.DB
}

var _ audit.Repository = (*AuditLogRepository)(nil)

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Save(ctx context.Context, record *audit.Record) error {
	model, err := mappers.AuditRecordToModel(record)
	if err != nil {
		return err
	}
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save audit record: %w", err)
	}
	return nil
}

func (r *AuditLogRepository) ListByPayment(ctx context.Context, paymentID uint) ([]*audit.Record, error) {
	var list []models.AuditLogModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("payment_id = ?", paymentID).
		Order("occurred_at ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}

	records := make([]*audit.Record, 0, len(list))
	for i := range list {
		rec, err := mappers.AuditRecordToDomain(&list[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
