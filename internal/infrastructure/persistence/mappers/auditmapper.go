package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/models"
)

func AuditRecordToModel(r *audit.Record) (*models.AuditLogModel, error) {
	model := &models.AuditLogModel{
		EventID:    r.ID,
		Action:     string(r.Action),
		Actor:      r.Actor,
		OrderID:    r.OrderID,
		PaymentID:  r.PaymentID,
		Amount:     r.Amount,
		Currency:   r.Currency,
		Reason:     r.Reason,
		OccurredAt: r.OccurredAt,
	}
	if len(r.Details) > 0 {
		raw, err := json.Marshal(r.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to encode audit details: %w", err)
		}
		model.Details = datatypes.JSON(raw)
	}
	return model, nil
}

func AuditRecordToDomain(model *models.AuditLogModel) (*audit.Record, error) {
	r := &audit.Record{
		ID:         model.EventID,
		Action:     audit.Action(model.Action),
		Actor:      model.Actor,
		OrderID:    model.OrderID,
		PaymentID:  model.PaymentID,
		Amount:     model.Amount,
		Currency:   model.Currency,
		Reason:     model.Reason,
		OccurredAt: model.OccurredAt,
	}
	if len(model.Details) > 0 {
		if err := json.Unmarshal(model.Details, &r.Details); err != nil {
			return nil, fmt.Errorf("failed to decode audit details: %w", err)
		}
	}
	return r, nil
}
