package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/models"
)

func PaymentToModel(p *payment.Payment) (*models.PaymentModel, error) {
	model := &models.PaymentModel{
		ID:                  p.ID(),
		SID:                 p.SID(),
		OrderID:             p.OrderID(),
		Gateway:             p.Gateway().String(),
		GatewayOrderID:      p.GatewayOrderID(),
		GatewayPaymentID:    p.GatewayPaymentID(),
		TransactionID:       p.TransactionID(),
		ClientToken:         p.ClientToken(),
		Amount:              p.Amount().MinorUnits(),
		Currency:            p.Amount().Currency(),
		RefundAmount:        p.RefundAmount(),
		SettledRefundAmount: p.SettledRefundAmount(),
		Status:              p.Status().String(),
		FailureReason:       p.FailureReason(),
		OpenIntentKey:       p.OpenIntentKey(),
		Suspicious:          p.IsSuspicious(),
		PaidAt:              p.PaidAt(),
		RefundedAt:          p.RefundedAt(),
		Version:             p.Version(),
		CreatedAt:           p.CreatedAt(),
		UpdatedAt:           p.UpdatedAt(),
	}

	if len(p.Metadata()) > 0 {
		raw, err := json.Marshal(p.Metadata())
		if err != nil {
			return nil, fmt.Errorf("failed to encode payment metadata: %w", err)
		}
		model.Metadata = datatypes.JSON(raw)
	}
	if raw := p.GatewayResponse(); json.Valid(raw) {
		model.GatewayResponse = datatypes.JSON(raw)
	}
	if raw := p.RawWebhook(); json.Valid(raw) {
		model.RawWebhook = datatypes.JSON(raw)
	}

	return model, nil
}

func PaymentToDomain(model *models.PaymentModel) (*payment.Payment, error) {
	status := vo.PaymentStatus(model.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid payment status: %s", model.Status)
	}
	gateway, err := vo.ParseGateway(model.Gateway)
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]interface{})
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode payment metadata: %w", err)
		}
	}

	return payment.ReconstructPayment(payment.ReconstructPaymentParams{
		ID:                  model.ID,
		SID:                 model.SID,
		OrderID:             model.OrderID,
		Gateway:             gateway,
		GatewayOrderID:      model.GatewayOrderID,
		GatewayPaymentID:    model.GatewayPaymentID,
		TransactionID:       model.TransactionID,
		ClientToken:         model.ClientToken,
		Amount:              vo.NewMoney(model.Amount, model.Currency),
		RefundAmount:        model.RefundAmount,
		SettledRefundAmount: model.SettledRefundAmount,
		Status:              status,
		FailureReason:       model.FailureReason,
		Metadata:            metadata,
		GatewayResponse:     []byte(model.GatewayResponse),
		RawWebhook:          []byte(model.RawWebhook),
		Suspicious:          model.Suspicious,
		PaidAt:              model.PaidAt,
		RefundedAt:          model.RefundedAt,
		Version:             model.Version,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}), nil
}

func PaymentsToDomain(list []models.PaymentModel) ([]*payment.Payment, error) {
	out := make([]*payment.Payment, 0, len(list))
	for i := range list {
		p, err := PaymentToDomain(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
