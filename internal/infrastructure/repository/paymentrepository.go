package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/orris-inc/payrecon/internal/domain/payment"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/payrecon/internal/infrastructure/persistence/models"
	"github.com/orris-inc/payrecon/internal/shared/biztime"
	"github.com/orris-inc/payrecon/internal/shared/db"
)

var (
	capturedStatuses = []string{
		vo.PaymentStatusSuccess.String(),
		vo.PaymentStatusPartiallyRefunded.String(),
	}
	settledStatuses = []string{
		vo.PaymentStatusSuccess.String(),
		vo.PaymentStatusPartiallyRefunded.String(),
		vo.PaymentStatusRefunded.String(),
	}
)

type PaymentRepository struct {
	db *gorm.DB
}

var _ payment.Repository = (*PaymentRepository)(nil)

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	model, err := mappers.PaymentToModel(p)
	if err != nil {
		return err
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		// concurrent initiators that share an idempotency key receive the same
		// gateway order, so either index means another payment won
		if violatesIndex(err, "open_intent_key") || violatesIndex(err, "gateway_order_id") {
			return payment.ErrDuplicateOpenPayment
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	p.SetID(model.ID)
	p.MarkPersisted()
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uint) (*payment.Payment, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PaymentRepository) GetBySID(ctx context.Context, sid string) (*payment.Payment, error) {
	return r.first(ctx, "sid = ?", sid)
}

func (r *PaymentRepository) GetByGatewayOrderID(ctx context.Context, gateway vo.Gateway, gatewayOrderID string) (*payment.Payment, error) {
	return r.first(ctx, "gateway = ? AND gateway_order_id = ?", gateway.String(), gatewayOrderID)
}

func (r *PaymentRepository) GetOpenByOrderAndGateway(ctx context.Context, orderID uint, gateway vo.Gateway) (*payment.Payment, error) {
	p, err := r.first(ctx, "open_intent_key = ?", payment.OpenIntentKey(orderID, gateway))
	if errors.Is(err, payment.ErrPaymentNotFound) {
		return nil, nil
	}
	return p, err
}

func (r *PaymentRepository) first(ctx context.Context, query string, args ...interface{}) (*payment.Payment, error) {
	var model models.PaymentModel

	if err := db.GetTxFromContext(ctx, r.db).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return mappers.PaymentToDomain(&model)
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID uint) ([]*payment.Payment, error) {
	var list []models.PaymentModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments by order: %w", err)
	}

	return mappers.PaymentsToDomain(list)
}

func (r *PaymentRepository) CountByOrderAndGateway(ctx context.Context, orderID uint, gateway vo.Gateway) (int64, error) {
	var count int64

	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentModel{}).
		Where("order_id = ? AND gateway = ?", orderID, gateway.String()).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}

	return count, nil
}

// HasCapturedPayment includes fully refunded payments since they were captured once.
func (r *PaymentRepository) HasCapturedPayment(ctx context.Context, orderID uint) (bool, error) {
	var count int64

	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentModel{}).
		Where("order_id = ? AND status IN ?", orderID, settledStatuses).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check captured payments: %w", err)
	}

	return count > 0, nil
}

func (r *PaymentRepository) MarkSuccess(ctx context.Context, p *payment.Payment) error {
	return r.write(ctx, p, "status", "gateway_payment_id", "transaction_id", "paid_at",
		"failure_reason", "open_intent_key", "raw_webhook", "metadata", "suspicious")
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, p *payment.Payment) error {
	return r.write(ctx, p, "status", "failure_reason", "open_intent_key", "raw_webhook")
}

func (r *PaymentRepository) MarkManualReview(ctx context.Context, p *payment.Payment) error {
	return r.write(ctx, p, "status", "open_intent_key", "raw_webhook", "metadata", "suspicious")
}

func (r *PaymentRepository) SaveSuspicion(ctx context.Context, p *payment.Payment) error {
	return r.write(ctx, p, "suspicious", "metadata")
}

func (r *PaymentRepository) FinalizeRefund(ctx context.Context, p *payment.Payment) error {
	return r.write(ctx, p, "status", "refund_amount", "settled_refund_amount", "refunded_at", "raw_webhook")
}

// RecordGatewayResponse stores the provider's latest raw response. It does
// not change the payment's state and skips the version check.
func (r *PaymentRepository) RecordGatewayResponse(ctx context.Context, id uint, raw []byte) error {
	if !json.Valid(raw) {
		return nil
	}
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentModel{}).
		Where("id = ?", id).
		Update("gateway_response", datatypes.JSON(raw))
	if result.Error != nil {
		return fmt.Errorf("failed to record gateway response: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return payment.ErrPaymentNotFound
	}
	return nil
}

// write updates the named columns plus version and updated_at, guarded by
// the version the payment was loaded with.
func (r *PaymentRepository) write(ctx context.Context, p *payment.Payment, columns ...string) error {
	model, err := mappers.PaymentToModel(p)
	if err != nil {
		return err
	}

	values := paymentColumns(model)
	updates := make(map[string]interface{}, len(columns)+2)
	for _, c := range columns {
		updates[c] = values[c]
	}
	if _, ok := updates["refund_amount"]; ok {
		// never lower a reservation made concurrently by ApplyRefund
		updates["refund_amount"] = gorm.Expr("CASE WHEN refund_amount > ? THEN refund_amount ELSE ? END",
			model.RefundAmount, model.RefundAmount)
	}
	updates["version"] = model.Version
	updates["updated_at"] = model.UpdatedAt

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", p.ID(), p.PersistedVersion()).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, p.ID()); err != nil {
			return err
		}
		return payment.ErrConcurrentModification
	}

	p.MarkPersisted()
	return nil
}

func paymentColumns(m *models.PaymentModel) map[string]interface{} {
	return map[string]interface{}{
		"status":                m.Status,
		"gateway_payment_id":    m.GatewayPaymentID,
		"transaction_id":        m.TransactionID,
		"paid_at":               m.PaidAt,
		"refunded_at":           m.RefundedAt,
		"failure_reason":        m.FailureReason,
		"open_intent_key":       m.OpenIntentKey,
		"raw_webhook":           m.RawWebhook,
		"metadata":              m.Metadata,
		"suspicious":            m.Suspicious,
		"refund_amount":         m.RefundAmount,
		"settled_refund_amount": m.SettledRefundAmount,
	}
}

func (r *PaymentRepository) ApplyRefund(ctx context.Context, id uint, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", payment.ErrInvalidRefundAmount)
	}

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentModel{}).
		Where("id = ? AND status IN ? AND refund_amount + ? <= amount", id, capturedStatuses, amount).
		Updates(map[string]interface{}{
			"refund_amount": gorm.Expr("refund_amount + ?", amount),
			"updated_at":    biztime.NowUTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reserve refund: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.Status().IsCaptured() {
		return fmt.Errorf("%w: status %s", payment.ErrNotRefundable, p.Status())
	}
	return fmt.Errorf("%w: requested %d, refundable %d", payment.ErrInvalidRefundAmount, amount, p.RefundableAmount())
}

func (r *PaymentRepository) RevertRefund(ctx context.Context, id uint, amount int64) error {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentModel{}).
		Where("id = ? AND refund_amount >= ?", id, amount).
		Updates(map[string]interface{}{
			"refund_amount": gorm.Expr("refund_amount - ?", amount),
			"updated_at":    biztime.NowUTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to revert refund: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: cannot revert %d", payment.ErrInvalidRefundAmount, amount)
	}
	return nil
}

func (r *PaymentRepository) FailOpenPayments(ctx context.Context, orderID uint, gateway vo.Gateway, reason string) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentModel{}).
		Where("order_id = ? AND gateway = ? AND status = ?", orderID, gateway.String(), vo.PaymentStatusCreated.String()).
		Updates(map[string]interface{}{
			"status":          vo.PaymentStatusFailed.String(),
			"failure_reason":  reason,
			"open_intent_key": nil,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      biztime.NowUTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to fail open payments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *PaymentRepository) ListStaleCreated(ctx context.Context, createdBefore time.Time, limit int) ([]*payment.Payment, error) {
	var list []models.PaymentModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ? AND created_at < ?", vo.PaymentStatusCreated.String(), createdBefore).
		Order("created_at ASC").
		Limit(queryLimit(limit)).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}

	return mappers.PaymentsToDomain(list)
}

func (r *PaymentRepository) ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]*payment.Payment, error) {
	var list []models.PaymentModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("updated_at >= ?", since).
		Order("updated_at ASC").
		Limit(queryLimit(limit)).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent payments: %w", err)
	}

	return mappers.PaymentsToDomain(list)
}
