// Package dto holds the JSON shapes returned by the payment API.
package dto

import (
	"time"

	"github.com/orris-inc/payrecon/internal/domain/payment"
	"github.com/orris-inc/payrecon/internal/domain/review"
)

type PaymentResponse struct {
	ID                  string     `json:"id"`
	OrderID             uint       `json:"order_id"`
	Gateway             string     `json:"gateway"`
	GatewayOrderID      string     `json:"gateway_order_id"`
	Status              string     `json:"status"`
	Amount              int64      `json:"amount"`
	Currency            string     `json:"currency"`
	RefundedAmount      int64      `json:"refunded_amount"`
	RemainingRefundable int64      `json:"remaining_refundable"`
	FailureReason       *string    `json:"failure_reason,omitempty"`
	ClientToken         string     `json:"client_token,omitempty"`
	Suspicious          bool       `json:"suspicious"`
	PaidAt              *time.Time `json:"paid_at,omitempty"`
	RefundedAt          *time.Time `json:"refunded_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ToPaymentResponse omits the client token; callers add it only for the payer.
func ToPaymentResponse(p *payment.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		ID:                  p.SID(),
		OrderID:             p.OrderID(),
		Gateway:             p.Gateway().String(),
		GatewayOrderID:      p.GatewayOrderID(),
		Status:              p.Status().String(),
		Amount:              p.Amount().MinorUnits(),
		Currency:            p.Amount().Currency(),
		RefundedAmount:      p.RefundAmount(),
		RemainingRefundable: p.RefundableAmount(),
		FailureReason:       p.FailureReason(),
		Suspicious:          p.IsSuspicious(),
		PaidAt:              p.PaidAt(),
		RefundedAt:          p.RefundedAt(),
		CreatedAt:           p.CreatedAt(),
		UpdatedAt:           p.UpdatedAt(),
	}
}

type ManualReviewResponse struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	OrderID        uint       `json:"order_id"`
	PaymentID      uint       `json:"payment_id,omitempty"`
	ExpectedAmount int64      `json:"expected_amount"`
	ReceivedAmount int64      `json:"received_amount"`
	Currency       string     `json:"currency"`
	Summary        string     `json:"summary"`
	Status         string     `json:"status"`
	Resolution     string     `json:"resolution,omitempty"`
	Note           string     `json:"note,omitempty"`
	ResolvedBy     *uint      `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func ToManualReviewResponse(r *review.ManualReview) *ManualReviewResponse {
	if r == nil {
		return nil
	}
	resp := &ManualReviewResponse{
		ID:             r.SID(),
		Type:           r.Type().String(),
		OrderID:        r.OrderID(),
		PaymentID:      r.PaymentID(),
		ExpectedAmount: r.ExpectedAmount(),
		ReceivedAmount: r.ReceivedAmount(),
		Currency:       r.Currency(),
		Summary:        r.Summary(),
		Status:         r.Status().String(),
		Note:           r.Note(),
		ResolvedBy:     r.ResolvedBy(),
		ResolvedAt:     r.ResolvedAt(),
		CreatedAt:      r.CreatedAt(),
	}
	if res := r.Resolution(); res != nil {
		resp.Resolution = string(*res)
	}
	return resp
}

func ToManualReviewResponses(reviews []*review.ManualReview) []*ManualReviewResponse {
	out := make([]*ManualReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, ToManualReviewResponse(r))
	}
	return out
}
