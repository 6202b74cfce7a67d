package valueobjects

import "fmt"

type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusResolved ReviewStatus = "resolved"
	StatusRejected ReviewStatus = "rejected"
)

var reviewStatusTransitions = map[ReviewStatus][]ReviewStatus{
	StatusPending: {
		StatusResolved,
		StatusRejected,
	},
}

func (s ReviewStatus) String() string {
	return string(s)
}

func (s ReviewStatus) IsValid() bool {
	return s == StatusPending || s == StatusResolved || s == StatusRejected
}

func (s ReviewStatus) CanTransitionTo(next ReviewStatus) bool {
	for _, allowed := range reviewStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseReviewStatus(s string) (ReviewStatus, error) {
	status := ReviewStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid review status: %s", s)
	}
	return status, nil
}

// ReviewType classifies why a payment was escalated.
type ReviewType string

const (
	TypePaymentMismatch ReviewType = "payment_mismatch"
	TypeRefundMismatch  ReviewType = "refund_mismatch"
	TypeGatewayAnomaly  ReviewType = "gateway_anomaly"
)

func (t ReviewType) IsValid() bool {
	return t == TypePaymentMismatch || t == TypeRefundMismatch || t == TypeGatewayAnomaly
}

func (t ReviewType) String() string {
	return string(t)
}

// Resolution is the operator's decision when closing a review.
type Resolution string

const (
	ResolutionMarkPaid   Resolution = "mark_paid"
	ResolutionMarkFailed Resolution = "mark_failed"
	ResolutionNoAction   Resolution = "no_action"
	ResolutionDismiss    Resolution = "dismiss"
)

func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionMarkPaid, ResolutionMarkFailed, ResolutionNoAction, ResolutionDismiss:
		return true
	}
	return false
}

// TargetStatus is the review status a resolution closes the ticket with.
func (r Resolution) TargetStatus() ReviewStatus {
	if r == ResolutionDismiss {
		return StatusRejected
	}
	return StatusResolved
}

func (r Resolution) String() string {
	return string(r)
}
