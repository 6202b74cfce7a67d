package valueobjects

type PaymentStatus string

const (
	PaymentStatusCreated           PaymentStatus = "created"
	PaymentStatusSuccess           PaymentStatus = "success"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusManualReview      PaymentStatus = "manual_review"
)

// paymentTransitions lists every legal status change. A status missing from
// the map is terminal.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusCreated: {
		PaymentStatusSuccess,
		PaymentStatusFailed,
		PaymentStatusManualReview,
	},
	PaymentStatusSuccess: {
		PaymentStatusPartiallyRefunded,
		PaymentStatusRefunded,
		PaymentStatusManualReview,
	},
	PaymentStatusPartiallyRefunded: {
		PaymentStatusPartiallyRefunded,
		PaymentStatusRefunded,
	},
	PaymentStatusFailed: {
		PaymentStatusSuccess,
		PaymentStatusManualReview,
	},
	PaymentStatusManualReview: {
		PaymentStatusSuccess,
		PaymentStatusFailed,
		PaymentStatusRefunded,
	},
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusCreated, PaymentStatusSuccess, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusPartiallyRefunded, PaymentStatusManualReview:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the legal targets from s.
func (s PaymentStatus) AllowedTransitions() []PaymentStatus {
	out := make([]PaymentStatus, len(paymentTransitions[s]))
	copy(out, paymentTransitions[s])
	return out
}

func (s PaymentStatus) IsOpen() bool {
	return s == PaymentStatusCreated
}

// IsCaptured reports whether the gateway holds captured funds that can still
// be refunded.
func (s PaymentStatus) IsCaptured() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusPartiallyRefunded
}

func (s PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[s]) == 0
}

func (s PaymentStatus) String() string {
	return string(s)
}
