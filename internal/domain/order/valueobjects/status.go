package valueobjects

// OrderStatus is the order's own lifecycle, limited to the payment related part.
type OrderStatus string

const (
	OrderStatusCreated           OrderStatus = "created"
	OrderStatusConfirmed         OrderStatus = "confirmed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
	OrderStatusRefunded          OrderStatus = "refunded"
)

var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated: {
		OrderStatusConfirmed,
		OrderStatusCancelled,
	},
	OrderStatusConfirmed: {
		OrderStatusPartiallyRefunded,
		OrderStatusRefunded,
	},
	OrderStatusPartiallyRefunded: {
		OrderStatusPartiallyRefunded,
		OrderStatusRefunded,
	},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusConfirmed, OrderStatusCancelled,
		OrderStatusPartiallyRefunded, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// PaymentStatus is the order's view of whether it has been paid.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefunded      PaymentStatus = "refunded"
)

var paymentStatusTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {
		PaymentStatusPartiallyPaid,
		PaymentStatusPaid,
		PaymentStatusFailed,
	},
	PaymentStatusPartiallyPaid: {
		PaymentStatusPaid,
		PaymentStatusFailed,
	},
	PaymentStatusFailed: {
		PaymentStatusPending,
		PaymentStatusPaid,
	},
	PaymentStatusPaid: {
		PaymentStatusRefunded,
	},
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartiallyPaid, PaymentStatusPaid,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsSettled reports whether money was collected for the order at some point.
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentStatusPaid || s == PaymentStatusRefunded
}

func (s PaymentStatus) String() string {
	return string(s)
}
