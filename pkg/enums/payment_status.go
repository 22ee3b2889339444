package enums

// PaymentStatus is the lifecycle state of a payment row.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var paymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled}

func (v PaymentStatus) IsValid() bool { return valid(paymentStatuses, v) }
