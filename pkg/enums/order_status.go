package enums

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{OrderStatusPending, OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled}

func (v OrderStatus) IsValid() bool { return valid(orderStatuses, v) }

