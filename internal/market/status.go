package market

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// Order statuses. ACTIVE -> COMPLETED -> ARCHIVED is the normal path,
// CANCELLED is reachable from ACTIVE, and COOLDOWN is reachable from
// COMPLETED only for repeatable admin orders (looping back to ACTIVE).
const (
	StatusActive    OrderStatus = "ACTIVE"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusArchived  OrderStatus = "ARCHIVED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusCooldown  OrderStatus = "COOLDOWN"
)

// Terminal reports whether no further deliveries are possible in this state.
func (s OrderStatus) Terminal() bool {
	return s == StatusArchived || s == StatusCancelled
}
