package events

import "time"

// Event types emitted by the lifecycle engine. Consumers (log, broadcast and
// webhook workers) subscribe to the queue these are published on.
const (
	TypeOrderCreated   = "order.created"
	TypeOrderDelivered = "order.delivered"
	TypeOrderCollected = "order.collected"
	TypeOrderCancelled = "order.cancelled"
	TypeOrderExpired   = "order.expired"
	TypeOrderCompleted = "order.completed"
	TypeOrderArchived  = "order.archived"
	TypeOrderResumed   = "order.resumed"
)

// Event is a single lifecycle notification. Admin marks operator orders.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	Admin     bool      `json:"admin,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	ActorName string    `json:"actor_name,omitempty"`
	ItemKind  string    `json:"item_kind,omitempty"`
	Units     int       `json:"units,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	Total     float64   `json:"total,omitempty"`
	Broadcast bool      `json:"broadcast,omitempty"`
	At        time.Time `json:"at"`
}
