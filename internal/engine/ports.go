package engine

import (
	"context"

	"github.com/thornegames/orderboard/internal/events"
	"github.com/thornegames/orderboard/internal/market"
)

// Identity names a player for ledger, statistics and ownership checks.
type Identity struct {
	ID   string
	Name string
}

// Ledger is the external balance system the engine debits and credits.
// Calls are synchronous; a successful debit or credit is treated as durable.
type Ledger interface {
	Balance(ctx context.Context, identity string) (float64, error)
	Withdraw(ctx context.Context, identity string, amount float64) error
	Deposit(ctx context.Context, identity string, amount float64) error
}

// Gateway is the durable storage collaborator for orders. In-memory state
// stays authoritative: a gateway failure is logged and retried on the next
// save cycle, never rolled into the lifecycle operation that triggered it.
type Gateway interface {
	LoadOrders(ctx context.Context) ([]*market.Order, error)
	SaveOrders(ctx context.Context, orders []*market.Order) error
	PutOrder(ctx context.Context, o *market.Order) error
	DeleteOrder(ctx context.Context, id string) error
	UpdateOrderStatus(ctx context.Context, id string, status market.OrderStatus) error

	LoadAdminOrders(ctx context.Context) ([]*market.AdminOrder, error)
	SaveAdminOrders(ctx context.Context, orders []*market.AdminOrder) error
	PutAdminOrder(ctx context.Context, o *market.AdminOrder) error
	DeleteAdminOrder(ctx context.Context, id string) error
	UpdateAdminOrderState(ctx context.Context, o *market.AdminOrder) error
}

// Stats receives per-identity statistics deltas on lifecycle events.
type Stats interface {
	AddTotalOrders(identity Identity, n int)
	AddDeliveredItems(identity Identity, n int)
	AddCollectedItems(identity Identity, n int)
	AddTotalEarnings(identity Identity, amount float64)
}

// EventSink receives lifecycle events, fire-and-forget: a publish failure
// must not roll back the operation that produced the event.
type EventSink interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Metrics receives engine counters, fire-and-forget like EventSink.
type Metrics interface {
	Count(ctx context.Context, name string, value float64)
}

// Resolver maps an identity to its current name and online state, used to
// enrich events for collaborators that deliver interactive feedback.
type Resolver interface {
	Resolve(identity string) (name string, online bool)
}
