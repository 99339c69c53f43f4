package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/config"
	"github.com/thornegames/orderboard/internal/events"
	"github.com/thornegames/orderboard/internal/ledger"
	"github.com/thornegames/orderboard/internal/market"
)

// memGateway is an in-memory Gateway recording what the engine persists.
type memGateway struct {
	mu            sync.Mutex
	orders        map[string]*market.Order
	adminOrders   map[string]*market.AdminOrder
	statusUpdates map[string]market.OrderStatus
	deleted       []string
	adminDeleted  []string
	loadOrders    []*market.Order
	loadAdmin     []*market.AdminOrder
}

func newMemGateway() *memGateway {
	return &memGateway{
		orders:        map[string]*market.Order{},
		adminOrders:   map[string]*market.AdminOrder{},
		statusUpdates: map[string]market.OrderStatus{},
	}
}

func (g *memGateway) LoadOrders(ctx context.Context) ([]*market.Order, error) {
	return g.loadOrders, nil
}

func (g *memGateway) SaveOrders(ctx context.Context, orders []*market.Order) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, o := range orders {
		g.orders[o.ID] = o
	}
	return nil
}

func (g *memGateway) PutOrder(ctx context.Context, o *market.Order) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[o.ID] = o
	return nil
}

func (g *memGateway) DeleteOrder(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.orders, id)
	g.deleted = append(g.deleted, id)
	return nil
}

func (g *memGateway) UpdateOrderStatus(ctx context.Context, id string, status market.OrderStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusUpdates[id] = status
	return nil
}

func (g *memGateway) LoadAdminOrders(ctx context.Context) ([]*market.AdminOrder, error) {
	return g.loadAdmin, nil
}

func (g *memGateway) SaveAdminOrders(ctx context.Context, orders []*market.AdminOrder) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, o := range orders {
		g.adminOrders[o.ID] = o
	}
	return nil
}

func (g *memGateway) PutAdminOrder(ctx context.Context, o *market.AdminOrder) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.adminOrders[o.ID] = o
	return nil
}

func (g *memGateway) DeleteAdminOrder(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.adminOrders, id)
	g.adminDeleted = append(g.adminDeleted, id)
	return nil
}

func (g *memGateway) UpdateAdminOrderState(ctx context.Context, o *market.AdminOrder) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.adminOrders[o.ID] = o
	return nil
}

func (g *memGateway) statusOf(id string) (market.OrderStatus, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.statusUpdates[id]
	return st, ok
}

func (g *memGateway) wasDeleted(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range g.deleted {
		if d == id {
			return true
		}
	}
	return false
}

// recordStats is a Stats recorder keyed by identity id.
type recordStats struct {
	mu        sync.Mutex
	orders    map[string]int
	delivered map[string]int
	collected map[string]int
	earnings  map[string]float64
}

func newRecordStats() *recordStats {
	return &recordStats{
		orders:    map[string]int{},
		delivered: map[string]int{},
		collected: map[string]int{},
		earnings:  map[string]float64{},
	}
}

func (r *recordStats) AddTotalOrders(id Identity, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[id.ID] += n
}

func (r *recordStats) AddDeliveredItems(id Identity, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered[id.ID] += n
}

func (r *recordStats) AddCollectedItems(id Identity, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collected[id.ID] += n
}

func (r *recordStats) AddTotalEarnings(id Identity, amount float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.earnings[id.ID] += amount
}

// recordSink collects published events.
type recordSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordSink) Publish(ctx context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordSink) byType(t string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// failingLedger rejects every deposit; used for credit-failure paths.
type failingLedger struct{}

func (failingLedger) Balance(ctx context.Context, identity string) (float64, error) {
	return 0, nil
}

func (failingLedger) Withdraw(ctx context.Context, identity string, amount float64) error {
	return errors.New("ledger unavailable")
}

func (failingLedger) Deposit(ctx context.Context, identity string, amount float64) error {
	return errors.New("ledger unavailable")
}

func testSettings() *config.Settings {
	return &config.Settings{
		MinPricePerItem:     0.01,
		MaxPricePerItem:     1000,
		MinOrderTotal:       1,
		HighlightFeePercent: 2.5,
		MaxOrderQuantity:    1_000_000,
		OrderLimit:          5,
		ExpirationDays:      7,
		BroadcastEnabled:    true,
		BroadcastMinTotal:   1000,
	}
}

type testEnv struct {
	engine  *Engine
	ledger  *ledger.Memory
	gateway *memGateway
	stats   *recordStats
	sink    *recordSink
	now     time.Time
}

// newTestEnv builds an engine over in-memory collaborators with a fixed,
// mutable clock.
func newTestEnv(settings *config.Settings) *testEnv {
	if settings == nil {
		settings = testSettings()
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	env := &testEnv{
		ledger:  ledger.NewMemory(),
		gateway: newMemGateway(),
		stats:   newRecordStats(),
		sink:    &recordSink{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env.engine = New(Config{
		Store:    market.NewStore(),
		Admin:    market.NewAdminStore(),
		Settings: config.NewHolder(settings),
		Ledger:   env.ledger,
		Gateway:  env.gateway,
		Stats:    env.stats,
		Events:   env.sink,
		Log:      log,
	})
	env.engine.nowFunc = func() time.Time { return env.now }
	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.now = env.now.Add(d)
}

func (env *testEnv) balance(id string) float64 {
	b, _ := env.ledger.Balance(context.Background(), id)
	return b
}

var (
	owner     = Identity{ID: "owner-1", Name: "Thorne"}
	fulfiller = Identity{ID: "miner-1", Name: "Mira"}
)

func diamonds() market.Item { return market.Item{Kind: "DIAMOND"} }

func (env *testEnv) mustCreate(amount int, price float64) *market.Order {
	order, err := env.engine.CreateOrder(context.Background(), CreateRequest{
		Owner:     owner,
		Item:      diamonds(),
		Amount:    amount,
		UnitPrice: price,
	})
	if err != nil {
		panic(err)
	}
	return order
}
