package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/config"
	"github.com/thornegames/orderboard/internal/events"
	"github.com/thornegames/orderboard/internal/market"
)

// Config groups the engine's dependencies.
type Config struct {
	Store    *market.Store
	Admin    *market.AdminStore
	Settings *config.Holder
	Ledger   Ledger
	Gateway  Gateway
	Stats    Stats
	Events   EventSink
	Metrics  Metrics
	Resolver Resolver
	Log      *logrus.Logger
}

// Engine is the order lifecycle engine: creation with atomic balance
// reservation, delivery and collection accounting, cancellation with refund,
// expiration sweeps and the admin-order cooldown machine.
type Engine struct {
	store    *market.Store
	admin    *market.AdminStore
	settings *config.Holder
	ledger   Ledger
	gateway  Gateway
	stats    Stats
	events   EventSink
	metrics  Metrics
	resolver Resolver
	log      *logrus.Logger
	nowFunc  func() time.Time
}

// New returns an Engine wired to the given collaborators.
func New(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		store:    cfg.Store,
		admin:    cfg.Admin,
		settings: cfg.Settings,
		ledger:   cfg.Ledger,
		gateway:  cfg.Gateway,
		stats:    cfg.Stats,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		resolver: cfg.Resolver,
		log:      log,
		nowFunc:  time.Now,
	}
}

func (e *Engine) now() time.Time { return e.nowFunc() }

// Now exposes the engine clock so callers render cooldown and expiry
// countdowns against the same time source the lifecycle uses.
func (e *Engine) Now() time.Time { return e.now() }

// Store exposes the player-order store for read-only listings.
func (e *Engine) Store() *market.Store { return e.store }

// AdminStore exposes the operator-order store for read-only listings.
func (e *Engine) AdminStore() *market.AdminStore { return e.admin }

// Load populates both stores from durable storage, skipping rows already
// archived or cancelled.
func (e *Engine) Load(ctx context.Context) error {
	orders, err := e.gateway.LoadOrders(ctx)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	loaded := 0
	for _, o := range orders {
		if o.Status.Terminal() {
			continue
		}
		e.store.Put(o)
		loaded++
	}

	adminOrders, err := e.gateway.LoadAdminOrders(ctx)
	if err != nil {
		return fmt.Errorf("load admin orders: %w", err)
	}
	adminLoaded := 0
	for _, o := range adminOrders {
		if o.Status.Terminal() {
			continue
		}
		e.admin.Put(o)
		adminLoaded++
	}

	e.log.WithFields(logrus.Fields{"orders": loaded, "admin_orders": adminLoaded}).
		Info("orders loaded")
	return nil
}

// SaveAll writes both stores to durable storage. Used by the periodic
// autosave and by shutdown; failures are retried on the next tick.
func (e *Engine) SaveAll(ctx context.Context) error {
	if err := e.gateway.SaveOrders(ctx, e.store.ListAll()); err != nil {
		return fmt.Errorf("save orders: %w", err)
	}
	if err := e.gateway.SaveAdminOrders(ctx, e.admin.ListAll()); err != nil {
		return fmt.Errorf("save admin orders: %w", err)
	}
	return nil
}

// CreateRequest is a validated-on-entry order creation request. Privileged
// callers (operators creating player orders) skip the limit and balance
// checks but not the item, quantity and price validations.
type CreateRequest struct {
	Owner          Identity
	Item           market.Item
	Amount         int
	UnitPrice      float64
	Highlight      bool
	ExpirationDays int
	Privileged     bool
}

// TotalPrice is the amount reserved at creation: amount times unit price,
// plus the highlight surcharge percentage when highlighted.
func (r CreateRequest) TotalPrice(highlightFeePercent float64) float64 {
	total := float64(r.Amount) * r.UnitPrice
	if r.Highlight && highlightFeePercent > 0 {
		total += total * highlightFeePercent / 100
	}
	return total
}

// CreateOrder validates the request, reserves the total price from the
// owner's balance and inserts the order. Withdrawal and insertion happen in
// the same synchronous call path: a failed withdrawal never leaves an order
// inserted.
func (e *Engine) CreateOrder(ctx context.Context, req CreateRequest) (*market.Order, error) {
	s := e.settings.Snapshot()

	if err := e.validateCreate(s, req.Item, req.Amount, req.UnitPrice, req.Highlight); err != nil {
		return nil, err
	}

	total := req.TotalPrice(s.HighlightFeePercent)

	if !req.Privileged {
		if e.store.ActiveCount(req.Owner.ID) >= s.OrderLimit {
			return nil, ErrOrderLimitReached
		}
		balance, err := e.ledger.Balance(ctx, req.Owner.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedger, err)
		}
		if balance < total {
			return nil, ErrInsufficientFunds
		}
		if err := e.ledger.Withdraw(ctx, req.Owner.ID, total); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedger, err)
		}
	}

	now := e.now()
	days := req.ExpirationDays
	if days <= 0 {
		days = s.ExpirationDays
	}

	order := &market.Order{
		Base: market.Base{
			ID:        e.store.NewID(),
			Item:      req.Item,
			Amount:    req.Amount,
			Price:     req.UnitPrice,
			CreatedAt: now,
			ExpiresAt: now.AddDate(0, 0, days),
			Highlight: req.Highlight,
			Status:    market.StatusActive,
		},
		OwnerID:   req.Owner.ID,
		OwnerName: req.Owner.Name,
	}
	e.store.Put(order)

	e.stats.AddTotalOrders(req.Owner, 1)
	e.persistOrder(ctx, order)

	e.emit(ctx, events.Event{
		Type:      events.TypeOrderCreated,
		OrderID:   order.ID,
		Actor:     order.OwnerID,
		ActorName: order.OwnerName,
		ItemKind:  order.Item.Kind,
		Units:     order.Amount,
		Amount:    order.Price,
		Total:     total,
		Broadcast: s.BroadcastEnabled && total >= s.BroadcastMinTotal,
	})
	e.count(ctx, "OrdersCreated", 1)

	e.log.WithFields(logrus.Fields{
		"order": order.ID, "owner": order.OwnerName,
		"item": order.Item.Kind, "amount": order.Amount, "total": total,
	}).Info("order created")
	return order, nil
}

// CreateAdminRequest describes a new operator order. Operator orders are not
// purchased, so no funds are reserved.
type CreateAdminRequest struct {
	Item           market.Item
	Amount         int
	UnitPrice      float64
	Highlight      bool
	ExpirationDays int
	CategoryID     string
	CustomName     string
	Cooldown       time.Duration
	Repeatable     bool
}

// CreateAdminOrder validates and inserts an operator order.
func (e *Engine) CreateAdminOrder(ctx context.Context, req CreateAdminRequest) (*market.AdminOrder, error) {
	s := e.settings.Snapshot()

	if err := e.validateCreate(s, req.Item, req.Amount, req.UnitPrice, req.Highlight); err != nil {
		return nil, err
	}

	now := e.now()
	days := req.ExpirationDays
	if days <= 0 {
		days = s.ExpirationDays
	}

	order := &market.AdminOrder{
		Base: market.Base{
			ID:        e.admin.NewID(),
			Item:      req.Item,
			Amount:    req.Amount,
			Price:     req.UnitPrice,
			CreatedAt: now,
			ExpiresAt: now.AddDate(0, 0, days),
			Highlight: req.Highlight,
			Status:    market.StatusActive,
		},
		CategoryID:       req.CategoryID,
		CustomName:       req.CustomName,
		CooldownDuration: req.Cooldown,
		Repeatable:       req.Repeatable,
	}
	e.admin.Put(order)

	if err := e.gateway.PutAdminOrder(ctx, order); err != nil {
		e.log.WithError(err).WithField("order", order.ID).Error("persist admin order")
	}

	e.emit(ctx, events.Event{
		Type:     events.TypeOrderCreated,
		OrderID:  order.ID,
		Admin:    true,
		ItemKind: order.Item.Kind,
		Units:    order.Amount,
		Amount:   order.Price,
	})
	e.count(ctx, "AdminOrdersCreated", 1)

	e.log.WithFields(logrus.Fields{
		"order": order.ID, "item": order.Item.Kind,
		"amount": order.Amount, "repeatable": order.Repeatable,
	}).Info("admin order created")
	return order, nil
}

// validateCreate runs the shared request validations, short-circuiting on the
// first failure with no side effects.
func (e *Engine) validateCreate(s *config.Settings, item market.Item, amount int, unitPrice float64, highlight bool) error {
	if item.Kind == "" || s.ItemDenied(item.Kind) {
		return ErrInvalidItem
	}
	if amount <= 0 || amount > s.MaxOrderQuantity {
		return ErrInvalidQuantity
	}
	if unitPrice < s.MinPriceFor(item.Kind) {
		return ErrPriceTooLow
	}
	if unitPrice > s.MaxPriceFor(item.Kind) {
		return ErrPriceTooHigh
	}
	total := float64(amount) * unitPrice
	if highlight && s.HighlightFeePercent > 0 {
		total += total * s.HighlightFeePercent / 100
	}
	if total < s.MinOrderTotal {
		return ErrPriceTooLow
	}
	return nil
}

// Cancel refunds the undelivered portion to the owner and retires the order.
// Allowed only for the owner or an operator, and only while ACTIVE. An order
// with delivered-but-uncollected units is kept as a COMPLETED tombstone so
// the owner can still collect; it is removed once collection catches up.
func (e *Engine) Cancel(ctx context.Context, orderID string, caller Identity, operator bool) error {
	order, ok := e.store.Get(orderID)
	if !ok {
		return ErrOrderNotFound
	}

	order.Lock()
	if !operator && !order.IsOwner(caller.ID, caller.Name) {
		order.Unlock()
		return ErrNotOwner
	}
	if order.Status != market.StatusActive {
		order.Unlock()
		return ErrOrderNotActive
	}

	refund := float64(order.Remaining()) * order.Price
	if refund > 0 {
		if err := e.ledger.Deposit(ctx, order.OwnerID, refund); err != nil {
			order.Unlock()
			return fmt.Errorf("%w: %v", ErrLedger, err)
		}
	}

	outstanding := order.Uncollected()
	if outstanding > 0 {
		order.Status = market.StatusCompleted
	} else {
		order.Status = market.StatusCancelled
	}
	order.Unlock()

	if outstanding > 0 {
		if err := e.gateway.UpdateOrderStatus(ctx, order.ID, market.StatusCompleted); err != nil {
			e.log.WithError(err).WithField("order", order.ID).Error("persist cancel tombstone")
		}
	} else {
		e.store.Remove(order.ID)
		if err := e.gateway.DeleteOrder(ctx, order.ID); err != nil {
			e.log.WithError(err).WithField("order", order.ID).Error("delete cancelled order")
		}
	}

	e.emit(ctx, events.Event{
		Type:      events.TypeOrderCancelled,
		OrderID:   order.ID,
		Actor:     caller.ID,
		ActorName: caller.Name,
		ItemKind:  order.Item.Kind,
		Total:     refund,
	})
	e.count(ctx, "OrdersCancelled", 1)

	e.log.WithFields(logrus.Fields{
		"order": order.ID, "refund": refund, "outstanding": outstanding,
	}).Info("order cancelled")
	return nil
}

// RemoveAdminOrder deletes an operator order outright (operator action).
func (e *Engine) RemoveAdminOrder(ctx context.Context, orderID string) error {
	if !e.admin.Remove(orderID) {
		return ErrOrderNotFound
	}
	if err := e.gateway.DeleteAdminOrder(ctx, orderID); err != nil {
		e.log.WithError(err).WithField("order", orderID).Error("delete admin order")
	}
	return nil
}

func (e *Engine) persistOrder(ctx context.Context, o *market.Order) {
	if err := e.gateway.PutOrder(ctx, o); err != nil {
		e.log.WithError(err).WithField("order", o.ID).Error("persist order")
	}
}

// emit publishes a lifecycle event, fire-and-forget.
func (e *Engine) emit(ctx context.Context, ev events.Event) {
	if e.events == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.At = e.now()
	if ev.ActorName == "" && ev.Actor != "" && e.resolver != nil {
		if name, _ := e.resolver.Resolve(ev.Actor); name != "" {
			ev.ActorName = name
		}
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.WithError(err).WithField("type", ev.Type).Warn("publish event")
	}
}

func (e *Engine) count(ctx context.Context, name string, value float64) {
	if e.metrics == nil {
		return
	}
	e.metrics.Count(ctx, name, value)
}
