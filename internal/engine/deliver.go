package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/events"
	"github.com/thornegames/orderboard/internal/market"
)

// DeliveryBatch is a batch of items a fulfiller supplies toward an order.
type DeliveryBatch struct {
	Item  market.Item
	Units int
}

// DeliveryResult reports what happened to the supplied units. Returned units
// were not consumed and must go back to the fulfiller; they are never
// destroyed.
type DeliveryResult struct {
	Accepted  int
	Returned  int
	Earnings  float64
	Completed bool
}

// Deliver supplies units toward an order. Deliveries to the same order
// serialize on the order's lock: whichever fulfiller acquires it first wins
// the remaining capacity, and later excess is returned.
func (e *Engine) Deliver(ctx context.Context, orderID string, fulfiller Identity, batch DeliveryBatch) (DeliveryResult, error) {
	if batch.Units <= 0 {
		return DeliveryResult{}, ErrInvalidQuantity
	}
	if order, ok := e.store.Get(orderID); ok {
		return e.deliverPlayer(ctx, order, fulfiller, batch)
	}
	if order, ok := e.admin.Get(orderID); ok {
		return e.deliverAdmin(ctx, order, fulfiller, batch)
	}
	return DeliveryResult{Returned: batch.Units}, ErrOrderNotFound
}

func (e *Engine) deliverPlayer(ctx context.Context, order *market.Order, fulfiller Identity, batch DeliveryBatch) (DeliveryResult, error) {
	if !order.Item.Matches(batch.Item) {
		return DeliveryResult{Returned: batch.Units}, ErrWrongItem
	}

	order.Lock()
	if order.Status != market.StatusActive {
		order.Unlock()
		return DeliveryResult{Returned: batch.Units}, ErrOrderNotActive
	}

	res, err := e.applyDelivery(ctx, &order.Base, fulfiller, batch.Units)
	if err != nil {
		order.Unlock()
		return res, err
	}
	if res.Completed {
		order.Status = market.StatusCompleted
	}
	order.Unlock()

	e.afterDelivery(ctx, &order.Base, fulfiller, res, false)
	return res, nil
}

func (e *Engine) deliverAdmin(ctx context.Context, order *market.AdminOrder, fulfiller Identity, batch DeliveryBatch) (DeliveryResult, error) {
	if !order.Item.Matches(batch.Item) {
		return DeliveryResult{Returned: batch.Units}, ErrWrongItem
	}

	order.Lock()
	if !order.CanBeFulfilled(e.now()) {
		order.Unlock()
		return DeliveryResult{Returned: batch.Units}, ErrOrderNotActive
	}

	res, err := e.applyDelivery(ctx, &order.Base, fulfiller, batch.Units)
	if err != nil {
		order.Unlock()
		return res, err
	}
	if res.Completed {
		// Repeatable orders go into cooldown instead of a bare COMPLETED.
		order.Complete(e.now())
	}
	order.Unlock()

	if res.Completed {
		if err := e.gateway.UpdateAdminOrderState(ctx, order); err != nil {
			e.log.WithError(err).WithField("order", order.ID).Error("persist admin order state")
		}
	}
	e.afterDelivery(ctx, &order.Base, fulfiller, res, true)
	return res, nil
}

// applyDelivery runs the guarded check-then-act: compute the acceptable
// amount, credit the fulfiller, then apply the counter update. The caller
// must hold the order lock. A failed ledger credit leaves the order
// untouched and returns every supplied unit.
func (e *Engine) applyDelivery(ctx context.Context, b *market.Base, fulfiller Identity, units int) (DeliveryResult, error) {
	accepted := min(units, b.Remaining())
	res := DeliveryResult{
		Accepted: accepted,
		Returned: units - accepted,
	}
	if accepted == 0 {
		return res, nil
	}

	res.Earnings = float64(accepted) * b.Price
	if err := e.ledger.Deposit(ctx, fulfiller.ID, res.Earnings); err != nil {
		return DeliveryResult{Returned: units}, fmt.Errorf("%w: %v", ErrLedger, err)
	}

	b.AddDelivered(accepted)
	res.Completed = b.Remaining() == 0

	e.stats.AddDeliveredItems(fulfiller, accepted)
	e.stats.AddTotalEarnings(fulfiller, res.Earnings)
	return res, nil
}

// afterDelivery handles persistence and events outside the order lock.
func (e *Engine) afterDelivery(ctx context.Context, b *market.Base, fulfiller Identity, res DeliveryResult, admin bool) {
	if res.Accepted == 0 {
		return
	}

	if res.Completed && !admin {
		// Persist the status change immediately so completion survives a
		// crash before the next autosave.
		if err := e.gateway.UpdateOrderStatus(ctx, b.ID, market.StatusCompleted); err != nil {
			e.log.WithError(err).WithField("order", b.ID).Error("persist order status")
		}
	}

	e.emit(ctx, events.Event{
		Type:      events.TypeOrderDelivered,
		OrderID:   b.ID,
		Admin:     admin,
		Actor:     fulfiller.ID,
		ActorName: fulfiller.Name,
		ItemKind:  b.Item.Kind,
		Units:     res.Accepted,
		Amount:    res.Earnings,
	})
	e.count(ctx, "UnitsDelivered", float64(res.Accepted))

	if res.Completed {
		e.emit(ctx, events.Event{
			Type:     events.TypeOrderCompleted,
			OrderID:  b.ID,
			Admin:    admin,
			ItemKind: b.Item.Kind,
		})
		e.count(ctx, "OrdersCompleted", 1)
	}

	e.log.WithFields(logrus.Fields{
		"order": b.ID, "fulfiller": fulfiller.Name,
		"accepted": res.Accepted, "returned": res.Returned, "earnings": res.Earnings,
	}).Info("delivery")
}
