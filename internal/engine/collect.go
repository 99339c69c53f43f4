package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/events"
	"github.com/thornegames/orderboard/internal/market"
)

// CollectResult reports how many delivered units were withdrawn and whether
// the order was archived as a consequence.
type CollectResult struct {
	Collected int
	Archived  bool
}

// Collect withdraws delivered units for the order's owner. capacity is how
// many units the destination can currently hold; zero capacity rejects with
// ErrInventoryFull so the caller retries later, and nothing is destroyed.
// When a completed order has been fully collected it transitions to ARCHIVED
// and is removed from the store and from durable storage.
func (e *Engine) Collect(ctx context.Context, orderID string, collector Identity, capacity int, operator bool) (CollectResult, error) {
	order, ok := e.store.Get(orderID)
	if !ok {
		return CollectResult{}, ErrOrderNotFound
	}
	if !operator && !order.IsOwner(collector.ID, collector.Name) {
		return CollectResult{}, ErrNotOwner
	}
	if capacity <= 0 {
		return CollectResult{}, ErrInventoryFull
	}

	order.Lock()
	take := min(order.Uncollected(), capacity)
	if take > 0 {
		order.AddCollected(take)
		e.stats.AddCollectedItems(collector, take)
	}
	archived := order.Status == market.StatusCompleted && order.Collected == order.Delivered
	if archived {
		order.Status = market.StatusArchived
	}
	order.Unlock()

	res := CollectResult{Collected: take, Archived: archived}
	if take > 0 {
		e.emit(ctx, events.Event{
			Type:      events.TypeOrderCollected,
			OrderID:   order.ID,
			Actor:     collector.ID,
			ActorName: collector.Name,
			ItemKind:  order.Item.Kind,
			Units:     take,
		})
		e.count(ctx, "UnitsCollected", float64(take))
	}

	if archived {
		// Archival is the only point a player order leaves memory and storage.
		e.store.Remove(order.ID)
		if err := e.gateway.DeleteOrder(ctx, order.ID); err != nil {
			e.log.WithError(err).WithField("order", order.ID).Error("delete archived order")
		}
		e.emit(ctx, events.Event{
			Type:     events.TypeOrderArchived,
			OrderID:  order.ID,
			ItemKind: order.Item.Kind,
		})
		e.log.WithFields(logrus.Fields{"order": order.ID}).Info("order archived")
	}

	return res, nil
}
