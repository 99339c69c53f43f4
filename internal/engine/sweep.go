package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/events"
	"github.com/thornegames/orderboard/internal/market"
)

// SweepExpired walks the player-order store and retires orders past their
// expiration date: the undelivered portion is refunded to the requester and
// the order completes. Fully collected orders are archived and removed;
// orders with outstanding delivered-but-uncollected units are kept as
// COMPLETED tombstones until the owner collects (see Collect).
func (e *Engine) SweepExpired(ctx context.Context) {
	now := e.now()
	for _, order := range e.store.ListAll() {
		order.Lock()
		if order.Status != market.StatusActive || !order.IsExpired(now) {
			order.Unlock()
			continue
		}

		refund := float64(order.Remaining()) * order.Price
		if refund > 0 {
			if err := e.ledger.Deposit(ctx, order.OwnerID, refund); err != nil {
				// Leave the order ACTIVE; the refund is retried next sweep.
				order.Unlock()
				e.log.WithError(err).WithField("order", order.ID).Error("refund expired order")
				continue
			}
		}

		order.Status = market.StatusCompleted
		archived := order.Uncollected() == 0
		if archived {
			order.Status = market.StatusArchived
		}
		order.Unlock()

		if archived {
			e.store.Remove(order.ID)
			if err := e.gateway.DeleteOrder(ctx, order.ID); err != nil {
				e.log.WithError(err).WithField("order", order.ID).Error("delete expired order")
			}
		} else if err := e.gateway.UpdateOrderStatus(ctx, order.ID, market.StatusCompleted); err != nil {
			e.log.WithError(err).WithField("order", order.ID).Error("persist expired order status")
		}

		e.emit(ctx, events.Event{
			Type:      events.TypeOrderExpired,
			OrderID:   order.ID,
			Actor:     order.OwnerID,
			ActorName: order.OwnerName,
			ItemKind:  order.Item.Kind,
			Total:     refund,
		})
		if archived {
			e.emit(ctx, events.Event{
				Type:     events.TypeOrderArchived,
				OrderID:  order.ID,
				ItemKind: order.Item.Kind,
			})
		}
		e.count(ctx, "OrdersExpired", 1)

		e.log.WithFields(logrus.Fields{
			"order": order.ID, "refund": refund, "archived": archived,
		}).Info("order expired")
	}
}

// SweepAdminExpired completes expired, non-repeatable operator orders.
// Operator orders are not purchased, so there is no refund.
func (e *Engine) SweepAdminExpired(ctx context.Context) {
	now := e.now()
	for _, order := range e.admin.ListAll() {
		order.Lock()
		if order.Status != market.StatusActive || !order.IsExpired(now) || order.Repeatable {
			order.Unlock()
			continue
		}
		order.Complete(now)
		order.Unlock()

		if err := e.gateway.UpdateAdminOrderState(ctx, order); err != nil {
			e.log.WithError(err).WithField("order", order.ID).Error("persist admin order state")
		}
		e.emit(ctx, events.Event{
			Type:     events.TypeOrderExpired,
			OrderID:  order.ID,
			Admin:    true,
			ItemKind: order.Item.Kind,
		})
		e.log.WithField("order", order.ID).Info("admin order expired")
	}
}

// ResumeCooldowns reopens repeatable admin orders whose cooldown has elapsed
// with a clean slate. The per-order lock serializes reopening against any
// in-flight delivery; orders not in COOLDOWN are untouched, so running the
// sweep twice is a no-op.
func (e *Engine) ResumeCooldowns(ctx context.Context) {
	now := e.now()
	for _, order := range e.admin.ListResumable(now) {
		order.Lock()
		if !order.ShouldResume(now) {
			order.Unlock()
			continue
		}
		order.ResumeAfterCooldown()
		order.Unlock()

		if err := e.gateway.UpdateAdminOrderState(ctx, order); err != nil {
			e.log.WithError(err).WithField("order", order.ID).Error("persist admin order state")
		}
		e.emit(ctx, events.Event{
			Type:     events.TypeOrderResumed,
			OrderID:  order.ID,
			Admin:    true,
			ItemKind: order.Item.Kind,
		})
		e.log.WithField("order", order.ID).Info("admin order resumed after cooldown")
	}
}
