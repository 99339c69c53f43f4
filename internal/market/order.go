package market

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Item describes what an order asks for: a native item kind, an optional
// enchantment payload, and an optional external-catalog id for non-native items.
type Item struct {
	Kind         string         `json:"kind"`
	Enchantments map[string]int `json:"enchantments,omitempty"`
	CustomItemID string         `json:"custom_item_id,omitempty"`
}

// IsCustom reports whether the item is resolved through an external catalog.
func (i Item) IsCustom() bool {
	return i.CustomItemID != ""
}

// Matches reports whether a supplied item satisfies the requested one.
// Kind and catalog id must match exactly, and the requested enchantments
// must all be present at the requested level.
func (i Item) Matches(supplied Item) bool {
	if !strings.EqualFold(i.Kind, supplied.Kind) {
		return false
	}
	if i.CustomItemID != supplied.CustomItemID {
		return false
	}
	for ench, level := range i.Enchantments {
		if supplied.Enchantments[ench] != level {
			return false
		}
	}
	return true
}

// Base holds the fields and invariants shared by player and admin orders.
// Counter invariant: 0 <= Collected <= Delivered <= Amount.
//
// All read-then-write access to Delivered, Collected and Status must happen
// with the order's lock held; concurrent deliveries to the same order
// serialize on it while deliveries to different orders proceed independently.
type Base struct {
	mu sync.Mutex

	ID        string
	Item      Item
	Amount    int
	Price     float64
	Delivered int
	Collected int
	CreatedAt time.Time
	ExpiresAt time.Time
	Highlight bool
	Status    OrderStatus
}

// Lock acquires the per-order exclusion region.
func (b *Base) Lock() { b.mu.Lock() }

// Unlock releases the per-order exclusion region.
func (b *Base) Unlock() { b.mu.Unlock() }

// Remaining is the undelivered portion of the order.
func (b *Base) Remaining() int {
	return b.Amount - b.Delivered
}

// Uncollected is the delivered-but-not-yet-withdrawn portion.
func (b *Base) Uncollected() int {
	return b.Delivered - b.Collected
}

// AddDelivered increases the delivered counter, clamped at Amount.
func (b *Base) AddDelivered(units int) {
	b.Delivered += units
	if b.Delivered > b.Amount {
		b.Delivered = b.Amount
	}
}

// AddCollected increases the collected counter, clamped at Delivered.
func (b *Base) AddCollected(units int) {
	b.Collected += units
	if b.Collected > b.Delivered {
		b.Collected = b.Delivered
	}
}

// RemoveDelivered decreases the delivered counter, clamped at zero.
func (b *Base) RemoveDelivered(units int) {
	b.Delivered -= units
	if b.Delivered < 0 {
		b.Delivered = 0
	}
}

// IsExpired reports whether the order's expiration date has passed.
func (b *Base) IsExpired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

// RemainingTime is the time left until expiration (negative once expired).
func (b *Base) RemainingTime(now time.Time) time.Duration {
	return b.ExpiresAt.Sub(now)
}

// Order is a player-created request to buy a quantity of an item at a price.
type Order struct {
	Base

	OwnerID   string
	OwnerName string
}

// IsOwner reports whether the given identity owns this order. The name
// comparison is a fallback for identities resolved offline.
func (o *Order) IsOwner(id, name string) bool {
	return o.OwnerID == id || strings.EqualFold(o.OwnerName, name)
}

// DisplayName is the name shown for this order's requester.
func (o *Order) DisplayName() string { return o.OwnerName }

// CanBeFulfilled reports whether a fulfiller may deliver into this order.
func (o *Order) CanBeFulfilled(now time.Time) bool {
	return o.Status == StatusActive && !o.IsExpired(now)
}

const idDigits = "0123456789"

// RandomID returns a short random numeric order id. Uniqueness is the
// store's responsibility (it retries on collision).
func RandomID() string {
	var sb strings.Builder
	for range 6 {
		sb.WriteByte(idDigits[rand.IntN(len(idDigits))])
	}
	return sb.String()
}
