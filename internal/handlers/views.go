package handlers

import (
	"time"

	"github.com/thornegames/orderboard/internal/market"
)

// orderView is the JSON shape of a player order. Built under the order lock
// so counters and status come from a single consistent snapshot.
type orderView struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id"`
	OwnerName    string         `json:"owner_name"`
	ItemKind     string         `json:"item_kind"`
	Enchantments map[string]int `json:"enchantments,omitempty"`
	CustomItemID string         `json:"custom_item_id,omitempty"`
	Amount       int            `json:"amount"`
	UnitPrice    float64        `json:"unit_price"`
	Delivered    int            `json:"delivered"`
	Collected    int            `json:"collected"`
	Remaining    int            `json:"remaining"`
	Uncollected  int            `json:"uncollected"`
	Highlight    bool           `json:"highlight"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

func viewOrder(o *market.Order) orderView {
	o.Lock()
	defer o.Unlock()
	return orderView{
		ID:           o.ID,
		OwnerID:      o.OwnerID,
		OwnerName:    o.OwnerName,
		ItemKind:     o.Item.Kind,
		Enchantments: o.Item.Enchantments,
		CustomItemID: o.Item.CustomItemID,
		Amount:       o.Amount,
		UnitPrice:    o.Price,
		Delivered:    o.Delivered,
		Collected:    o.Collected,
		Remaining:    o.Remaining(),
		Uncollected:  o.Uncollected(),
		Highlight:    o.Highlight,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		ExpiresAt:    o.ExpiresAt,
	}
}

func viewOrders(orders []*market.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, viewOrder(o))
	}
	return out
}

// adminOrderView is the JSON shape of an operator order.
type adminOrderView struct {
	ID               string         `json:"id"`
	CategoryID       string         `json:"category_id,omitempty"`
	DisplayName      string         `json:"display_name"`
	ItemKind         string         `json:"item_kind"`
	Enchantments     map[string]int `json:"enchantments,omitempty"`
	CustomItemID     string         `json:"custom_item_id,omitempty"`
	Amount           int            `json:"amount"`
	UnitPrice        float64        `json:"unit_price"`
	Delivered        int            `json:"delivered"`
	Collected        int            `json:"collected"`
	Remaining        int            `json:"remaining"`
	Highlight        bool           `json:"highlight"`
	Status           string         `json:"status"`
	Repeatable       bool           `json:"repeatable"`
	CooldownSeconds  int64          `json:"cooldown_seconds,omitempty"`
	CooldownEndsAt   *time.Time     `json:"cooldown_ends_at,omitempty"`
	RemainingSeconds int64          `json:"cooldown_remaining_seconds,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	ExpiresAt        time.Time      `json:"expires_at"`
}

func viewAdminOrder(o *market.AdminOrder, now time.Time) adminOrderView {
	o.Lock()
	defer o.Unlock()
	return adminOrderView{
		ID:               o.ID,
		CategoryID:       o.CategoryID,
		DisplayName:      o.DisplayName(),
		ItemKind:         o.Item.Kind,
		Enchantments:     o.Item.Enchantments,
		CustomItemID:     o.Item.CustomItemID,
		Amount:           o.Amount,
		UnitPrice:        o.Price,
		Delivered:        o.Delivered,
		Collected:        o.Collected,
		Remaining:        o.Remaining(),
		Highlight:        o.Highlight,
		Status:           string(o.Status),
		Repeatable:       o.Repeatable,
		CooldownSeconds:  int64(o.CooldownDuration / time.Second),
		CooldownEndsAt:   o.CooldownEndsAt,
		RemainingSeconds: int64(o.RemainingCooldown(now) / time.Second),
		CreatedAt:        o.CreatedAt,
		ExpiresAt:        o.ExpiresAt,
	}
}

func viewAdminOrders(orders []*market.AdminOrder, now time.Time) []adminOrderView {
	out := make([]adminOrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, viewAdminOrder(o, now))
	}
	return out
}

// statsView is the JSON shape of a player's aggregates.
type statsView struct {
	PlayerID       string  `json:"player_id"`
	PlayerName     string  `json:"player_name"`
	DeliveredItems int     `json:"delivered_items"`
	CollectedItems int     `json:"collected_items"`
	TotalOrders    int     `json:"total_orders"`
	TotalEarnings  float64 `json:"total_earnings"`
}

func viewStats(s market.PlayerStats) statsView {
	return statsView(s)
}

// categoryView is the JSON shape of a board category.
type categoryView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayItem string    `json:"display_item,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func viewCategory(c *market.Category) categoryView {
	return categoryView{
		ID:          c.ID,
		Name:        c.Name,
		DisplayItem: c.DisplayItem,
		CreatedAt:   c.CreatedAt,
	}
}
