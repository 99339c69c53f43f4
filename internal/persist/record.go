package persist

import (
	"time"

	"github.com/thornegames/orderboard/internal/market"
)

// orderRecord is the DynamoDB shape of a player order. Counters and status
// are snapshots; the in-memory store remains authoritative while running.
type orderRecord struct {
	OrderID      string         `dynamodbav:"order_id"`
	OwnerID      string         `dynamodbav:"owner_id"`
	OwnerName    string         `dynamodbav:"owner_name"`
	ItemKind     string         `dynamodbav:"item_kind"`
	Enchantments map[string]int `dynamodbav:"enchantments,omitempty"`
	CustomItemID string         `dynamodbav:"custom_item_id,omitempty"`
	Amount       int            `dynamodbav:"amount"`
	Price        float64        `dynamodbav:"price"`
	Delivered    int            `dynamodbav:"delivered"`
	Collected    int            `dynamodbav:"collected"`
	Highlight    bool           `dynamodbav:"highlight"`
	Status       string         `dynamodbav:"status"`
	CreatedAt    time.Time      `dynamodbav:"created_at"`
	ExpiresAt    time.Time      `dynamodbav:"expires_at"`
	UpdatedAt    time.Time      `dynamodbav:"updated_at"`
}

func recordFromOrder(o *market.Order, now time.Time) orderRecord {
	o.Lock()
	defer o.Unlock()
	return orderRecord{
		OrderID:      o.ID,
		OwnerID:      o.OwnerID,
		OwnerName:    o.OwnerName,
		ItemKind:     o.Item.Kind,
		Enchantments: o.Item.Enchantments,
		CustomItemID: o.Item.CustomItemID,
		Amount:       o.Amount,
		Price:        o.Price,
		Delivered:    o.Delivered,
		Collected:    o.Collected,
		Highlight:    o.Highlight,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		ExpiresAt:    o.ExpiresAt,
		UpdatedAt:    now,
	}
}

func (r orderRecord) toOrder() *market.Order {
	o := &market.Order{
		OwnerID:   r.OwnerID,
		OwnerName: r.OwnerName,
	}
	o.ID = r.OrderID
	o.Item = market.Item{
		Kind:         r.ItemKind,
		Enchantments: r.Enchantments,
		CustomItemID: r.CustomItemID,
	}
	o.Amount = r.Amount
	o.Price = r.Price
	o.Delivered = r.Delivered
	o.Collected = r.Collected
	o.Highlight = r.Highlight
	o.Status = market.OrderStatus(r.Status)
	o.CreatedAt = r.CreatedAt
	o.ExpiresAt = r.ExpiresAt
	return o
}

// adminOrderRecord is the DynamoDB shape of an admin order. The cooldown
// duration is stored in whole seconds.
type adminOrderRecord struct {
	OrderID         string         `dynamodbav:"order_id"`
	CategoryID      string         `dynamodbav:"category_id,omitempty"`
	CustomName      string         `dynamodbav:"custom_name,omitempty"`
	ItemKind        string         `dynamodbav:"item_kind"`
	Enchantments    map[string]int `dynamodbav:"enchantments,omitempty"`
	CustomItemID    string         `dynamodbav:"custom_item_id,omitempty"`
	Amount          int            `dynamodbav:"amount"`
	Price           float64        `dynamodbav:"price"`
	Delivered       int            `dynamodbav:"delivered"`
	Collected       int            `dynamodbav:"collected"`
	Highlight       bool           `dynamodbav:"highlight"`
	Status          string         `dynamodbav:"status"`
	Repeatable      bool           `dynamodbav:"repeatable"`
	CooldownSeconds int64          `dynamodbav:"cooldown_seconds"`
	CooldownEndsAt  *time.Time     `dynamodbav:"cooldown_ends_at,omitempty"`
	LastCompletedAt *time.Time     `dynamodbav:"last_completed_at,omitempty"`
	CreatedAt       time.Time      `dynamodbav:"created_at"`
	ExpiresAt       time.Time      `dynamodbav:"expires_at"`
	UpdatedAt       time.Time      `dynamodbav:"updated_at"`
}

func recordFromAdminOrder(o *market.AdminOrder, now time.Time) adminOrderRecord {
	o.Lock()
	defer o.Unlock()
	return adminOrderRecord{
		OrderID:         o.ID,
		CategoryID:      o.CategoryID,
		CustomName:      o.CustomName,
		ItemKind:        o.Item.Kind,
		Enchantments:    o.Item.Enchantments,
		CustomItemID:    o.Item.CustomItemID,
		Amount:          o.Amount,
		Price:           o.Price,
		Delivered:       o.Delivered,
		Collected:       o.Collected,
		Highlight:       o.Highlight,
		Status:          string(o.Status),
		Repeatable:      o.Repeatable,
		CooldownSeconds: int64(o.CooldownDuration / time.Second),
		CooldownEndsAt:  o.CooldownEndsAt,
		LastCompletedAt: o.LastCompletedAt,
		CreatedAt:       o.CreatedAt,
		ExpiresAt:       o.ExpiresAt,
		UpdatedAt:       now,
	}
}

func (r adminOrderRecord) toAdminOrder() *market.AdminOrder {
	o := &market.AdminOrder{
		CategoryID:       r.CategoryID,
		CustomName:       r.CustomName,
		Repeatable:       r.Repeatable,
		CooldownDuration: time.Duration(r.CooldownSeconds) * time.Second,
		CooldownEndsAt:   r.CooldownEndsAt,
		LastCompletedAt:  r.LastCompletedAt,
	}
	o.ID = r.OrderID
	o.Item = market.Item{
		Kind:         r.ItemKind,
		Enchantments: r.Enchantments,
		CustomItemID: r.CustomItemID,
	}
	o.Amount = r.Amount
	o.Price = r.Price
	o.Delivered = r.Delivered
	o.Collected = r.Collected
	o.Highlight = r.Highlight
	o.Status = market.OrderStatus(r.Status)
	o.CreatedAt = r.CreatedAt
	o.ExpiresAt = r.ExpiresAt
	return o
}

// statsRecord is the DynamoDB shape of a player's aggregate statistics.
type statsRecord struct {
	PlayerID       string  `dynamodbav:"player_id"`
	PlayerName     string  `dynamodbav:"player_name"`
	DeliveredItems int     `dynamodbav:"delivered_items"`
	CollectedItems int     `dynamodbav:"collected_items"`
	TotalOrders    int     `dynamodbav:"total_orders"`
	TotalEarnings  float64 `dynamodbav:"total_earnings"`
}

func recordFromStats(s *market.PlayerStats) statsRecord {
	return statsRecord(*s)
}

func (r statsRecord) toStats() *market.PlayerStats {
	s := market.PlayerStats(r)
	return &s
}

// categoryRecord is the DynamoDB shape of a board category.
type categoryRecord struct {
	CategoryID  string    `dynamodbav:"category_id"`
	Name        string    `dynamodbav:"name"`
	DisplayItem string    `dynamodbav:"display_item,omitempty"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
}

func recordFromCategory(c *market.Category) categoryRecord {
	return categoryRecord{
		CategoryID:  c.ID,
		Name:        c.Name,
		DisplayItem: c.DisplayItem,
		CreatedAt:   c.CreatedAt,
	}
}

func (r categoryRecord) toCategory() *market.Category {
	return &market.Category{
		ID:          r.CategoryID,
		Name:        r.Name,
		DisplayItem: r.DisplayItem,
		CreatedAt:   r.CreatedAt,
	}
}
