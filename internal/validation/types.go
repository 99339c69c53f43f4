package validation

// ItemSpec identifies the item an order asks for. Kind is the base item id;
// CustomItemID further narrows it to a plugin-defined custom item.
type ItemSpec struct {
	Kind         string         `json:"kind"`
	Enchantments map[string]int `json:"enchantments,omitempty"`
	CustomItemID string         `json:"custom_item_id,omitempty"`
}

// Actor names the player a request acts on behalf of.
type Actor struct {
	PlayerID   string `json:"player_id" validate:"required"`
	PlayerName string `json:"player_name" validate:"required"`
}

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	Actor          Actor    `json:"actor" validate:"required"`
	Item           ItemSpec `json:"item" validate:"required"`
	Amount         int      `json:"amount" validate:"required,min=1"`
	UnitPrice      float64  `json:"unit_price" validate:"required,gt=0"`
	Highlight      bool     `json:"highlight,omitempty"`
	ExpirationDays int      `json:"expiration_days,omitempty" validate:"omitempty,min=1"`
	// ExpectedTotal is the total the client showed the player; it must match
	// amount * unit_price so a stale UI cannot charge a different price.
	ExpectedTotal float64 `json:"expected_total" validate:"required,gt=0"`
}

// CreateAdminOrderRequest is the payload for POST /admin/orders.
type CreateAdminOrderRequest struct {
	Item            ItemSpec `json:"item" validate:"required"`
	Amount          int      `json:"amount" validate:"required,min=1"`
	UnitPrice       float64  `json:"unit_price" validate:"required,gt=0"`
	CategoryID      string   `json:"category_id,omitempty"`
	CustomName      string   `json:"custom_name,omitempty"`
	Repeatable      bool     `json:"repeatable,omitempty"`
	CooldownSeconds int64    `json:"cooldown_seconds,omitempty" validate:"omitempty,min=0"`
	ExpirationDays  int      `json:"expiration_days,omitempty" validate:"omitempty,min=1"`
	Highlight       bool     `json:"highlight,omitempty"`
}

// DeliverRequest is the payload for POST /orders/:id/deliver.
type DeliverRequest struct {
	Actor Actor    `json:"actor" validate:"required"`
	Item  ItemSpec `json:"item" validate:"required"`
	Units int      `json:"units" validate:"required,min=1"`
}

// CollectRequest is the payload for POST /orders/:id/collect.
type CollectRequest struct {
	Actor Actor `json:"actor" validate:"required"`
	// Capacity is how many items the collector's inventory can still hold.
	Capacity int  `json:"capacity" validate:"required,min=1"`
	Operator bool `json:"operator,omitempty"`
}

// CancelRequest is the payload for POST /orders/:id/cancel.
type CancelRequest struct {
	Actor    Actor `json:"actor" validate:"required"`
	Operator bool  `json:"operator,omitempty"`
}

// CreateCategoryRequest is the payload for POST /categories.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	DisplayItem string `json:"display_item,omitempty"`
}

// RenameCategoryRequest is the payload for PUT /categories/:id.
type RenameCategoryRequest struct {
	Name string `json:"name" validate:"required"`
}
