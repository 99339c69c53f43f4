package market

import "time"

// PlayerStats is the per-identity aggregate mutated by the lifecycle engine
// on every creation, delivery and collection event.
type PlayerStats struct {
	PlayerID       string
	PlayerName     string
	DeliveredItems int
	CollectedItems int
	TotalOrders    int
	TotalEarnings  float64
}

// Category groups operator orders under a named heading.
type Category struct {
	ID          string
	Name        string
	DisplayItem string
	CreatedAt   time.Time
}
