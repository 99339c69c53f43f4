package config

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds the mutable marketplace configuration: pricing bounds,
// limits and fee percentages used by order validation, plus task cadences
// and collaborator endpoints. Validation reads it through an immutable
// snapshot (see Holder), never through live globals.
type Settings struct {
	MinPricePerItem   float64            `split_words:"true" default:"0.01"`
	MaxPricePerItem   float64            `split_words:"true" default:"1000"`
	MinPriceOverrides map[string]float64 `split_words:"true"`
	MaxPriceOverrides map[string]float64 `split_words:"true"`
	MinOrderTotal     float64            `split_words:"true" default:"1"`

	HighlightFeePercent float64 `split_words:"true" default:"2.5"`
	MaxOrderQuantity    int     `split_words:"true" default:"1000000"`
	OrderLimit          int     `split_words:"true" default:"5"`
	DeniedItems         []string `split_words:"true"`
	ExpirationDays      int     `split_words:"true" default:"7"`

	BroadcastEnabled  bool    `split_words:"true" default:"true"`
	BroadcastMinTotal float64 `split_words:"true" default:"1000"`

	SweepInterval         time.Duration `split_words:"true" default:"10m"`
	CooldownCheckInterval time.Duration `split_words:"true" default:"1m"`
	AutoSaveInterval      time.Duration `split_words:"true" default:"5m"`

	OrdersTable      string `split_words:"true" default:"orders"`
	AdminOrdersTable string `split_words:"true" default:"admin_orders"`
	CategoriesTable  string `split_words:"true" default:"order_categories"`
	StatsTable       string `split_words:"true" default:"player_stats"`
	CreateKeysTable  string `split_words:"true" default:"order_create_keys"`
	EventsQueueURL   string `split_words:"true"`
	MetricsNamespace string `split_words:"true" default:"Orderboard"`

	// LedgerBaseURL points at the game economy service. Empty means the
	// in-process ledger, which only makes sense for local development.
	LedgerBaseURL string        `split_words:"true"`
	LedgerTimeout time.Duration `split_words:"true" default:"5s"`

	// NotifyWebhookURL is where the notifier forwards broadcast-worthy
	// events, typically the game server's chat bridge.
	NotifyWebhookURL string        `split_words:"true"`
	NotifyPollWait   time.Duration `split_words:"true" default:"20s"`

	ListenAddr string `split_words:"true" default:":8080"`
}

// Load parses Settings from ORDERBOARD_* environment variables.
func Load() (*Settings, error) {
	var s Settings
	if err := envconfig.Process("orderboard", &s); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &s, nil
}

// MinPriceFor returns the minimum unit price for an item kind, honoring
// per-item overrides.
func (s *Settings) MinPriceFor(kind string) float64 {
	if v, ok := s.MinPriceOverrides[strings.ToUpper(kind)]; ok {
		return v
	}
	return s.MinPricePerItem
}

// MaxPriceFor returns the maximum unit price for an item kind, honoring
// per-item overrides.
func (s *Settings) MaxPriceFor(kind string) float64 {
	if v, ok := s.MaxPriceOverrides[strings.ToUpper(kind)]; ok {
		return v
	}
	return s.MaxPricePerItem
}

// ItemDenied reports whether the item kind is on the configured denylist.
func (s *Settings) ItemDenied(kind string) bool {
	for _, denied := range s.DeniedItems {
		if strings.EqualFold(denied, kind) {
			return true
		}
	}
	return false
}

// Holder hands out immutable Settings snapshots and swaps them atomically on
// reload, so validation never observes a half-updated configuration.
type Holder struct {
	current atomic.Pointer[Settings]
}

// NewHolder returns a Holder seeded with the given snapshot.
func NewHolder(s *Settings) *Holder {
	h := &Holder{}
	h.current.Store(s)
	return h
}

// Snapshot returns the current immutable settings. Callers must not mutate it.
func (h *Holder) Snapshot() *Settings {
	return h.current.Load()
}

// Swap replaces the current settings with a new snapshot.
func (h *Holder) Swap(s *Settings) {
	h.current.Store(s)
}
