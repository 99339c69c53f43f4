// Package stats aggregates per-player statistics: orders created, items
// delivered and collected, and total earnings.
package stats

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/engine"
	"github.com/thornegames/orderboard/internal/market"
)

// Gateway is the durable storage for player statistics.
type Gateway interface {
	LoadStats(ctx context.Context) ([]*market.PlayerStats, error)
	SaveStats(ctx context.Context, stats []*market.PlayerStats) error
}

// Manager keeps statistics in memory, created lazily on first reference,
// and implements the engine's Stats sink.
type Manager struct {
	mu      sync.Mutex
	byID    map[string]*market.PlayerStats
	gateway Gateway
	log     *logrus.Logger
}

// NewManager returns an empty Manager backed by the given gateway.
func NewManager(gateway Gateway, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	return &Manager{
		byID:    map[string]*market.PlayerStats{},
		gateway: gateway,
		log:     log,
	}
}

// Load replaces the in-memory aggregates with the stored ones.
func (m *Manager) Load(ctx context.Context) error {
	stored, err := m.gateway.LoadStats(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID = make(map[string]*market.PlayerStats, len(stored))
	for _, s := range stored {
		m.byID[s.PlayerID] = s
	}
	return nil
}

// Save writes every aggregate to durable storage.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	out := make([]*market.PlayerStats, 0, len(m.byID))
	for _, s := range m.byID {
		copied := *s
		out = append(out, &copied)
	}
	m.mu.Unlock()

	if err := m.gateway.SaveStats(ctx, out); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// Get returns the identity's aggregate as a copy, creating it if absent.
func (m *Manager) Get(id engine.Identity) market.PlayerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.getLocked(id)
}

// GetByName returns the aggregate for a player name, for identities resolved
// offline. The bool reports whether one exists.
func (m *Manager) GetByName(name string) (market.PlayerStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if strings.EqualFold(s.PlayerName, name) {
			return *s, true
		}
	}
	return market.PlayerStats{}, false
}

// Resolve implements engine.Resolver with the last name seen for the player.
// The service has no presence information, so online is always false.
func (m *Manager) Resolve(identity string) (name string, online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[identity]; ok {
		return s.PlayerName, false
	}
	return "", false
}

func (m *Manager) getLocked(id engine.Identity) *market.PlayerStats {
	s, ok := m.byID[id.ID]
	if !ok {
		s = &market.PlayerStats{PlayerID: id.ID, PlayerName: id.Name}
		m.byID[id.ID] = s
	}
	if s.PlayerName == "" {
		s.PlayerName = id.Name
	}
	return s
}

// AddTotalOrders implements engine.Stats.
func (m *Manager) AddTotalOrders(id engine.Identity, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLocked(id).TotalOrders += n
}

// AddDeliveredItems implements engine.Stats.
func (m *Manager) AddDeliveredItems(id engine.Identity, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLocked(id).DeliveredItems += n
}

// AddCollectedItems implements engine.Stats.
func (m *Manager) AddCollectedItems(id engine.Identity, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLocked(id).CollectedItems += n
}

// AddTotalEarnings implements engine.Stats.
func (m *Manager) AddTotalEarnings(id engine.Identity, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLocked(id).TotalEarnings += amount
}
