package market

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is the concurrent collection of player orders, keyed by owner with a
// secondary id index. Listings return snapshots, never live views, so callers
// can iterate while the background sweep mutates the store.
type Store struct {
	mu      sync.RWMutex
	byOwner map[string][]*Order
	byID    map[string]*Order
}

// NewStore returns an empty player-order store.
func NewStore() *Store {
	return &Store{
		byOwner: map[string][]*Order{},
		byID:    map[string]*Order{},
	}
}

// NewID returns an order id not currently present in the store.
func (s *Store) NewID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for {
		id := RandomID()
		if _, taken := s.byID[id]; !taken {
			return id
		}
	}
}

// Put inserts an order, replacing any previous order with the same id.
func (s *Store) Put(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byID[o.ID]; ok {
		s.removeLocked(prev)
	}
	s.byID[o.ID] = o
	s.byOwner[o.OwnerID] = append(s.byOwner[o.OwnerID], o)
}

// Remove deletes the order with the given id. Returns false if absent.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return false
	}
	s.removeLocked(o)
	return true
}

func (s *Store) removeLocked(o *Order) {
	delete(s.byID, o.ID)
	owned := s.byOwner[o.OwnerID]
	for i, other := range owned {
		if other.ID == o.ID {
			s.byOwner[o.OwnerID] = append(owned[:i], owned[i+1:]...)
			break
		}
	}
	if len(s.byOwner[o.OwnerID]) == 0 {
		delete(s.byOwner, o.OwnerID)
	}
}

// Get looks an order up by id.
func (s *Store) Get(id string) (*Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[id]
	return o, ok
}

// ListByOwner returns a snapshot of the owner's orders.
func (s *Store) ListByOwner(ownerID string) []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := s.byOwner[ownerID]
	out := make([]*Order, len(owned))
	copy(out, owned)
	return out
}

// ListByOwnerName returns a snapshot of the orders owned by the named player.
// Name lookup is the fallback for identities resolved offline.
func (s *Store) ListByOwnerName(name string) []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Order
	for _, owned := range s.byOwner {
		if len(owned) > 0 && strings.EqualFold(owned[0].OwnerName, name) {
			out = append(out, owned...)
		}
	}
	return out
}

// ListAll returns a snapshot of every order in the store.
func (s *Store) ListAll() []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Order, 0, len(s.byID))
	for _, o := range s.byID {
		out = append(out, o)
	}
	return out
}

// ListActive returns a snapshot of orders whose status is ACTIVE.
func (s *Store) ListActive() []*Order {
	return s.filter(func(o *Order) bool { return o.Status == StatusActive })
}

// ListActiveByItem returns active orders whose item kind contains the given
// fragment, case-insensitively.
func (s *Store) ListActiveByItem(kindFragment string) []*Order {
	frag := strings.ToUpper(kindFragment)
	return s.filter(func(o *Order) bool {
		return o.Status == StatusActive && strings.Contains(strings.ToUpper(o.Item.Kind), frag)
	})
}

// HighlightedFirst returns active orders with highlighted ones sorted ahead,
// newest first within each group.
func (s *Store) HighlightedFirst() []*Order {
	out := s.ListActive()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Highlight != out[j].Highlight {
			return out[i].Highlight
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ActiveCount returns how many active orders the owner currently has.
func (s *Store) ActiveCount(ownerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, o := range s.byOwner[ownerID] {
		o.Lock()
		if o.Status == StatusActive {
			n++
		}
		o.Unlock()
	}
	return n
}

// Fulfillable returns active, unexpired orders a player could deliver into.
func (s *Store) Fulfillable(now time.Time) []*Order {
	return s.filter(func(o *Order) bool { return o.CanBeFulfilled(now) })
}

func (s *Store) filter(keep func(*Order) bool) []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Order
	for _, o := range s.byID {
		o.Lock()
		ok := keep(o)
		o.Unlock()
		if ok {
			out = append(out, o)
		}
	}
	return out
}
