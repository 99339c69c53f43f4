package market

import (
	"sync"
	"time"
)

// AdminStore is the concurrent collection of operator orders, keyed by id.
// Listings are snapshots, same as Store.
type AdminStore struct {
	mu     sync.RWMutex
	orders map[string]*AdminOrder
}

// NewAdminStore returns an empty operator-order store.
func NewAdminStore() *AdminStore {
	return &AdminStore{orders: map[string]*AdminOrder{}}
}

// NewID returns an order id not currently present in the store.
func (s *AdminStore) NewID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for {
		id := RandomID()
		if _, taken := s.orders[id]; !taken {
			return id
		}
	}
}

// Put inserts or replaces an admin order.
func (s *AdminStore) Put(o *AdminOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// Remove deletes the order with the given id. Returns false if absent.
func (s *AdminStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return false
	}
	delete(s.orders, id)
	return true
}

// Get looks an admin order up by id.
func (s *AdminStore) Get(id string) (*AdminOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// ListAll returns a snapshot of every admin order.
func (s *AdminStore) ListAll() []*AdminOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*AdminOrder, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

// ListActive returns admin orders that can currently be fulfilled.
func (s *AdminStore) ListActive(now time.Time) []*AdminOrder {
	return s.filter(func(o *AdminOrder) bool { return o.CanBeFulfilled(now) })
}

// ListByCategory returns admin orders assigned to the given category.
func (s *AdminStore) ListByCategory(categoryID string) []*AdminOrder {
	return s.filter(func(o *AdminOrder) bool { return o.CategoryID == categoryID })
}

// ListInCooldown returns admin orders currently waiting out a cooldown.
func (s *AdminStore) ListInCooldown(now time.Time) []*AdminOrder {
	return s.filter(func(o *AdminOrder) bool { return o.InCooldown(now) })
}

// ListResumable returns admin orders whose cooldown has elapsed and which are
// due to reopen.
func (s *AdminStore) ListResumable(now time.Time) []*AdminOrder {
	return s.filter(func(o *AdminOrder) bool { return o.ShouldResume(now) })
}

func (s *AdminStore) filter(keep func(*AdminOrder) bool) []*AdminOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*AdminOrder
	for _, o := range s.orders {
		o.Lock()
		ok := keep(o)
		o.Unlock()
		if ok {
			out = append(out, o)
		}
	}
	return out
}
