// Package category manages the grouping of admin orders into named
// categories shown on the board.
package category

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/thornegames/orderboard/internal/market"
)

var (
	// ErrCategoryNotFound is returned when no category has the given id.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryExists is returned when creating a category whose name
	// is already taken.
	ErrCategoryExists = errors.New("category already exists")
	// ErrCategoryInUse is returned when deleting a category that still
	// has admin orders assigned to it.
	ErrCategoryInUse = errors.New("category has assigned orders")
)

// Gateway is the durable storage for categories.
type Gateway interface {
	LoadCategories(ctx context.Context) ([]*market.Category, error)
	PutCategory(ctx context.Context, c *market.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// Index holds the categories in memory and resolves which admin orders
// belong to each, backed by the admin order store.
type Index struct {
	mu      sync.RWMutex
	byID    map[string]*market.Category
	admin   *market.AdminStore
	gateway Gateway
	nowFunc func() time.Time
}

// NewIndex returns an empty Index over the given admin store.
func NewIndex(admin *market.AdminStore, gateway Gateway) *Index {
	return &Index{
		byID:    map[string]*market.Category{},
		admin:   admin,
		gateway: gateway,
		nowFunc: time.Now,
	}
}

// Load replaces the in-memory categories with the stored ones.
func (x *Index) Load(ctx context.Context) error {
	stored, err := x.gateway.LoadCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byID = make(map[string]*market.Category, len(stored))
	for _, c := range stored {
		x.byID[c.ID] = c
	}
	return nil
}

// Create adds a new category. Names are unique, case-insensitively.
func (x *Index) Create(ctx context.Context, name, displayItem string) (*market.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("category name must not be empty")
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range x.byID {
		if strings.EqualFold(c.Name, name) {
			return nil, fmt.Errorf("%w: %q", ErrCategoryExists, name)
		}
	}

	c := &market.Category{
		ID:          newID(name),
		Name:        name,
		DisplayItem: displayItem,
		CreatedAt:   x.nowFunc(),
	}
	if err := x.gateway.PutCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("put category: %w", err)
	}
	x.byID[c.ID] = c
	return c, nil
}

// Rename changes a category's display name. The slug id stays stable so
// admin order references survive the rename.
func (x *Index) Rename(ctx context.Context, id, name string) (*market.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("category name must not be empty")
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	c, ok := x.byID[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	for _, other := range x.byID {
		if other.ID != id && strings.EqualFold(other.Name, name) {
			return nil, fmt.Errorf("%w: %q", ErrCategoryExists, name)
		}
	}

	renamed := *c
	renamed.Name = name
	if err := x.gateway.PutCategory(ctx, &renamed); err != nil {
		return nil, fmt.Errorf("put category: %w", err)
	}
	x.byID[id] = &renamed
	copied := renamed
	return &copied, nil
}

// Delete removes a category. It fails while any admin order still
// references it.
func (x *Index) Delete(ctx context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.byID[id]; !ok {
		return ErrCategoryNotFound
	}
	if len(x.admin.ListByCategory(id)) > 0 {
		return ErrCategoryInUse
	}
	if err := x.gateway.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	delete(x.byID, id)
	return nil
}

// Get returns the category with the given id.
func (x *Index) Get(id string) (*market.Category, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	c, ok := x.byID[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

// List returns all categories, oldest first.
func (x *Index) List() []*market.Category {
	x.mu.RLock()
	out := make([]*market.Category, 0, len(x.byID))
	for _, c := range x.byID {
		copied := *c
		out = append(out, &copied)
	}
	x.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Orders returns the admin orders assigned to the category.
func (x *Index) Orders(id string) ([]*market.AdminOrder, error) {
	x.mu.RLock()
	_, ok := x.byID[id]
	x.mu.RUnlock()
	if !ok {
		return nil, ErrCategoryNotFound
	}
	return x.admin.ListByCategory(id), nil
}

// newID derives a stable slug from the category name.
func newID(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, slug)
	return strings.Trim(slug, "_")
}
