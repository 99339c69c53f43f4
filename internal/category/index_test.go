package category

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thornegames/orderboard/internal/market"
)

type stubGateway struct {
	stored    []*market.Category
	puts      []*market.Category
	deletes   []string
	putErr    error
	deleteErr error
}

func (g *stubGateway) LoadCategories(ctx context.Context) ([]*market.Category, error) {
	return g.stored, nil
}

func (g *stubGateway) PutCategory(ctx context.Context, c *market.Category) error {
	if g.putErr != nil {
		return g.putErr
	}
	g.puts = append(g.puts, c)
	return nil
}

func (g *stubGateway) DeleteCategory(ctx context.Context, id string) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deletes = append(g.deletes, id)
	return nil
}

func newTestIndex(g *stubGateway) (*Index, *market.AdminStore) {
	admin := market.NewAdminStore()
	x := NewIndex(admin, g)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	x.nowFunc = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return x, admin
}

func TestCreate(t *testing.T) {
	g := &stubGateway{}
	x, _ := newTestIndex(g)

	c, err := x.Create(context.Background(), "Mining & Ores", "IRON_PICKAXE")
	require.NoError(t, err)
	assert.Equal(t, "mining___ores", c.ID, "slug from the name")
	assert.Equal(t, "Mining & Ores", c.Name)
	assert.Equal(t, "IRON_PICKAXE", c.DisplayItem)
	require.Len(t, g.puts, 1, "persisted before becoming visible")

	got, err := x.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	x, _ := newTestIndex(&stubGateway{})
	_, err := x.Create(context.Background(), "Farming", "")
	require.NoError(t, err)

	_, err = x.Create(context.Background(), "FARMING", "")
	assert.ErrorIs(t, err, ErrCategoryExists)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	x, _ := newTestIndex(&stubGateway{})
	_, err := x.Create(context.Background(), "   ", "")
	assert.Error(t, err)
}

func TestCreateGatewayFailureLeavesNoEntry(t *testing.T) {
	g := &stubGateway{putErr: errors.New("table missing")}
	x, _ := newTestIndex(g)

	_, err := x.Create(context.Background(), "Farming", "")
	require.Error(t, err)
	assert.Empty(t, x.List())
}

func TestRename(t *testing.T) {
	g := &stubGateway{}
	x, _ := newTestIndex(g)
	c, err := x.Create(context.Background(), "Mining", "")
	require.NoError(t, err)
	_, err = x.Create(context.Background(), "Farming", "")
	require.NoError(t, err)

	renamed, err := x.Rename(context.Background(), c.ID, "Ores")
	require.NoError(t, err)
	assert.Equal(t, c.ID, renamed.ID, "slug id is stable across renames")
	assert.Equal(t, "Ores", renamed.Name)

	got, err := x.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ores", got.Name)

	// renaming to itself is allowed, to another existing name is not
	_, err = x.Rename(context.Background(), c.ID, "ores")
	assert.NoError(t, err)
	_, err = x.Rename(context.Background(), c.ID, "farming")
	assert.ErrorIs(t, err, ErrCategoryExists)

	_, err = x.Rename(context.Background(), "missing", "Anything")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestDelete(t *testing.T) {
	g := &stubGateway{}
	x, _ := newTestIndex(g)
	c, err := x.Create(context.Background(), "Farming", "")
	require.NoError(t, err)

	require.NoError(t, x.Delete(context.Background(), c.ID))
	assert.Equal(t, []string{c.ID}, g.deletes)

	_, err = x.Get(c.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.ErrorIs(t, x.Delete(context.Background(), c.ID), ErrCategoryNotFound)
}

func TestDeleteRejectsCategoryInUse(t *testing.T) {
	x, admin := newTestIndex(&stubGateway{})
	c, err := x.Create(context.Background(), "Mining", "")
	require.NoError(t, err)

	order := &market.AdminOrder{CategoryID: c.ID}
	order.ID = admin.NewID()
	order.Item = market.Item{Kind: "DIAMOND"}
	order.Status = market.StatusActive
	admin.Put(order)

	assert.ErrorIs(t, x.Delete(context.Background(), c.ID), ErrCategoryInUse)

	admin.Remove(order.ID)
	assert.NoError(t, x.Delete(context.Background(), c.ID))
}

func TestListOldestFirst(t *testing.T) {
	x, _ := newTestIndex(&stubGateway{})
	for _, name := range []string{"Mining", "Farming", "Combat"} {
		_, err := x.Create(context.Background(), name, "")
		require.NoError(t, err)
	}

	list := x.List()
	require.Len(t, list, 3)
	assert.Equal(t, "Mining", list[0].Name)
	assert.Equal(t, "Farming", list[1].Name)
	assert.Equal(t, "Combat", list[2].Name)
}

func TestOrders(t *testing.T) {
	x, admin := newTestIndex(&stubGateway{})
	c, err := x.Create(context.Background(), "Mining", "")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		order := &market.AdminOrder{CategoryID: c.ID}
		order.ID = admin.NewID()
		order.Item = market.Item{Kind: "DIAMOND"}
		order.Status = market.StatusActive
		admin.Put(order)
	}
	other := &market.AdminOrder{CategoryID: "elsewhere"}
	other.ID = admin.NewID()
	other.Status = market.StatusActive
	admin.Put(other)

	orders, err := x.Orders(c.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	_, err = x.Orders("missing")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestLoadReplacesState(t *testing.T) {
	g := &stubGateway{stored: []*market.Category{
		{ID: "mining", Name: "Mining"},
	}}
	x, _ := newTestIndex(g)
	_, err := x.Create(context.Background(), "Farming", "")
	require.NoError(t, err)

	require.NoError(t, x.Load(context.Background()))
	list := x.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Mining", list[0].Name)
}
