package category

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/cache"
)

type fakeCounter map[string]int

func (f fakeCounter) CountByCategory(_ context.Context, id string) (int, error) { return f[id], nil }

func newTestService() (*Service, *cache.Memory) {
	store := cache.NewMemory()
	return NewService(NewInMemoryRepository(), store, time.Minute, zap.NewNop()), store
}

func ptr(s string) *string { return &s }

func TestCreate_SlugAndLevel(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	root, err := s.Create(ctx, Input{Name: "Animal Food"})
	require.NoError(t, err)
	assert.Equal(t, "animal-food", root.Slug)
	assert.Equal(t, 0, root.Level)

	child, err := s.Create(ctx, Input{Name: "Cat Food", ParentID: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, child.Level)

	grand, err := s.Create(ctx, Input{Name: "Dry", Slug: "Cat Dry Food", ParentID: &child.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, grand.Level)
	assert.Equal(t, "cat-dry-food", grand.Slug)

	_, err = s.Create(ctx, Input{Name: "Too deep", ParentID: &grand.ID})
	assert.ErrorIs(t, err, ErrTooDeep)

	_, err = s.Create(ctx, Input{Name: "animal food"})
	assert.ErrorIs(t, err, ErrSlugTaken)

	_, err = s.Create(ctx, Input{Name: "Orphan", ParentID: ptr("missing")})
	assert.ErrorIs(t, err, ErrParentNotFound)

	_, err = s.Create(ctx, Input{Name: "???"})
	assert.ErrorIs(t, err, ErrInvalidSlug)

	blank, err := s.Create(ctx, Input{Name: "Toys", ParentID: ptr("  ")})
	require.NoError(t, err)
	assert.Nil(t, blank.ParentID)
}

func TestUpdate_MoveRecomputesLevels(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	a, _ := s.Create(ctx, Input{Name: "A"})
	b, _ := s.Create(ctx, Input{Name: "B"})
	b1, _ := s.Create(ctx, Input{Name: "B1", ParentID: &b.ID})

	// B under A: B -> 1, B1 -> 2
	moved, err := s.Update(ctx, b.ID, Input{Name: "B", ParentID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Level)
	got, err := s.Get(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Level)

	// A under B1 would be a cycle
	_, err = s.Update(ctx, a.ID, Input{Name: "A", ParentID: &b1.ID})
	assert.ErrorIs(t, err, ErrCycle)
	_, err = s.Update(ctx, a.ID, Input{Name: "A", ParentID: &a.ID})
	assert.ErrorIs(t, err, ErrCycle)

	// B under another level-1 category would push B1 to level 3
	c, _ := s.Create(ctx, Input{Name: "C"})
	c1, _ := s.Create(ctx, Input{Name: "C1", ParentID: &c.ID})
	_, err = s.Update(ctx, b.ID, Input{Name: "B", ParentID: &c1.ID})
	assert.ErrorIs(t, err, ErrTooDeep)

	// back to root: B -> 0, B1 -> 1
	_, err = s.Update(ctx, b.ID, Input{Name: "B"})
	require.NoError(t, err)
	got, _ = s.Get(ctx, b1.ID)
	assert.Equal(t, 1, got.Level)
}

func TestDelete_Rules(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()
	root, _ := s.Create(ctx, Input{Name: "Root"})
	leaf, _ := s.Create(ctx, Input{Name: "Leaf", ParentID: &root.ID})
	s.SetProductCounter(fakeCounter{leaf.ID: 2})

	assert.ErrorIs(t, s.Delete(ctx, root.ID), ErrHasChildren)
	assert.ErrorIs(t, s.Delete(ctx, leaf.ID), ErrInUse)
	assert.ErrorIs(t, s.Delete(ctx, "nope"), ErrNotFound)

	s.SetProductCounter(fakeCounter{})
	require.NoError(t, s.Delete(ctx, leaf.ID))
	require.NoError(t, s.Delete(ctx, root.ID))
}

func TestTreeAndDescendants(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()
	a, _ := s.Create(ctx, Input{Name: "A", SortOrder: 2})
	b, _ := s.Create(ctx, Input{Name: "B", SortOrder: 1})
	a1, _ := s.Create(ctx, Input{Name: "A1", ParentID: &a.ID})
	a11, _ := s.Create(ctx, Input{Name: "A11", ParentID: &a1.ID})

	tree, err := s.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, b.ID, tree[0].ID)
	assert.Equal(t, a.ID, tree[1].ID)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, a11.ID, tree[1].Children[0].Children[0].ID)

	ids, err := s.DescendantIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a1.ID, a11.ID}, ids)
}

func TestList_CachedUntilMutation(t *testing.T) {
	ctx := context.Background()
	s, store := newTestService()
	_, _ = s.Create(ctx, Input{Name: "A"})

	_, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	_, _ = s.Create(ctx, Input{Name: "B"})
	assert.Equal(t, 0, store.Len())
	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestLocalize(t *testing.T) {
	c := Category{Name: "Cat snacks", Description: "Treats", Translations: map[string]Localized{"th": {Name: "ขนมแมว"}}}
	th := c.Localize("th")
	assert.Equal(t, "ขนมแมว", th.Name)
	assert.Equal(t, "Treats", th.Description)
	assert.Nil(t, th.Translations)
	assert.Equal(t, "Cat snacks", c.Localize("en").Name)
}

// wrappingRepository reports lookups the way a driver-backed repository does, wrapped.
type wrappingRepository struct {
	*InMemoryRepository
}

func (r wrappingRepository) GetByID(ctx context.Context, id string) (Category, error) {
	c, err := r.InMemoryRepository.GetByID(ctx, id)
	if err != nil {
		return Category{}, fmt.Errorf("find category %s: %w", id, err)
	}
	return c, nil
}

func TestCreate_WrappedMissingParent(t *testing.T) {
	s := NewService(wrappingRepository{NewInMemoryRepository()}, cache.NewMemory(), time.Minute, nil)
	_, err := s.Create(context.Background(), Input{Name: "Orphan", ParentID: ptr("missing")})
	assert.ErrorIs(t, err, ErrParentNotFound)
}
