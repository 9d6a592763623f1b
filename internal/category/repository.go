package category

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("category not found")
	ErrSlugTaken      = errors.New("category slug already exists")
	ErrInvalidSlug    = errors.New("category slug is empty after normalisation")
	ErrParentNotFound = errors.New("parent category not found")
	ErrCycle          = errors.New("category cannot be moved below itself")
	ErrTooDeep        = errors.New("category nesting too deep")
	ErrHasChildren    = errors.New("category has child categories")
	ErrInUse          = errors.New("category has products")
)

// Repository persists categories. List returns every category ordered by level, sort order
// and name.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id string) (Category, error)
	GetBySlug(ctx context.Context, slug string) (Category, error)
	Create(ctx context.Context, c Category) (Category, error)
	Update(ctx context.Context, c Category) (Category, error)
	SetLevels(ctx context.Context, levels map[string]int) error
	Delete(ctx context.Context, id string) error
	CountChildren(ctx context.Context, id string) (int, error)
}

// InMemoryRepository is used for tests and the memory driver.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Category
}

func NewInMemoryRepository(seed ...Category) *InMemoryRepository {
	r := &InMemoryRepository{items: make(map[string]Category, len(seed))}
	for _, c := range seed {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		r.items[c.ID] = c
	}
	return r
}

func (r *InMemoryRepository) List(_ context.Context) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c)
	}
	sortCategories(out)
	return out, nil
}

func sortCategories(cs []Category) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Level != cs[j].Level {
			return cs[i].Level < cs[j].Level
		}
		if cs[i].SortOrder != cs[j].SortOrder {
			return cs[i].SortOrder < cs[j].SortOrder
		}
		return cs[i].Name < cs[j].Name
	})
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (r *InMemoryRepository) GetBySlug(_ context.Context, slug string) (Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if c.Slug == slug {
			return c, nil
		}
	}
	return Category{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, c Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slugTakenLocked(c.Slug, "") {
		return Category{}, ErrSlugTaken
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.items[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) Update(_ context.Context, c Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; !ok {
		return Category{}, ErrNotFound
	}
	if r.slugTakenLocked(c.Slug, c.ID) {
		return Category{}, ErrSlugTaken
	}
	r.items[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) SetLevels(_ context.Context, levels map[string]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, lvl := range levels {
		if c, ok := r.items[id]; ok {
			c.Level = lvl
			r.items[id] = c
		}
	}
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *InMemoryRepository) CountChildren(_ context.Context, id string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.items {
		if c.parent() == id {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) slugTakenLocked(slug, exceptID string) bool {
	for id, c := range r.items {
		if id != exceptID && c.Slug == slug {
			return true
		}
	}
	return false
}
