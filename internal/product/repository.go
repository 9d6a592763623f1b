package product

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrSlugTaken         = errors.New("product slug already exists")
	ErrSKUTaken          = errors.New("product sku already exists")
	ErrInvalidSlug       = errors.New("product slug is empty after normalisation")
	ErrInvalidPrice      = errors.New("price must be >= 0")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, int64, error)
	GetByID(ctx context.Context, id string) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	GetMany(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id string) error
	// AdjustStock adds delta to stock atomically; the result never goes below zero.
	AdjustStock(ctx context.Context, id string, delta int) (Product, error)
	CountByCategory(ctx context.Context, categoryID string) (int, error)
	// Suggest matches q case-insensitively against name, localized name and sku of active
	// products, featured first then by name.
	Suggest(ctx context.Context, q, locale string, limit int) ([]Product, error)
}

// InMemoryRepository is used for tests and the memory driver.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Product
}

func NewInMemoryRepository(seed ...Product) *InMemoryRepository {
	r := &InMemoryRepository{items: make(map[string]Product, len(seed))}
	for _, p := range seed {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		r.items[p.ID] = p
	}
	return r
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := toSet(f.IDs)
	cats := toSet(f.CategoryIDs)
	q := strings.ToLower(f.Query)
	matched := make([]Product, 0)
	for _, p := range r.items {
		if ids != nil && !ids[p.ID] {
			continue
		}
		if cats != nil && !cats[p.CategoryID] {
			continue
		}
		if f.ExcludeID != "" && p.ID == f.ExcludeID {
			continue
		}
		if f.ActiveOnly && !p.Active {
			continue
		}
		if f.Featured != nil && p.Featured != *f.Featured {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if q != "" && !matchesQuery(p, q) {
			continue
		}
		matched = append(matched, p)
	}
	sortProducts(matched, f.Sort)

	total := int64(len(matched))
	start := f.offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.PageSize
	if f.PageSize <= 0 || end > len(matched) {
		end = len(matched)
	}
	return append([]Product(nil), matched[start:end]...), total, nil
}

func toSet(ids []string) map[string]bool {
	if ids == nil {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func matchesQuery(p Product, q string) bool {
	if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.SKU), q) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func sortProducts(ps []Product, order string) {
	var less func(a, b Product) bool
	switch order {
	case SortPriceAsc:
		less = func(a, b Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortName:
		less = func(a, b Product) bool { return a.Name < b.Name }
	case SortScore:
		less = func(a, b Product) bool { return a.Score > b.Score }
	default:
		less = func(a, b Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if less(ps[i], ps[j]) {
			return true
		}
		if less(ps[j], ps[i]) {
			return false
		}
		return ps[i].ID < ps[j].ID
	})
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *InMemoryRepository) GetBySlug(_ context.Context, slug string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.items {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) GetMany(_ context.Context, ids []string) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUniqueLocked(p, ""); err != nil {
		return Product{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.items[p.ID] = p
	return p, nil
}

func (r *InMemoryRepository) Update(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; !ok {
		return Product{}, ErrNotFound
	}
	if err := r.checkUniqueLocked(p, p.ID); err != nil {
		return Product{}, err
	}
	r.items[p.ID] = p
	return p, nil
}

func (r *InMemoryRepository) checkUniqueLocked(p Product, exceptID string) error {
	for id, other := range r.items {
		if id == exceptID {
			continue
		}
		if other.SKU == p.SKU {
			return ErrSKUTaken
		}
		if other.Slug == p.Slug {
			return ErrSlugTaken
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

func (r *InMemoryRepository) AdjustStock(_ context.Context, id string, delta int) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	if p.Stock+delta < 0 {
		return Product{}, ErrInsufficientStock
	}
	p.Stock += delta
	r.items[id] = p
	return p, nil
}

func (r *InMemoryRepository) CountByCategory(_ context.Context, categoryID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.items {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) Suggest(_ context.Context, q, locale string, limit int) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q = strings.ToLower(q)
	out := make([]Product, 0)
	for _, p := range r.items {
		if !p.Active {
			continue
		}
		localized := strings.ToLower(p.Translations[locale].Name)
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.SKU), q) ||
			(localized != "" && strings.Contains(localized, q)) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Featured != out[j].Featured {
			return out[i].Featured
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
