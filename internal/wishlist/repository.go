package wishlist

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotInWishlist   = errors.New("product not in wishlist")
	ErrProductNotFound = errors.New("product not found")
)

type Repository interface {
	// Add inserts the pair. When it already exists the stored item is returned with created=false.
	Add(ctx context.Context, item Item) (Item, bool, error)
	Remove(ctx context.Context, ownerID, productID string) error
	Get(ctx context.Context, ownerID, productID string) (Item, error)
	// List returns the owner's items newest first.
	List(ctx context.Context, ownerID string) ([]Item, error)
	Count(ctx context.Context, ownerID string) (int, error)
	Clear(ctx context.Context, ownerID string) error
}

type key struct{ owner, product string }

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[key]Item
}

func NewInMemoryRepository(seed ...Item) *InMemoryRepository {
	r := &InMemoryRepository{items: make(map[key]Item, len(seed))}
	for _, it := range seed {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		r.items[key{it.OwnerID, it.ProductID}] = it
	}
	return r
}

func (r *InMemoryRepository) Add(_ context.Context, item Item) (Item, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{item.OwnerID, item.ProductID}
	if existing, ok := r.items[k]; ok {
		return existing, false, nil
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	r.items[k] = item
	return item, true, nil
}

func (r *InMemoryRepository) Remove(_ context.Context, ownerID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{ownerID, productID}
	if _, ok := r.items[k]; !ok {
		return ErrNotInWishlist
	}
	delete(r.items, k)
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, ownerID, productID string) (Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[key{ownerID, productID}]
	if !ok {
		return Item{}, ErrNotInWishlist
	}
	return it, nil
}

func (r *InMemoryRepository) List(_ context.Context, ownerID string) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Item, 0)
	for k, it := range r.items {
		if k.owner == ownerID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (r *InMemoryRepository) Count(_ context.Context, ownerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for k := range r.items {
		if k.owner == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) Clear(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.items {
		if k.owner == ownerID {
			delete(r.items, k)
		}
	}
	return nil
}
