package cart

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrItemNotFound      = errors.New("product not in cart")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrQuantityLimit     = errors.New("quantity exceeds the per-line limit")
	ErrInvalidQuantity   = errors.New("quantity must be >= 0")
)

// Repository stores whole carts. A missing cart is returned empty, not as an error.
type Repository interface {
	Get(ctx context.Context, ownerID string) (Cart, error)
	Save(ctx context.Context, c Cart) error
	Delete(ctx context.Context, ownerID string) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]Cart
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{carts: make(map[string]Cart)}
}

func (r *InMemoryRepository) Get(_ context.Context, ownerID string) (Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.carts[ownerID]
	if !ok {
		return Cart{OwnerID: ownerID, Items: []Item{}}, nil
	}
	c.Items = append([]Item{}, c.Items...)
	return c, nil
}

func (r *InMemoryRepository) Save(_ context.Context, c Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Items = append([]Item{}, c.Items...)
	r.carts[c.OwnerID] = c
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, ownerID)
	return nil
}
