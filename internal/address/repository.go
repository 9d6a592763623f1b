package address

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("address not found")

type Repository interface {
	// List returns the default address first, then newest first.
	List(ctx context.Context, userID string) ([]Address, error)
	Get(ctx context.Context, userID, id string) (Address, error)
	Create(ctx context.Context, a Address) (Address, error)
	Update(ctx context.Context, a Address) (Address, error)
	Delete(ctx context.Context, userID, id string) error
	// SetDefault marks id as the only default address of userID.
	SetDefault(ctx context.Context, userID, id string) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Address
}

func NewInMemoryRepository(seed ...Address) *InMemoryRepository {
	r := &InMemoryRepository{items: make(map[string]Address, len(seed))}
	for _, a := range seed {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		r.items[a.ID] = a
	}
	return r
}

func sortAddresses(out []Address) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

func (r *InMemoryRepository) List(_ context.Context, userID string) ([]Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Address, 0)
	for _, a := range r.items {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sortAddresses(out)
	return out, nil
}

func (r *InMemoryRepository) Get(_ context.Context, userID, id string) (Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok || a.UserID != userID {
		return Address{}, ErrNotFound
	}
	return a, nil
}

func (r *InMemoryRepository) Create(_ context.Context, a Address) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	r.items[a.ID] = a
	return a, nil
}

func (r *InMemoryRepository) Update(_ context.Context, a Address) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.items[a.ID]
	if !ok || old.UserID != a.UserID {
		return Address{}, ErrNotFound
	}
	r.items[a.ID] = a
	return a, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *InMemoryRepository) SetDefault(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.items[id]; !ok || a.UserID != userID {
		return ErrNotFound
	}
	for k, a := range r.items {
		if a.UserID == userID {
			a.IsDefault = k == id
			r.items[k] = a
		}
	}
	return nil
}
