package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAddressRequired    = errors.New("shipping address is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrProductUnavailable = errors.New("product is no longer available")
)

// firstNumber is the number of the first order placed.
const firstNumber = 1001

type Repository interface {
	// NextNumber returns a new, unique, increasing order number.
	NextNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	// List returns orders newest first.
	List(ctx context.Context, f Filter) (Page, error)
	// UpdateStatus moves the order from one status to another. It fails with
	// ErrInvalidTransition when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (Order, error)
}

type InMemoryRepository struct {
	mu     sync.RWMutex
	items  map[string]Order
	number int64
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]Order), number: firstNumber - 1}
}

func (r *InMemoryRepository) NextNumber(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.number++
	return r.number, nil
}

func (r *InMemoryRepository) Create(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Items = append([]Line(nil), o.Items...)
	r.items[o.ID] = o
	return o, nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.items[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) (Page, error) {
	f = f.normalize()
	r.mu.RLock()
	matched := make([]Order, 0)
	for _, o := range r.items {
		if f.OwnerID != "" && o.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		matched = append(matched, o)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Number > matched[j].Number
	})
	p := Page{Items: []Order{}, Total: len(matched), Page: f.Page, PageSize: f.PageSize}
	if start := f.offset(); start < len(matched) {
		end := min(start+f.PageSize, len(matched))
		p.Items = matched[start:end]
	}
	return p, nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id string, from, to Status, at time.Time) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if o.Status != from {
		return Order{}, ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = at
	r.items[id] = o
	return o, nil
}
