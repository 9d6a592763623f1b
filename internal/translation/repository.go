package translation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("translation not found")
	ErrDuplicate   = errors.New("translation already exists for this locale, namespace and key")
	ErrInvalidYAML = errors.New("invalid translation file")
)

type Repository interface {
	// List returns matches ordered by locale, namespace, key.
	List(ctx context.Context, f Filter) ([]Translation, error)
	Get(ctx context.Context, id string) (Translation, error)
	Create(ctx context.Context, t Translation) (Translation, error)
	Update(ctx context.Context, t Translation) (Translation, error)
	Delete(ctx context.Context, id string) error
	// Upsert writes the value for (locale, namespace, key), creating the entry when missing.
	Upsert(ctx context.Context, t Translation) error
}

type entryKey struct{ locale, namespace, key string }

type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Translation
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]Translation)}
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Translation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Translation, 0)
	for _, t := range r.items {
		if f.Locale != "" && t.Locale != f.Locale {
			continue
		}
		if f.Namespace != "" && t.Namespace != f.Namespace {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Key), q) && !strings.Contains(strings.ToLower(t.Value), q) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Locale != b.Locale {
			return a.Locale < b.Locale
		}
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Key < b.Key
	})
	return out, nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (Translation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	if !ok {
		return Translation{}, ErrNotFound
	}
	return t, nil
}

func (r *InMemoryRepository) findLocked(k entryKey, exceptID string) (Translation, bool) {
	for _, t := range r.items {
		if t.ID != exceptID && t.Locale == k.locale && t.Namespace == k.namespace && t.Key == k.key {
			return t, true
		}
	}
	return Translation{}, false
}

func (r *InMemoryRepository) Create(_ context.Context, t Translation) (Translation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.findLocked(entryKey{t.Locale, t.Namespace, t.Key}, ""); dup {
		return Translation{}, ErrDuplicate
	}
	t.ID = uuid.NewString()
	r.items[t.ID] = t
	return t, nil
}

func (r *InMemoryRepository) Update(_ context.Context, t Translation) (Translation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[t.ID]; !ok {
		return Translation{}, ErrNotFound
	}
	if _, dup := r.findLocked(entryKey{t.Locale, t.Namespace, t.Key}, t.ID); dup {
		return Translation{}, ErrDuplicate
	}
	r.items[t.ID] = t
	return t, nil
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

func (r *InMemoryRepository) Upsert(_ context.Context, t Translation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.findLocked(entryKey{t.Locale, t.Namespace, t.Key}, ""); ok {
		existing.Value = t.Value
		existing.UpdatedAt = t.UpdatedAt
		r.items[existing.ID] = existing
		return nil
	}
	t.ID = uuid.NewString()
	r.items[t.ID] = t
	return nil
}
