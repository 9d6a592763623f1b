package user

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrLastAdmin          = errors.New("the last admin cannot be removed or demoted")
)

type Repository interface {
	// List returns users newest first.
	List(ctx context.Context, f Filter) ([]User, int, error)
	GetByID(ctx context.Context, id string) (User, error)
	// GetByEmail expects a normalized (lower-case) email.
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role string) (int, error)
}

type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewInMemoryRepository(seed ...User) *InMemoryRepository {
	r := &InMemoryRepository{users: make(map[string]User, len(seed))}
	for _, u := range seed {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]User, int, error) {
	f = f.normalize()
	q := strings.ToLower(f.Query)
	r.mu.RLock()
	matched := make([]User, 0)
	for _, u := range r.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if q != "" && !strings.Contains(u.Email, q) && !strings.Contains(strings.ToLower(u.Name), q) {
			continue
		}
		matched = append(matched, u)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Email < matched[j].Email
	})
	total := len(matched)
	start := min(f.offset(), total)
	end := min(start+f.PageSize, total)
	return matched[start:end], total, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return User{}, ErrEmailExists
		}
	}
	u.ID = uuid.NewString()
	r.users[u.ID] = u
	return u, nil
}

func (r *InMemoryRepository) Update(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return User{}, ErrNotFound
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *InMemoryRepository) CountByRole(_ context.Context, role string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}
