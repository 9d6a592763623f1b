package setting

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound         = errors.New("settings not found")
	ErrInvalidCurrency  = errors.New("currency code must be three upper-case letters")
	ErrInvalidRate      = errors.New("rate must be > 0 and 1 for the default currency")
	ErrDefaultCurrency  = errors.New("the default currency cannot be deleted")
	ErrInvalidAmount    = errors.New("amount must be >= 0")
	ErrCarouselNotFound = errors.New("carousel not found")
	ErrDefaultLocale    = errors.New("default locale must be one of the locales")
)

// Repository stores the single settings document.
type Repository interface {
	Get(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

type InMemoryRepository struct {
	mu  sync.RWMutex
	doc *Settings
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Get(_ context.Context) (Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.doc == nil {
		return Settings{}, ErrNotFound
	}
	return clone(*r.doc), nil
}

func (r *InMemoryRepository) Save(_ context.Context, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := clone(s)
	r.doc = &c
	return nil
}

func clone(s Settings) Settings {
	out := s
	out.Site.Social = make(map[string]string, len(s.Site.Social))
	for k, v := range s.Site.Social {
		out.Site.Social[k] = v
	}
	out.Site.Locales = append([]string(nil), s.Site.Locales...)
	out.Currencies = append([]Currency{}, s.Currencies...)
	out.Carousels = make([]Carousel, len(s.Carousels))
	for i, c := range s.Carousels {
		out.Carousels[i] = Carousel{Name: c.Name, Slides: append([]Slide{}, c.Slides...)}
	}
	return out
}
