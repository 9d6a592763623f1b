package setting

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/cache"
	"github.com/wichananm65/storefront-backend/internal/money"
)

const (
	CacheTag = "settings"
	cacheKey = "settings:site"

	// rebased rates keep this many decimal places
	ratePlaces = 8
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

type Service struct {
	repo     Repository
	cache    cache.Store
	ttl      time.Duration
	defaults Settings
	log      *zap.Logger
	now      func() time.Time

	// serializes read-modify-write of the single document
	mu sync.Mutex
}

func NewService(repo Repository, store cache.Store, ttl time.Duration, defaults Settings, log *zap.Logger) *Service {
	if store == nil {
		store = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, cache: store, ttl: ttl, defaults: defaults, log: log, now: time.Now}
}

// Get returns the stored settings, or the defaults when nothing has been saved yet.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	return cache.Remember(ctx, s.cache, cacheKey, s.ttl, []string{CacheTag}, func() (Settings, error) {
		return s.load(ctx)
	})
}

// EnsureDefaults stores the defaults when the settings document does not exist.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.repo.Get(ctx)
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	d := clone(s.defaults)
	d.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, d); err != nil {
		return err
	}
	s.revalidate(ctx)
	return nil
}

func (s *Service) UpdateSite(ctx context.Context, in SiteInput) (Settings, error) {
	if !slices.Contains(in.Locales, in.DefaultLocale) {
		return Settings{}, ErrDefaultLocale
	}
	return s.mutate(ctx, func(st *Settings) error {
		social := make(map[string]string, len(in.Social))
		for k, v := range in.Social {
			social[k] = v
		}
		st.Site = Site{
			Name:          strings.TrimSpace(in.Name),
			LogoURL:       in.LogoURL,
			ContactEmail:  in.ContactEmail,
			ContactPhone:  in.ContactPhone,
			Social:        social,
			DefaultLocale: in.DefaultLocale,
			Locales:       append([]string(nil), in.Locales...),
		}
		return nil
	})
}

func (s *Service) UpdateShipping(ctx context.Context, in ShippingInput) (Settings, error) {
	if in.FlatRate.IsNegative() || in.FreeThreshold.IsNegative() {
		return Settings{}, ErrInvalidAmount
	}
	return s.mutate(ctx, func(st *Settings) error {
		st.Shipping = Shipping{FlatRate: money.Round(in.FlatRate), FreeThreshold: money.Round(in.FreeThreshold)}
		return nil
	})
}

// UpsertCurrency adds a currency or changes its symbol and rate.
func (s *Service) UpsertCurrency(ctx context.Context, code string, in CurrencyInput) (Settings, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currencyCode.MatchString(code) {
		return Settings{}, ErrInvalidCurrency
	}
	if !in.Rate.IsPositive() {
		return Settings{}, ErrInvalidRate
	}
	return s.mutate(ctx, func(st *Settings) error {
		i, ok := st.currency(code)
		if !ok {
			st.Currencies = append(st.Currencies, Currency{Code: code, Symbol: in.Symbol, Rate: in.Rate})
			return nil
		}
		if st.Currencies[i].Default && !in.Rate.Equal(decimal.NewFromInt(1)) {
			return ErrInvalidRate
		}
		st.Currencies[i].Symbol = in.Symbol
		st.Currencies[i].Rate = in.Rate
		return nil
	})
}

func (s *Service) DeleteCurrency(ctx context.Context, code string) (Settings, error) {
	code = strings.ToUpper(code)
	return s.mutate(ctx, func(st *Settings) error {
		i, ok := st.currency(code)
		if !ok {
			return money.ErrUnknownCurrency
		}
		if st.Currencies[i].Default {
			return ErrDefaultCurrency
		}
		st.Currencies = slices.Delete(st.Currencies, i, i+1)
		return nil
	})
}

// SetDefaultCurrency makes code the base currency and rebases every other rate onto it.
// Stored prices are not converted.
func (s *Service) SetDefaultCurrency(ctx context.Context, code string) (Settings, error) {
	code = strings.ToUpper(code)
	return s.mutate(ctx, func(st *Settings) error {
		i, ok := st.currency(code)
		if !ok {
			return money.ErrUnknownCurrency
		}
		base := st.Currencies[i].Rate
		for j := range st.Currencies {
			c := &st.Currencies[j]
			c.Default = j == i
			if j == i {
				c.Rate = decimal.NewFromInt(1)
				continue
			}
			c.Rate = c.Rate.DivRound(base, ratePlaces)
		}
		return nil
	})
}

// Rate resolves code to a configured currency and its rate. An empty code means the default.
func (s *Service) Rate(ctx context.Context, code string) (string, decimal.Decimal, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return "", decimal.Zero, err
	}
	if code == "" {
		def, ok := st.DefaultCurrency()
		if !ok {
			return "", decimal.Zero, money.ErrUnknownCurrency
		}
		return def.Code, decimal.NewFromInt(1), nil
	}
	i, ok := st.currency(strings.ToUpper(code))
	if !ok {
		return "", decimal.Zero, money.ErrUnknownCurrency
	}
	c := st.Currencies[i]
	return c.Code, c.Rate, nil
}

// Convert turns an amount in the default currency into the to currency, rounded for display.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, to string) (decimal.Decimal, error) {
	_, rate, err := s.Rate(ctx, to)
	if err != nil {
		return decimal.Zero, err
	}
	return money.Round(amount.Mul(rate)), nil
}

// ShippingFor returns the shipping fee in the default currency for a subtotal in the default currency.
func (s *Service) ShippingFor(ctx context.Context, subtotal decimal.Decimal) (decimal.Decimal, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	sh := st.Shipping
	if sh.FreeThreshold.IsPositive() && subtotal.GreaterThanOrEqual(sh.FreeThreshold) {
		return decimal.Zero, nil
	}
	return sh.FlatRate, nil
}

// Carousel returns the active slides of a carousel in display order.
func (s *Service) Carousel(ctx context.Context, name string) (Carousel, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return Carousel{}, err
	}
	i, ok := st.carousel(name)
	if !ok {
		return Carousel{}, ErrCarouselNotFound
	}
	out := Carousel{Name: name, Slides: []Slide{}}
	for _, sl := range st.Carousels[i].Slides {
		if sl.Active {
			out.Slides = append(out.Slides, sl)
		}
	}
	sort.SliceStable(out.Slides, func(a, b int) bool { return out.Slides[a].SortOrder < out.Slides[b].SortOrder })
	return out, nil
}

// UpsertCarousel replaces every slide of the named carousel. Slides without an id get one.
func (s *Service) UpsertCarousel(ctx context.Context, name string, in CarouselInput) (Settings, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Settings{}, ErrCarouselNotFound
	}
	slides := make([]Slide, 0, len(in.Slides))
	for _, si := range in.Slides {
		id := si.ID
		if id == "" {
			id = uuid.NewString()
		}
		active := true
		if si.Active != nil {
			active = *si.Active
		}
		slides = append(slides, Slide{ID: id, Image: si.Image, Link: si.Link, Alt: si.Alt, SortOrder: si.SortOrder, Active: active})
	}
	return s.mutate(ctx, func(st *Settings) error {
		if i, ok := st.carousel(name); ok {
			st.Carousels[i].Slides = slides
			return nil
		}
		st.Carousels = append(st.Carousels, Carousel{Name: name, Slides: slides})
		return nil
	})
}

func (s *Service) DeleteCarousel(ctx context.Context, name string) (Settings, error) {
	return s.mutate(ctx, func(st *Settings) error {
		i, ok := st.carousel(name)
		if !ok {
			return ErrCarouselNotFound
		}
		st.Carousels = slices.Delete(st.Carousels, i, i+1)
		return nil
	})
}

func (s *Service) load(ctx context.Context) (Settings, error) {
	st, err := s.repo.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return clone(s.defaults), nil
	}
	return st, err
}

func (s *Service) mutate(ctx context.Context, fn func(*Settings) error) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return Settings{}, err
	}
	if err := fn(&st); err != nil {
		return Settings{}, err
	}
	st.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, st); err != nil {
		return Settings{}, err
	}
	s.revalidate(ctx)
	return st, nil
}

func (s *Service) revalidate(ctx context.Context) {
	if err := s.cache.Revalidate(ctx, CacheTag); err != nil {
		s.log.Warn("settings cache revalidation failed", zap.Error(err))
	}
}
