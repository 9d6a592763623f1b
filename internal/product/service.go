package product

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/cache"
	"github.com/wichananm65/storefront-backend/internal/category"
	"github.com/wichananm65/storefront-backend/internal/slug"
)

// CacheTag is revalidated on every product mutation.
const CacheTag = "products"

// Categories is the part of the category service products depend on.
type Categories interface {
	Get(ctx context.Context, id string) (category.Category, error)
	GetBySlug(ctx context.Context, slug string) (category.Category, error)
	DescendantIDs(ctx context.Context, id string) ([]string, error)
}

type Service struct {
	repo       Repository
	categories Categories
	cache      cache.Store
	ttl        time.Duration
	log        *zap.Logger
	now        func() time.Time
}

func NewService(repo Repository, categories Categories, store cache.Store, ttl time.Duration, log *zap.Logger) *Service {
	if store == nil {
		store = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, categories: categories, cache: store, ttl: ttl, log: log, now: time.Now}
}

func normalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func normalizeSort(s string) string {
	switch s {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortName, SortScore:
		return s
	default:
		return SortNewest
	}
}

// List resolves the category filter to the category and all of its descendants. An unknown
// category yields an empty page rather than an error.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	page, size := normalizePaging(q.Page, q.PageSize)
	f := Filter{
		Query:      strings.TrimSpace(q.Search),
		Featured:   q.Featured,
		ActiveOnly: !q.IncludeAll,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		Sort:       normalizeSort(q.Sort),
		Page:       page,
		PageSize:   size,
	}

	if q.CategorySlug != "" || q.CategoryID != "" {
		var (
			cat category.Category
			err error
		)
		if q.CategoryID != "" {
			cat, err = s.categories.Get(ctx, q.CategoryID)
		} else {
			cat, err = s.categories.GetBySlug(ctx, q.CategorySlug)
		}
		if errors.Is(err, category.ErrNotFound) {
			return Page{Items: []Product{}, Page: page, PageSize: size}, nil
		}
		if err != nil {
			return Page{}, err
		}
		below, err := s.categories.DescendantIDs(ctx, cat.ID)
		if err != nil {
			return Page{}, err
		}
		f.CategoryIDs = append([]string{cat.ID}, below...)
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Page: page, PageSize: size}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySlug returns the product; inactive products are hidden unless includeInactive is set.
func (s *Service) GetBySlug(ctx context.Context, sl string, includeInactive bool) (Product, error) {
	p, err := cache.Remember(ctx, s.cache, "products:slug:"+sl, s.ttl, []string{CacheTag}, func() (Product, error) {
		return s.repo.GetBySlug(ctx, sl)
	})
	if err != nil {
		return Product{}, err
	}
	if !p.Active && !includeInactive {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// GetMany returns the products that exist among ids, in no particular order.
func (s *Service) GetMany(ctx context.Context, ids []string) ([]Product, error) {
	return s.repo.GetMany(ctx, ids)
}

// Related returns active products of the same category ranked by score.
func (s *Service) Related(ctx context.Context, id string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 4
	}
	if limit > MaxSuggestLimit {
		limit = MaxSuggestLimit
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, _, err := s.repo.List(ctx, Filter{
		CategoryIDs: []string{p.CategoryID},
		ExcludeID:   p.ID,
		ActiveOnly:  true,
		Sort:        SortScore,
		Page:        1,
		PageSize:    limit,
	})
	return items, err
}

func (s *Service) build(ctx context.Context, in Input, p Product) (Product, error) {
	if in.Price.IsNegative() || (in.CompareAtPrice != nil && in.CompareAtPrice.IsNegative()) {
		return Product{}, ErrInvalidPrice
	}
	src := in.Slug
	if strings.TrimSpace(src) == "" {
		src = in.Name
	}
	sl := slug.Make(src)
	if sl == "" {
		return Product{}, ErrInvalidSlug
	}
	if _, err := s.categories.Get(ctx, in.CategoryID); err != nil {
		if errors.Is(err, category.ErrNotFound) {
			return Product{}, ErrCategoryNotFound
		}
		return Product{}, err
	}

	p.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = sl
	p.Description = in.Description
	p.Price = in.Price
	p.CompareAtPrice = in.CompareAtPrice
	p.Stock = in.Stock
	p.CategoryID = in.CategoryID
	p.Images = nonNil(in.Images)
	p.Tags = nonNil(in.Tags)
	p.Featured = in.Featured
	p.Active = in.Active == nil || *in.Active
	p.Score = in.Score
	p.Translations = in.Translations
	p.UpdatedAt = s.now().UTC()
	return p, nil
}

func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	p, err := s.build(ctx, in, Product{CreatedAt: s.now().UTC()})
	if err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.revalidate(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Product, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p, err := s.build(ctx, in, existing)
	if err != nil {
		return Product{}, err
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.revalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.revalidate(ctx)
	return nil
}

// AdjustStock changes stock by delta; stock never drops below zero.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (Product, error) {
	p, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return Product{}, err
	}
	s.revalidate(ctx)
	return p, nil
}

// CountByCategory satisfies category.ProductCounter.
func (s *Service) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	return s.repo.CountByCategory(ctx, categoryID)
}

// Suggest returns search-as-you-type matches. Queries shorter than two characters return
// nothing.
func (s *Service) Suggest(ctx context.Context, q, locale string, limit int) ([]Suggestion, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinSuggestRunes {
		return []Suggestion{}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	if limit > MaxSuggestLimit {
		limit = MaxSuggestLimit
	}
	key := fmt.Sprintf("products:suggest:%s:%d:%s", locale, limit, strings.ToLower(q))
	return cache.Remember(ctx, s.cache, key, s.ttl, []string{CacheTag}, func() ([]Suggestion, error) {
		items, err := s.repo.Suggest(ctx, q, locale, limit)
		if err != nil {
			return nil, err
		}
		out := make([]Suggestion, 0, len(items))
		for _, p := range items {
			lp := p.Localize(locale)
			out = append(out, Suggestion{ID: p.ID, Name: lp.Name, Slug: p.Slug, SKU: p.SKU, Price: p.Price, Image: p.Image()})
		}
		return out, nil
	})
}

func (s *Service) revalidate(ctx context.Context) {
	if err := s.cache.Revalidate(ctx, CacheTag); err != nil {
		s.log.Warn("product cache revalidation failed", zap.Error(err))
	}
}

// ParseLimit reads a positive limit, returning def for empty or invalid input.
func ParseLimit(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
