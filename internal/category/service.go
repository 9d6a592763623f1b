package category

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/cache"
	"github.com/wichananm65/storefront-backend/internal/slug"
)

// CacheTag is revalidated on every category mutation.
const CacheTag = "categories"

// ProductCounter reports how many products reference a category.
type ProductCounter interface {
	CountByCategory(ctx context.Context, categoryID string) (int, error)
}

type Service struct {
	repo     Repository
	cache    cache.Store
	ttl      time.Duration
	products ProductCounter
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, store cache.Store, ttl time.Duration, log *zap.Logger) *Service {
	if store == nil {
		store = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, cache: store, ttl: ttl, log: log, now: time.Now}
}

// SetProductCounter wires the product lookup used to refuse deleting categories in use.
func (s *Service) SetProductCounter(p ProductCounter) {
	s.products = p
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return cache.Remember(ctx, s.cache, "categories:list", s.ttl, []string{CacheTag}, func() ([]Category, error) {
		return s.repo.List(ctx)
	})
}

// Tree nests categories under their parents, keeping List order among siblings.
func (s *Service) Tree(ctx context.Context) ([]*Node, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(all), nil
}

func BuildTree(all []Category) []*Node {
	nodes := make(map[string]*Node, len(all))
	for _, c := range all {
		nodes[c.ID] = &Node{Category: c, Children: []*Node{}}
	}
	roots := make([]*Node, 0)
	for _, c := range all {
		n := nodes[c.ID]
		if p, ok := nodes[c.parent()]; ok {
			p.Children = append(p.Children, n)
			continue
		}
		roots = append(roots, n)
	}
	return roots
}

func (s *Service) Get(ctx context.Context, id string) (Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (Category, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// DescendantIDs returns the ids of every category below id, not including id.
func (s *Service) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return descendants(all, id), nil
}

func descendants(all []Category, id string) []string {
	children := make(map[string][]string)
	for _, c := range all {
		if p := c.parent(); p != "" {
			children[p] = append(children[p], c.ID)
		}
	}
	out := make([]string, 0)
	queue := []string{id}
	seen := map[string]bool{id: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ch := range children[cur] {
			if seen[ch] {
				continue
			}
			seen[ch] = true
			out = append(out, ch)
			queue = append(queue, ch)
		}
	}
	return out
}

func normalizeParent(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func makeSlug(in Input) (string, error) {
	src := in.Slug
	if strings.TrimSpace(src) == "" {
		src = in.Name
	}
	s := slug.Make(src)
	if s == "" {
		return "", ErrInvalidSlug
	}
	return s, nil
}

// levelFor computes the level a category takes under parent.
func (s *Service) levelFor(ctx context.Context, parent *string) (int, error) {
	if parent == nil {
		return 0, nil
	}
	p, err := s.repo.GetByID(ctx, *parent)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrParentNotFound
		}
		return 0, err
	}
	return p.Level + 1, nil
}

func (s *Service) Create(ctx context.Context, in Input) (Category, error) {
	sl, err := makeSlug(in)
	if err != nil {
		return Category{}, err
	}
	parent := normalizeParent(in.ParentID)
	level, err := s.levelFor(ctx, parent)
	if err != nil {
		return Category{}, err
	}
	if level > MaxLevel {
		return Category{}, ErrTooDeep
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, Category{
		Name:         strings.TrimSpace(in.Name),
		Slug:         sl,
		ParentID:     parent,
		Level:        level,
		SortOrder:    in.SortOrder,
		Image:        in.Image,
		Description:  in.Description,
		Translations: in.Translations,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Category{}, err
	}
	s.revalidate(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Category, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Category{}, err
	}
	sl, err := makeSlug(in)
	if err != nil {
		return Category{}, err
	}
	parent := normalizeParent(in.ParentID)

	all, err := s.repo.List(ctx)
	if err != nil {
		return Category{}, err
	}
	below := descendants(all, id)
	if parent != nil {
		if *parent == id {
			return Category{}, ErrCycle
		}
		for _, d := range below {
			if d == *parent {
				return Category{}, ErrCycle
			}
		}
	}
	level, err := s.levelFor(ctx, parent)
	if err != nil {
		return Category{}, err
	}

	// every descendant shifts by the same amount as the moved category
	delta := level - existing.Level
	levels := make(map[string]int, len(below))
	if delta != 0 {
		byID := make(map[string]Category, len(all))
		for _, c := range all {
			byID[c.ID] = c
		}
		for _, d := range below {
			levels[d] = byID[d].Level + delta
		}
	}
	if level > MaxLevel {
		return Category{}, ErrTooDeep
	}
	for _, l := range levels {
		if l > MaxLevel {
			return Category{}, ErrTooDeep
		}
	}

	existing.Name = strings.TrimSpace(in.Name)
	existing.Slug = sl
	existing.ParentID = parent
	existing.Level = level
	existing.SortOrder = in.SortOrder
	existing.Image = in.Image
	existing.Description = in.Description
	existing.Translations = in.Translations
	existing.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return Category{}, err
	}
	if err := s.repo.SetLevels(ctx, levels); err != nil {
		return Category{}, fmt.Errorf("update descendant levels: %w", err)
	}
	s.revalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasChildren
	}
	if s.products != nil {
		used, err := s.products.CountByCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		if used > 0 {
			return ErrInUse
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.revalidate(ctx)
	return nil
}

func (s *Service) revalidate(ctx context.Context) {
	if err := s.cache.Revalidate(ctx, CacheTag); err != nil {
		s.log.Warn("category cache revalidation failed", zap.Error(err))
	}
}
