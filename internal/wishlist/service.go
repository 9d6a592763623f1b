package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/metrics"
	"github.com/wichananm65/storefront-backend/internal/product"
)

// Products is the catalog lookup the wishlist needs.
type Products interface {
	Get(ctx context.Context, id string) (product.Product, error)
	GetMany(ctx context.Context, ids []string) ([]product.Product, error)
}

type Service struct {
	repo     Repository
	products Products
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, products Products, m *metrics.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, products: products, metrics: m, log: log, now: time.Now}
}

// Add is idempotent; created reports whether a new item was stored.
func (s *Service) Add(ctx context.Context, owner, productID string) (Item, bool, error) {
	if _, err := s.products.Get(ctx, productID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return Item{}, false, ErrProductNotFound
		}
		return Item{}, false, err
	}
	it, created, err := s.repo.Add(ctx, Item{OwnerID: owner, ProductID: productID, CreatedAt: s.now().UTC()})
	if err != nil {
		return Item{}, false, fmt.Errorf("add to wishlist: %w", err)
	}
	if created {
		s.metrics.WishlistAdded()
	}
	return it, created, nil
}

func (s *Service) Remove(ctx context.Context, owner, productID string) error {
	return s.repo.Remove(ctx, owner, productID)
}

// Toggle adds the product when absent and removes it otherwise. It returns the new membership.
func (s *Service) Toggle(ctx context.Context, owner, productID string) (bool, error) {
	err := s.repo.Remove(ctx, owner, productID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotInWishlist) {
		return false, err
	}
	if _, _, err := s.Add(ctx, owner, productID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Contains(ctx context.Context, owner, productID string) (bool, error) {
	_, err := s.repo.Get(ctx, owner, productID)
	if errors.Is(err, ErrNotInWishlist) {
		return false, nil
	}
	return err == nil, err
}

// List returns entries newest first with localized product cards. Items whose product has been
// deleted are skipped.
func (s *Service) List(ctx context.Context, owner, locale string) ([]Entry, error) {
	items, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []Entry{}, nil
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		out = append(out, Entry{ProductID: it.ProductID, AddedAt: it.CreatedAt, Product: summarize(p, locale)})
	}
	return out, nil
}

func (s *Service) Count(ctx context.Context, owner string) (int, error) {
	return s.repo.Count(ctx, owner)
}

func (s *Service) Clear(ctx context.Context, owner string) error {
	return s.repo.Clear(ctx, owner)
}

// Merge copies every item of from into to, ignoring duplicates, then empties from. It returns
// how many items were new for to.
func (s *Service) Merge(ctx context.Context, from, to string) (int, error) {
	if from == "" || from == to {
		return 0, nil
	}
	items, err := s.repo.List(ctx, from)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, it := range items {
		_, created, err := s.repo.Add(ctx, Item{OwnerID: to, ProductID: it.ProductID, CreatedAt: it.CreatedAt})
		if err != nil {
			return added, fmt.Errorf("merge wishlist: %w", err)
		}
		if created {
			added++
		}
	}
	if err := s.repo.Clear(ctx, from); err != nil {
		return added, err
	}
	if added > 0 {
		s.log.Debug("wishlist merged", zap.String("from", from), zap.String("to", to), zap.Int("added", added))
	}
	return added, nil
}

// Sync adds the client's locally stored product ids to owner and returns the merged list.
// Unknown products are ignored.
func (s *Service) Sync(ctx context.Context, owner string, productIDs []string, locale string) ([]Entry, error) {
	for _, id := range productIDs {
		if _, _, err := s.Add(ctx, owner, id); err != nil && !errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
	}
	return s.List(ctx, owner, locale)
}
