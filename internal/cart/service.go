package cart

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/metrics"
	"github.com/wichananm65/storefront-backend/internal/money"
	"github.com/wichananm65/storefront-backend/internal/product"
)

type Products interface {
	Get(ctx context.Context, id string) (product.Product, error)
	GetMany(ctx context.Context, ids []string) ([]product.Product, error)
}

// Currencies resolves a currency code ("" means the default) to its code and rate.
type Currencies interface {
	Rate(ctx context.Context, code string) (string, decimal.Decimal, error)
}

type Service struct {
	repo       Repository
	products   Products
	currencies Currencies
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time

	// carts are read-modify-write; serialize per owner within this process
	locks [32]sync.Mutex
}

func NewService(repo Repository, products Products, currencies Currencies, m *metrics.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, products: products, currencies: currencies, metrics: m, log: log, now: time.Now}
}

func (s *Service) lock(owner string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(owner))
	mu := &s.locks[h.Sum32()%uint32(len(s.locks))]
	mu.Lock()
	return mu.Unlock
}

func (s *Service) Get(ctx context.Context, owner string) (Cart, error) {
	return s.repo.Get(ctx, owner)
}

// available returns the product when it exists and is active.
func (s *Service) available(ctx context.Context, productID string) (product.Product, error) {
	p, err := s.products.Get(ctx, productID)
	if errors.Is(err, product.ErrNotFound) || (err == nil && !p.Active) {
		return product.Product{}, ErrProductNotFound
	}
	return p, err
}

func checkQuantity(p product.Product, qty int) error {
	if qty > MaxQuantity {
		return ErrQuantityLimit
	}
	if qty > p.Stock {
		return ErrInsufficientStock
	}
	return nil
}

func (s *Service) save(ctx context.Context, c Cart) (Cart, error) {
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, c); err != nil {
		return Cart{}, fmt.Errorf("save cart: %w", err)
	}
	s.metrics.CartUpdated()
	return c, nil
}

// Add changes the line by delta. A resulting quantity of zero or less removes the line.
func (s *Service) Add(ctx context.Context, owner, productID string, delta int) (Cart, error) {
	defer s.lock(owner)()
	c, err := s.repo.Get(ctx, owner)
	if err != nil {
		return Cart{}, err
	}
	if delta == 0 {
		return c, nil
	}
	qty := c.Quantity(productID) + delta
	if delta > 0 {
		p, err := s.available(ctx, productID)
		if err != nil {
			return Cart{}, err
		}
		if err := checkQuantity(p, qty); err != nil {
			return Cart{}, err
		}
	} else if c.index(productID) < 0 {
		return c, nil
	}
	c.set(productID, qty)
	return s.save(ctx, c)
}

// SetQuantity replaces the line quantity; 0 removes it.
func (s *Service) SetQuantity(ctx context.Context, owner, productID string, qty int) (Cart, error) {
	if qty < 0 {
		return Cart{}, ErrInvalidQuantity
	}
	defer s.lock(owner)()
	c, err := s.repo.Get(ctx, owner)
	if err != nil {
		return Cart{}, err
	}
	if qty == 0 {
		if c.index(productID) < 0 {
			return Cart{}, ErrItemNotFound
		}
	} else {
		p, err := s.available(ctx, productID)
		if err != nil {
			return Cart{}, err
		}
		if err := checkQuantity(p, qty); err != nil {
			return Cart{}, err
		}
	}
	c.set(productID, qty)
	return s.save(ctx, c)
}

func (s *Service) Remove(ctx context.Context, owner, productID string) (Cart, error) {
	return s.SetQuantity(ctx, owner, productID, 0)
}

func (s *Service) Clear(ctx context.Context, owner string) error {
	defer s.lock(owner)()
	if err := s.repo.Delete(ctx, owner); err != nil {
		return err
	}
	s.metrics.CartUpdated()
	return nil
}

// Deduct subtracts checked-out quantities from the owner's cart, dropping lines that reach
// zero. Lines added or raised after the checkout read stay in the cart.
func (s *Service) Deduct(ctx context.Context, owner string, items []Item) error {
	defer s.lock(owner)()
	c, err := s.repo.Get(ctx, owner)
	if err != nil {
		return err
	}
	for _, it := range items {
		c.set(it.ProductID, c.Quantity(it.ProductID)-it.Quantity)
	}
	if len(c.Items) == 0 {
		if err := s.repo.Delete(ctx, owner); err != nil {
			return err
		}
		s.metrics.CartUpdated()
		return nil
	}
	_, err = s.save(ctx, c)
	return err
}

// Merge folds from into to. Quantities are summed and capped at stock and MaxQuantity;
// products that are gone or inactive are dropped. from is deleted afterwards.
func (s *Service) Merge(ctx context.Context, from, to string) (Cart, error) {
	if from == "" || from == to {
		return s.repo.Get(ctx, to)
	}
	src, err := s.repo.Get(ctx, from)
	if err != nil {
		return Cart{}, err
	}
	defer s.lock(to)()
	dst, err := s.repo.Get(ctx, to)
	if err != nil {
		return Cart{}, err
	}
	if len(src.Items) == 0 {
		return dst, nil
	}
	for _, it := range src.Items {
		p, err := s.available(ctx, it.ProductID)
		if errors.Is(err, ErrProductNotFound) {
			continue
		}
		if err != nil {
			return Cart{}, err
		}
		qty := dst.Quantity(it.ProductID) + it.Quantity
		qty = min(qty, p.Stock, MaxQuantity)
		dst.set(it.ProductID, qty)
	}
	dst, err = s.save(ctx, dst)
	if err != nil {
		return Cart{}, err
	}
	if err := s.repo.Delete(ctx, from); err != nil {
		s.log.Warn("failed to delete merged guest cart", zap.String("owner", from), zap.Error(err))
	}
	return dst, nil
}

// View prices the cart with current catalog prices in the requested currency. Lines whose
// product has disappeared are left out.
func (s *Service) View(ctx context.Context, owner, locale, currency string) (View, error) {
	c, err := s.repo.Get(ctx, owner)
	if err != nil {
		return View{}, err
	}
	code, rate := currency, decimal.NewFromInt(1)
	if s.currencies != nil {
		code, rate, err = s.currencies.Rate(ctx, currency)
		if err != nil {
			return View{}, err
		}
	}
	return s.price(ctx, c, locale, code, rate)
}

func (s *Service) price(ctx context.Context, c Cart, locale, code string, rate decimal.Decimal) (View, error) {
	v := View{Items: []Line{}, Subtotal: decimal.Zero, Currency: code, UpdatedAt: c.UpdatedAt}
	if len(c.Items) == 0 {
		return v, nil
	}
	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return View{}, err
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, it := range c.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		lp := p.Localize(locale)
		unit := money.Round(p.Price.Mul(rate))
		total := unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		v.Items = append(v.Items, Line{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      lp.Name,
			Slug:      p.Slug,
			Image:     p.Image(),
			UnitPrice: unit,
			Quantity:  it.Quantity,
			LineTotal: total,
			Stock:     p.Stock,
		})
		v.ItemCount += it.Quantity
		v.Subtotal = v.Subtotal.Add(total)
	}
	return v, nil
}
