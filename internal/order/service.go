package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/address"
	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/mailer"
	"github.com/wichananm65/storefront-backend/internal/metrics"
	"github.com/wichananm65/storefront-backend/internal/money"
	"github.com/wichananm65/storefront-backend/internal/product"
)

type Carts interface {
	Get(ctx context.Context, owner string) (cart.Cart, error)
	Deduct(ctx context.Context, owner string, items []cart.Item) error
}

type Stock interface {
	Get(ctx context.Context, id string) (product.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) (product.Product, error)
}

// Pricing resolves currencies and the shipping fee, both against the default currency.
type Pricing interface {
	Rate(ctx context.Context, code string) (string, decimal.Decimal, error)
	ShippingFor(ctx context.Context, subtotal decimal.Decimal) (decimal.Decimal, error)
}

type Addresses interface {
	Get(ctx context.Context, userID, id string) (address.Address, error)
	Default(ctx context.Context, userID string) (address.Address, error)
}

type Service struct {
	repo      Repository
	carts     Carts
	stock     Stock
	pricing   Pricing
	addresses Addresses
	mail      mailer.Mailer
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

type Deps struct {
	Carts     Carts
	Stock     Stock
	Pricing   Pricing
	Addresses Addresses
	Mailer    mailer.Mailer
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

func NewService(repo Repository, d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		carts:     d.Carts,
		stock:     d.Stock,
		pricing:   d.Pricing,
		addresses: d.Addresses,
		mail:      d.Mailer,
		metrics:   d.Metrics,
		log:       d.Log,
		now:       time.Now,
	}
}

type reservation struct {
	product  product.Product
	quantity int
}

// Checkout turns the owner's cart into a pending order. Stock is taken item by item and
// given back if any later step fails.
func (s *Service) Checkout(ctx context.Context, owner, locale string, in CheckoutInput) (Order, error) {
	userID, _ := auth.UserIDFromOwner(owner)

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return Order{}, ErrEmailRequired
	}
	addr, err := s.shippingAddress(ctx, userID, in)
	if err != nil {
		return Order{}, err
	}
	code, rate, err := s.pricing.Rate(ctx, in.Currency)
	if err != nil {
		return Order{}, err
	}

	c, err := s.carts.Get(ctx, owner)
	if err != nil {
		return Order{}, err
	}
	if len(c.Items) == 0 {
		return Order{}, ErrEmptyCart
	}

	reserved, err := s.reserve(ctx, c)
	if err != nil {
		return Order{}, err
	}

	o := Order{
		OwnerID:      owner,
		UserID:       userID,
		Email:        email,
		Items:        make([]Line, 0, len(reserved)),
		Currency:     code,
		ExchangeRate: rate,
		Subtotal:     decimal.Zero,
		Address:      addr,
		Note:         strings.TrimSpace(in.Note),
		Status:       StatusPending,
	}
	base := decimal.Zero
	for _, r := range reserved {
		qty := decimal.NewFromInt(int64(r.quantity))
		unit := money.Round(r.product.Price.Mul(rate))
		line := Line{
			ProductID: r.product.ID,
			SKU:       r.product.SKU,
			Name:      r.product.Localize(locale).Name,
			UnitPrice: unit,
			Quantity:  r.quantity,
			LineTotal: unit.Mul(qty),
		}
		o.Items = append(o.Items, line)
		o.Subtotal = o.Subtotal.Add(line.LineTotal)
		base = base.Add(r.product.Price.Mul(qty))
	}

	shipping, err := s.pricing.ShippingFor(ctx, base)
	if err != nil {
		s.release(ctx, reserved)
		return Order{}, err
	}
	o.Shipping = money.Round(shipping.Mul(rate))
	o.Total = o.Subtotal.Add(o.Shipping)

	o.Number, err = s.repo.NextNumber(ctx)
	if err != nil {
		s.release(ctx, reserved)
		return Order{}, err
	}
	o.CreatedAt = s.now().UTC()
	o.UpdatedAt = o.CreatedAt
	o, err = s.repo.Create(ctx, o)
	if err != nil {
		s.release(ctx, reserved)
		return Order{}, err
	}

	ordered := make([]cart.Item, 0, len(reserved))
	for _, r := range reserved {
		ordered = append(ordered, cart.Item{ProductID: r.product.ID, Quantity: r.quantity})
	}
	if err := s.carts.Deduct(ctx, owner, ordered); err != nil {
		s.log.Error("deduct cart after checkout failed", zap.Error(err), zap.String("order", o.ID))
	}
	s.metrics.OrderStatus(string(StatusPending))
	s.sendConfirmation(ctx, o)
	return o, nil
}

func (s *Service) shippingAddress(ctx context.Context, userID string, in CheckoutInput) (ShippingAddress, error) {
	if in.Address != nil {
		return *in.Address, nil
	}
	if userID == "" || s.addresses == nil {
		return ShippingAddress{}, ErrAddressRequired
	}
	var (
		a   address.Address
		err error
	)
	if in.AddressID != "" {
		a, err = s.addresses.Get(ctx, userID, in.AddressID)
	} else {
		a, err = s.addresses.Default(ctx, userID)
	}
	if errors.Is(err, address.ErrNotFound) {
		return ShippingAddress{}, ErrAddressRequired
	}
	if err != nil {
		return ShippingAddress{}, err
	}
	return ShippingAddress{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}, nil
}

func (s *Service) reserve(ctx context.Context, c cart.Cart) ([]reservation, error) {
	reserved := make([]reservation, 0, len(c.Items))
	for _, it := range c.Items {
		p, err := s.stock.Get(ctx, it.ProductID)
		if errors.Is(err, product.ErrNotFound) || (err == nil && !p.Active) {
			s.release(ctx, reserved)
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, it.ProductID)
		}
		if err != nil {
			s.release(ctx, reserved)
			return nil, err
		}
		if _, err := s.stock.AdjustStock(ctx, p.ID, -it.Quantity); err != nil {
			s.release(ctx, reserved)
			if errors.Is(err, product.ErrInsufficientStock) {
				return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
			}
			return nil, err
		}
		reserved = append(reserved, reservation{product: p, quantity: it.Quantity})
	}
	return reserved, nil
}

func (s *Service) release(ctx context.Context, reserved []reservation) {
	for _, r := range reserved {
		if _, err := s.stock.AdjustStock(ctx, r.product.ID, r.quantity); err != nil {
			s.log.Error("stock release failed", zap.Error(err), zap.String("product", r.product.ID), zap.Int("quantity", r.quantity))
		}
	}
}

func (s *Service) restock(ctx context.Context, o Order) {
	for _, l := range o.Items {
		if _, err := s.stock.AdjustStock(ctx, l.ProductID, l.Quantity); err != nil {
			s.log.Error("restock failed", zap.Error(err), zap.String("order", o.ID), zap.String("product", l.ProductID))
		}
	}
}

func (s *Service) sendConfirmation(ctx context.Context, o Order) {
	if s.mail == nil {
		return
	}
	msg := mailer.Message{
		To:      []string{o.Email},
		Subject: fmt.Sprintf("Order #%d confirmation", o.Number),
		Body:    confirmationBody(o),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.Warn("order confirmation not sent", zap.Error(err), zap.Int64("number", o.Number))
	}
}

func confirmationBody(o Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order #%d.\n\n", o.Number)
	for _, l := range o.Items {
		fmt.Fprintf(&b, "%d x %s (%s)  %s %s\n", l.Quantity, l.Name, l.SKU, l.LineTotal.StringFixed(2), o.Currency)
	}
	fmt.Fprintf(&b, "\nSubtotal: %s %s\n", o.Subtotal.StringFixed(2), o.Currency)
	fmt.Fprintf(&b, "Shipping: %s %s\n", o.Shipping.StringFixed(2), o.Currency)
	fmt.Fprintf(&b, "Total: %s %s\n\n", o.Total.StringFixed(2), o.Currency)
	a := o.Address
	fmt.Fprintf(&b, "Ship to:\n%s\n%s\n", a.Name, a.Line1)
	if a.Line2 != "" {
		fmt.Fprintf(&b, "%s\n", a.Line2)
	}
	fmt.Fprintf(&b, "%s %s\n%s\n", a.City, a.PostalCode, a.Country)
	return b.String()
}

// Get returns an order only to the owner that placed it.
func (s *Service) Get(ctx context.Context, owner, id string) (Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.OwnerID != owner {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// GetAny is the admin lookup.
func (s *Service) GetAny(ctx context.Context, id string) (Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) (Page, error) {
	return s.repo.List(ctx, f)
}

// Cancel lets the owner cancel a pending or paid order.
func (s *Service) Cancel(ctx context.Context, owner, id string) (Order, error) {
	o, err := s.Get(ctx, owner, id)
	if err != nil {
		return Order{}, err
	}
	return s.transition(ctx, o, StatusCancelled)
}

func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (Order, error) {
	if !to.Valid() {
		return Order{}, ErrInvalidTransition
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	return s.transition(ctx, o, to)
}

func (s *Service) transition(ctx context.Context, o Order, to Status) (Order, error) {
	if !o.Status.CanTransitionTo(to) {
		return Order{}, ErrInvalidTransition
	}
	updated, err := s.repo.UpdateStatus(ctx, o.ID, o.Status, to, s.now().UTC())
	if err != nil {
		return Order{}, err
	}
	if to == StatusCancelled {
		s.restock(ctx, updated)
	}
	s.metrics.OrderStatus(string(to))
	s.log.Info("order status changed",
		zap.Int64("number", updated.Number),
		zap.String("from", string(o.Status)),
		zap.String("to", string(to)))
	return updated, nil
}
