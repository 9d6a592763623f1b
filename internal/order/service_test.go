package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/address"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/mailer"
	"github.com/wichananm65/storefront-backend/internal/money"
	"github.com/wichananm65/storefront-backend/internal/product"
)

type catalog struct{ repo *product.InMemoryRepository }

func (c catalog) Get(ctx context.Context, id string) (product.Product, error) {
	return c.repo.GetByID(ctx, id)
}

func (c catalog) GetMany(ctx context.Context, ids []string) ([]product.Product, error) {
	return c.repo.GetMany(ctx, ids)
}

func (c catalog) AdjustStock(ctx context.Context, id string, delta int) (product.Product, error) {
	return c.repo.AdjustStock(ctx, id, delta)
}

// pricing charges a flat 50 below 1000 of the default currency.
type pricing map[string]decimal.Decimal

func (p pricing) Rate(_ context.Context, code string) (string, decimal.Decimal, error) {
	if code == "" {
		code = "THB"
	}
	rate, ok := p[code]
	if !ok {
		return "", decimal.Zero, money.ErrUnknownCurrency
	}
	return code, rate, nil
}

func (p pricing) ShippingFor(_ context.Context, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if subtotal.GreaterThanOrEqual(decimal.NewFromInt(1000)) {
		return decimal.Zero, nil
	}
	return decimal.NewFromInt(50), nil
}

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

type fixture struct {
	svc       *Service
	products  *product.InMemoryRepository
	carts     *cart.Service
	addresses *address.Service
	mail      *outbox
}

func newFixture() *fixture {
	products := product.NewInMemoryRepository(
		product.Product{ID: "p1", SKU: "BALL-1", Name: "Ball", Price: decimal.RequireFromString("120.00"), Stock: 5, Active: true,
			Translations: map[string]product.Localized{"th": {Name: "ลูกบอล"}}},
		product.Product{ID: "p2", SKU: "MOUSE-1", Name: "Toy mouse", Price: decimal.RequireFromString("35.50"), Stock: 200, Active: true},
	)
	rates := pricing{"THB": decimal.NewFromInt(1), "USD": decimal.RequireFromString("0.028")}
	carts := cart.NewService(cart.NewInMemoryRepository(), catalog{products}, rates, nil, zap.NewNop())
	addresses := address.NewService(address.NewInMemoryRepository(), zap.NewNop())
	mail := &outbox{}
	svc := NewService(NewInMemoryRepository(), Deps{
		Carts:     carts,
		Stock:     catalog{products},
		Pricing:   rates,
		Addresses: addresses,
		Mailer:    mail,
	})
	return &fixture{svc: svc, products: products, carts: carts, addresses: addresses, mail: mail}
}

func (f *fixture) fill(t *testing.T, owner string, items map[string]int) {
	t.Helper()
	for _, id := range []string{"p2", "p1"} {
		if qty, ok := items[id]; ok {
			_, err := f.carts.Add(context.Background(), owner, id, qty)
			require.NoError(t, err)
		}
	}
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

var testAddress = &ShippingAddress{Name: "Somchai", Line1: "1 Sukhumvit Rd", City: "Bangkok", PostalCode: "10110", Country: "TH"}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.fill(t, "guest:a", map[string]int{"p1": 2, "p2": 4})

	o, err := f.svc.Checkout(ctx, "guest:a", "th", CheckoutInput{Email: "buyer@example.com", Address: testAddress})
	require.NoError(t, err)

	assert.Equal(t, int64(1001), o.Number)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "THB", o.Currency)
	assert.Equal(t, "382", o.Subtotal.String())
	assert.Equal(t, "50", o.Shipping.String())
	assert.Equal(t, "432", o.Total.String())
	require.Len(t, o.Items, 2)
	assert.Equal(t, "ลูกบอล", o.Items[1].Name)
	assert.Empty(t, o.UserID)

	assert.Equal(t, 3, f.stock(t, "p1"))
	assert.Equal(t, 196, f.stock(t, "p2"))

	c, err := f.carts.Get(ctx, "guest:a")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, []string{"buyer@example.com"}, f.mail.sent[0].To)
	assert.Contains(t, f.mail.sent[0].Subject, "#1001")
	assert.Contains(t, f.mail.sent[0].Body, "432.00 THB")

	f.fill(t, "guest:a", map[string]int{"p2": 1})
	next, err := f.svc.Checkout(ctx, "guest:a", "en", CheckoutInput{Email: "buyer@example.com", Address: testAddress})
	require.NoError(t, err)
	assert.Equal(t, int64(1002), next.Number)
}

func TestCheckout_ConvertsCurrency(t *testing.T) {
	f := newFixture()
	f.fill(t, "guest:a", map[string]int{"p1": 2, "p2": 4})

	o, err := f.svc.Checkout(context.Background(), "guest:a", "en", CheckoutInput{Email: "b@example.com", Address: testAddress, Currency: "USD"})
	require.NoError(t, err)

	assert.Equal(t, "USD", o.Currency)
	assert.Equal(t, "3.36", o.Items[1].UnitPrice.String())
	assert.Equal(t, "0.99", o.Items[0].UnitPrice.String())
	assert.Equal(t, "10.68", o.Subtotal.String())
	assert.Equal(t, "1.4", o.Shipping.String())
	assert.Equal(t, "12.08", o.Total.String())
}

func TestCheckout_FreeShipping(t *testing.T) {
	f := newFixture()
	f.fill(t, "guest:a", map[string]int{"p2": 30})

	o, err := f.svc.Checkout(context.Background(), "guest:a", "en", CheckoutInput{Email: "b@example.com", Address: testAddress})
	require.NoError(t, err)
	assert.Equal(t, "1065", o.Subtotal.String())
	assert.True(t, o.Shipping.IsZero())
}

func TestCheckout_RollsBackStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.fill(t, "guest:a", map[string]int{"p1": 5, "p2": 4})

	_, err := f.products.AdjustStock(ctx, "p1", -3)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, "guest:a", "en", CheckoutInput{Email: "b@example.com", Address: testAddress})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, 200, f.stock(t, "p2"), "reserved stock must be released")
	assert.Equal(t, 2, f.stock(t, "p1"))

	c, err := f.carts.Get(ctx, "guest:a")
	require.NoError(t, err)
	assert.Len(t, c.Items, 2, "cart is kept on failure")
	assert.Empty(t, f.mail.sent)
}

func TestCheckout_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.svc.Checkout(ctx, "guest:a", "en", CheckoutInput{Email: "b@example.com", Address: testAddress})
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.fill(t, "guest:a", map[string]int{"p2": 1})
	_, err = f.svc.Checkout(ctx, "guest:a", "en", CheckoutInput{Address: testAddress})
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = f.svc.Checkout(ctx, "guest:a", "en", CheckoutInput{Email: "b@example.com"})
	assert.ErrorIs(t, err, ErrAddressRequired)

	_, err = f.svc.Checkout(ctx, "guest:a", "en", CheckoutInput{Email: "b@example.com", Address: testAddress, Currency: "EUR"})
	assert.ErrorIs(t, err, money.ErrUnknownCurrency)

	assert.Equal(t, 200, f.stock(t, "p2"))
}

func TestCheckout_UsesSavedAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	saved, err := f.addresses.Create(ctx, "7", address.Input{Name: "Office", Line1: "9 Silom Rd", City: "Bangkok", PostalCode: "10500", Country: "TH"})
	require.NoError(t, err)

	f.fill(t, "user:7", map[string]int{"p2": 1})
	o, err := f.svc.Checkout(ctx, "user:7", "en", CheckoutInput{Email: "u@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "9 Silom Rd", o.Address.Line1)
	assert.Equal(t, "7", o.UserID)

	f.fill(t, "user:7", map[string]int{"p2": 1})
	o, err = f.svc.Checkout(ctx, "user:7", "en", CheckoutInput{Email: "u@example.com", AddressID: saved.ID})
	require.NoError(t, err)
	assert.Equal(t, "Office", o.Address.Name)

	f.fill(t, "user:7", map[string]int{"p2": 1})
	_, err = f.svc.Checkout(ctx, "user:7", "en", CheckoutInput{Email: "u@example.com", AddressID: "missing"})
	assert.ErrorIs(t, err, ErrAddressRequired)
}

func TestCheckout_MailFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.mail.err = errors.New("smtp down")
	f.fill(t, "guest:a", map[string]int{"p2": 1})

	o, err := f.svc.Checkout(context.Background(), "guest:a", "en", CheckoutInput{Email: "b@example.com", Address: testAddress})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.fill(t, "guest:a", map[string]int{"p1": 2})
	o, err := f.svc.Checkout(ctx, "guest:a", "en", CheckoutInput{Email: "b@example.com", Address: testAddress})
	require.NoError(t, err)
	require.Equal(t, 3, f.stock(t, "p1"))

	_, err = f.svc.Cancel(ctx, "guest:b", o.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, err := f.svc.Cancel(ctx, "guest:a", o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.stock(t, "p1"))

	_, err = f.svc.Cancel(ctx, "guest:a", o.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 5, f.stock(t, "p1"))
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.fill(t, "guest:a", map[string]int{"p2": 1})
	o, err := f.svc.Checkout(ctx, "guest:a", "en", CheckoutInput{Email: "b@example.com", Address: testAddress})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, o.ID, StatusShipped)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.UpdateStatus(ctx, o.ID, Status("lost"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for _, next := range []Status{StatusPaid, StatusShipped, StatusDelivered} {
		o, err = f.svc.UpdateStatus(ctx, o.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, o.Status)
	}
	_, err = f.svc.UpdateStatus(ctx, o.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, "missing", StatusPaid)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	for _, owner := range []string{"guest:a", "guest:a", "guest:b"} {
		f.fill(t, owner, map[string]int{"p2": 1})
		_, err := f.svc.Checkout(ctx, owner, "en", CheckoutInput{Email: "b@example.com", Address: testAddress})
		require.NoError(t, err)
	}

	mine, err := f.svc.List(ctx, Filter{OwnerID: "guest:a"})
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Total)
	assert.Greater(t, mine.Items[0].Number, mine.Items[1].Number)

	all, err := f.svc.List(ctx, Filter{PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Len(t, all.Items, 1)
}

func TestConfirmationBody(t *testing.T) {
	body := confirmationBody(Order{
		Number:   1042,
		Currency: "THB",
		Items:    []Line{{Name: "Ball", SKU: "BALL-1", Quantity: 2, LineTotal: decimal.NewFromInt(240)}},
		Subtotal: decimal.NewFromInt(240),
		Shipping: decimal.NewFromInt(50),
		Total:    decimal.NewFromInt(290),
		Address:  *testAddress,
	})
	assert.True(t, strings.HasPrefix(body, "Thank you for your order #1042."))
	assert.Contains(t, body, "2 x Ball (BALL-1)  240.00 THB")
	assert.Contains(t, body, "Total: 290.00 THB")
	assert.Contains(t, body, "Bangkok 10110")
}

// lateAdd adds to the cart right after checkout has read it.
type lateAdd struct {
	*cart.Service
	after func()
}

func (l lateAdd) Get(ctx context.Context, owner string) (cart.Cart, error) {
	c, err := l.Service.Get(ctx, owner)
	l.after()
	return c, err
}

func TestCheckoutKeepsItemsAddedDuringCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.fill(t, "guest:a", map[string]int{"p1": 2})
	f.svc.carts = lateAdd{Service: f.carts, after: func() {
		_, err := f.carts.Add(ctx, "guest:a", "p2", 3)
		require.NoError(t, err)
		_, err = f.carts.Add(ctx, "guest:a", "p1", 1)
		require.NoError(t, err)
	}}

	o, err := f.svc.Checkout(ctx, "guest:a", "en", CheckoutInput{Email: "buyer@example.com", Address: testAddress})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)

	c, err := f.carts.Get(ctx, "guest:a")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Quantity("p1"))
	assert.Equal(t, 3, c.Quantity("p2"))
}
