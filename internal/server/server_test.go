package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/address"
	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/cache"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/category"
	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/contact"
	"github.com/wichananm65/storefront-backend/internal/mailer"
	"github.com/wichananm65/storefront-backend/internal/metrics"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/setting"
	"github.com/wichananm65/storefront-backend/internal/storage"
	"github.com/wichananm65/storefront-backend/internal/translation"
	"github.com/wichananm65/storefront-backend/internal/user"
	"github.com/wichananm65/storefront-backend/internal/wishlist"
)

type fixture struct {
	app      *fiber.App
	deps     Deps
	product  product.Product
	tokens   *auth.Tokens
	pingFail bool
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "storefront", Env: "test"},
		HTTP: config.HTTPConfig{
			CORSAllowOrigins:  []string{"*"},
			BodyLimit:         1 << 20,
			AuthRateLimit:     100,
			AuthRateWindow:    time.Minute,
			SuggestRateLimit:  100,
			SuggestRateWindow: time.Minute,
		},
		I18n: config.I18nConfig{DefaultLocale: "en", Locales: []string{"en", "th"}},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	cfg := testConfig()
	store := cache.NewMemory()
	m := metrics.New()
	mail := mailer.NewLog(nil)

	files, err := storage.NewLocal(t.TempDir(), "")
	require.NoError(t, err)

	productRepo := product.NewInMemoryRepository()
	categories := category.NewService(category.NewInMemoryRepository(), store, time.Minute, nil)
	categories.SetProductCounter(productRepo)
	products := product.NewService(productRepo, categories, store, time.Minute, nil)
	settings := setting.NewService(setting.NewInMemoryRepository(), store, time.Minute,
		setting.Defaults("Pet Shop", "en", []string{"en", "th"}), nil)
	carts := cart.NewService(cart.NewInMemoryRepository(), products, settings, m, nil)
	addresses := address.NewService(address.NewInMemoryRepository(), nil)

	f := &fixture{tokens: auth.NewTokens("server-test-secret", time.Hour, "storefront")}
	f.deps = Deps{
		Config:  cfg,
		Tokens:  f.tokens,
		Metrics: m,
		Ping: func(context.Context) error {
			if f.pingFail {
				return errors.New("connection refused")
			}
			return nil
		},
		Categories: categories,
		Products:   products,
		Wishlists:  wishlist.NewService(wishlist.NewInMemoryRepository(), products, m, nil),
		Carts:      carts,
		Orders: order.NewService(order.NewInMemoryRepository(), order.Deps{
			Carts: carts, Stock: products, Pricing: settings, Addresses: addresses, Mailer: mail, Metrics: m,
		}),
		Addresses:    addresses,
		Settings:     settings,
		Translations: translation.NewService(translation.NewInMemoryRepository(), store, time.Minute, "en", nil),
		Users:        user.NewService(user.NewInMemoryRepository(), files, nil),
		Contact:      contact.NewService(mail, settings, "hello@shop.test", nil),
		Files:        files,
	}

	cat, err := categories.Create(ctx, category.Input{Name: "Cat snacks"})
	require.NoError(t, err)
	f.product, err = products.Create(ctx, product.Input{
		SKU: "SNK-1", Name: "Tuna treats", Price: decimal.NewFromInt(120), Stock: 10, CategoryID: cat.ID,
	})
	require.NoError(t, err)

	f.app = New(f.deps)
	return f
}

func (f *fixture) bearer(t *testing.T, id, role string) string {
	t.Helper()
	tok, _, err := f.tokens.Issue(auth.Identity{UserID: id, Email: id + "@shop.test", Role: role})
	require.NoError(t, err)
	return "Bearer " + tok
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := f.app.Test(req)
	require.NoError(t, err)
	return res
}

func sessionCookie(res *http.Response) string {
	for _, c := range res.Cookies() {
		if c.Name == auth.SessionCookie {
			return c.Value
		}
	}
	return ""
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	f.pingFail = true
	res = f.do(t, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, res.StatusCode)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, "GET", "/api/v1/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
	b, _ := io.ReadAll(res.Body)
	assert.JSONEq(t, `{"message":"route not found"}`, string(b))
}

func TestPublicCatalogIssuesSessionAndLocale(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, "GET", "/api/v1/products?currency=THB", "", map[string]string{"Accept-Language": "th-TH,th;q=0.9"})
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.NotEmpty(t, sessionCookie(res))
	assert.Equal(t, "th", res.Header.Get(fiber.HeaderContentLanguage))
	assert.NotEmpty(t, res.Header.Get(fiber.HeaderXRequestID))

	b, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(b), "Tuna treats")
}

func TestAdminGuard(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, "GET", "/api/v1/admin/users", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	res = f.do(t, "GET", "/api/v1/admin/orders", "", map[string]string{"Accept": "text/html"})
	assert.Equal(t, fiber.StatusFound, res.StatusCode)
	assert.Equal(t, "/login?callbackUrl=%2Fapi%2Fv1%2Fadmin%2Forders", res.Header.Get(fiber.HeaderLocation))

	customer := map[string]string{"Authorization": f.bearer(t, "u1", auth.RoleCustomer)}
	res = f.do(t, "GET", "/api/v1/admin/users", "", customer)
	assert.Equal(t, fiber.StatusForbidden, res.StatusCode)

	admin := map[string]string{"Authorization": f.bearer(t, "a1", auth.RoleAdmin)}
	res = f.do(t, "GET", "/api/v1/admin/users", "", admin)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	res = f.do(t, "POST", "/api/v1/translations", `{"locale":"en","key":"k","value":"v"}`, customer)
	assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
}

func TestProfileRequiresToken(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, "GET", "/api/v1/profile", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	res = f.do(t, "GET", "/api/v1/addresses", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestSignInMergesGuestWishlistAndCart(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, "GET", "/api/v1/wishlist/count", "", nil)
	sid := sessionCookie(res)
	require.NotEmpty(t, sid)
	guest := map[string]string{"Cookie": auth.SessionCookie + "=" + sid}

	res = f.do(t, "POST", "/api/v1/wishlist", `{"productId":"`+f.product.ID+`"}`, guest)
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	res = f.do(t, "POST", "/api/v1/cart/items", `{"productId":"`+f.product.ID+`","quantity":2}`, guest)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	res = f.do(t, "POST", "/api/v1/sign-up", `{"email":"jenny@example.com","password":"password123","name":"Jenny"}`, guest)
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	res = f.do(t, "POST", "/api/v1/sign-in", `{"email":"jenny@example.com","password":"password123"}`, guest)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var signIn struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&signIn))

	member := map[string]string{"Authorization": "Bearer " + signIn.Token}
	res = f.do(t, "GET", "/api/v1/wishlist/count", "", member)
	b, _ := io.ReadAll(res.Body)
	assert.JSONEq(t, `{"count":1}`, string(b))

	res = f.do(t, "GET", "/api/v1/cart", "", member)
	b, _ = io.ReadAll(res.Body)
	assert.Contains(t, string(b), f.product.ID)

	res = f.do(t, "GET", "/api/v1/wishlist/count", "", guest)
	b, _ = io.ReadAll(res.Body)
	assert.JSONEq(t, `{"count":0}`, string(b))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, "GET", "/api/v1/categories", "", nil)
	res := f.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	b, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(b), "storefront_http_requests_total")
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(zap.NewNop()), Immutable: true})
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db exploded") })

	res, err := app.Test(httptest.NewRequest("GET", "/teapot", nil))
	require.NoError(t, err)
	b, _ := io.ReadAll(res.Body)
	assert.Equal(t, fiber.StatusTeapot, res.StatusCode)
	assert.JSONEq(t, `{"message":"short and stout"}`, string(b))

	res, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	b, _ = io.ReadAll(res.Body)
	assert.Equal(t, fiber.StatusInternalServerError, res.StatusCode)
	assert.JSONEq(t, `{"message":"internal server error"}`, string(b))
}

func TestStoredRouteValuesSurviveLaterRequests(t *testing.T) {
	f := newFixture(t)
	admin := map[string]string{"Authorization": f.bearer(t, "a1", auth.RoleAdmin)}

	res := f.do(t, "PUT", "/api/v1/admin/currencies/USD", `{"symbol":"$","rate":"0.028"}`, admin)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	res = f.do(t, "GET", "/api/v1/search/suggestions?q=tuna-treats-and-more", "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	res = f.do(t, "GET", "/api/v1/currencies", "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"USD"`)
}
