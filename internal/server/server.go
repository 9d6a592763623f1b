// Package server assembles the HTTP application: middleware, routes and the error handler.
package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/address"
	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/category"
	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/contact"
	"github.com/wichananm65/storefront-backend/internal/i18n"
	"github.com/wichananm65/storefront-backend/internal/logger"
	"github.com/wichananm65/storefront-backend/internal/metrics"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/setting"
	"github.com/wichananm65/storefront-backend/internal/storage"
	"github.com/wichananm65/storefront-backend/internal/translation"
	"github.com/wichananm65/storefront-backend/internal/user"
	"github.com/wichananm65/storefront-backend/internal/wishlist"
)

// Deps are the services the routes are served from. Ping backs GET /health and may be nil
// for the in-memory driver. UploadDir is served at /uploads when set.
type Deps struct {
	Config  *config.Config
	Log     *zap.Logger
	Tokens  *auth.Tokens
	Metrics *metrics.Metrics
	Ping    func(ctx context.Context) error

	Categories   *category.Service
	Products     *product.Service
	Wishlists    *wishlist.Service
	Carts        *cart.Service
	Orders       *order.Service
	Addresses    *address.Service
	Settings     *setting.Service
	Translations *translation.Service
	Users        *user.Service
	Contact      *contact.Service
	Files        storage.Store
	UploadDir    string
}

func New(d Deps) *fiber.App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	cfg := d.Config
	locale := cfg.I18n.DefaultLocale

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.HTTP.BodyLimit,
		ErrorHandler: errorHandler(d.Log),
		// Params, queries and cookies end up in repositories and cache keys.
		Immutable: true,
	})

	app.Use(requestid.New(requestid.Config{ContextKey: logger.RequestIDLocal}))
	app.Use(logger.Middleware(d.Log))
	app.Use(recover.New())
	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
	}
	app.Use(corsMiddleware(cfg.HTTP.CORSAllowOrigins))

	mw := auth.NewMiddleware(d.Tokens, cfg.App.Env == "production")
	app.Use(i18n.NewNegotiator(locale, cfg.I18n.Locales).Middleware())

	app.Get("/health", health(d.Ping))
	if d.Metrics != nil {
		app.Get("/metrics", d.Metrics.Handler())
	}
	if d.UploadDir != "" {
		app.Static("/uploads", d.UploadDir)
	}

	api := app.Group("/api/v1", mw.Session(), mw.Optional())
	required := mw.Required()
	api.Use("/profile", required)
	api.Use("/addresses", required)
	api.Use("/sign-in", rateLimit(cfg.HTTP.AuthRateLimit, cfg.HTTP.AuthRateWindow))
	api.Use("/sign-up", rateLimit(cfg.HTTP.AuthRateLimit, cfg.HTTP.AuthRateWindow))
	api.Use("/contact", rateLimit(cfg.HTTP.AuthRateLimit, cfg.HTTP.AuthRateWindow))
	api.Use("/search/suggestions", rateLimit(cfg.HTTP.SuggestRateLimit, cfg.HTTP.SuggestRateWindow))

	admin := api.Group("/admin", mw.AdminGuard())

	categories := category.NewHandler(d.Categories, locale, d.Log)
	categories.RegisterPublicRoutes(api)
	categories.RegisterAdminRoutes(admin)

	products := product.NewHandler(d.Products, d.Settings, locale, d.Log)
	products.RegisterPublicRoutes(api)
	products.RegisterAdminRoutes(admin)

	settings := setting.NewHandler(d.Settings, d.Log)
	settings.RegisterPublicRoutes(api)
	settings.RegisterAdminRoutes(admin)

	translation.NewHandler(d.Translations, d.Log).RegisterRoutes(api, mw.AdminGuard())
	wishlist.NewHandler(d.Wishlists, locale, d.Log).RegisterRoutes(api)
	cart.NewHandler(d.Carts, locale, d.Log).RegisterRoutes(api)
	address.NewHandler(d.Addresses, d.Log).RegisterRoutes(api)

	orders := order.NewHandler(d.Orders, locale, d.Log)
	orders.RegisterRoutes(api)
	orders.RegisterAdminRoutes(admin)

	users := user.NewHandler(d.Users, d.Tokens, d.Metrics, d.Log, mergers(d)...)
	users.RegisterPublicRoutes(api)
	users.RegisterRoutes(api)
	users.RegisterAdminRoutes(admin)

	if d.Files != nil {
		storage.NewHandler(d.Files, d.Log).RegisterAdminRoutes(admin)
	}
	if d.Contact != nil {
		contact.NewHandler(d.Contact, d.Log).RegisterRoutes(api)
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "route not found"})
	})
	return app
}

// mergers move the guest wishlist and cart into the account on sign-in.
func mergers(d Deps) []user.Merger {
	return []user.Merger{
		func(ctx context.Context, from, to string) error {
			_, err := d.Wishlists.Merge(ctx, from, to)
			return err
		},
		func(ctx context.Context, from, to string) error {
			_, err := d.Carts.Merge(ctx, from, to)
			return err
		},
	}
}

func corsMiddleware(origins []string) fiber.Handler {
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Accept-Language",
		AllowCredentials: !wildcard,
	})
}

func rateLimit(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": "too many requests"})
		},
	})
}

func health(ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "database": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
