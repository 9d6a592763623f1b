package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/address"
	"github.com/wichananm65/storefront-backend/internal/app"
	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/cache"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/category"
	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/contact"
	"github.com/wichananm65/storefront-backend/internal/logger"
	"github.com/wichananm65/storefront-backend/internal/mailer"
	"github.com/wichananm65/storefront-backend/internal/metrics"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/server"
	"github.com/wichananm65/storefront-backend/internal/setting"
	"github.com/wichananm65/storefront-backend/internal/storage"
	"github.com/wichananm65/storefront-backend/internal/translation"
	"github.com/wichananm65/storefront-backend/internal/user"
	"github.com/wichananm65/storefront-backend/internal/wishlist"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, ping, closeDB, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	store := cache.New(ctx, cfg.Redis.URL, cfg.Redis.Enabled, log)
	files, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	mail := mailer.New(cfg.Mail, log)
	m := metrics.New()
	ttl := cfg.Cache.TTL

	categories := category.NewService(repos.Categories, store, ttl, log)
	categories.SetProductCounter(repos.Products)
	products := product.NewService(repos.Products, categories, store, ttl, log)
	settings := setting.NewService(repos.Settings, store, ttl,
		setting.Defaults(cfg.App.Name, cfg.I18n.DefaultLocale, cfg.I18n.Locales), log)
	carts := cart.NewService(repos.Carts, products, settings, m, log)
	addresses := address.NewService(repos.Addresses, log)
	users := user.NewService(repos.Users, files, log)

	if err := settings.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("default settings: %w", err)
	}
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if _, err := users.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	deps := server.Deps{
		Config:     cfg,
		Log:        log,
		Tokens:     auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer),
		Metrics:    m,
		Ping:       ping,
		Categories: categories,
		Products:   products,
		Wishlists:  wishlist.NewService(repos.Wishlists, products, m, log),
		Carts:      carts,
		Orders: order.NewService(repos.Orders, order.Deps{
			Carts:     carts,
			Stock:     products,
			Pricing:   settings,
			Addresses: addresses,
			Mailer:    mail,
			Metrics:   m,
			Log:       log,
		}),
		Addresses:    addresses,
		Settings:     settings,
		Translations: translation.NewService(repos.Translations, store, ttl, cfg.I18n.DefaultLocale, log),
		Users:        users,
		Contact:      contact.NewService(mail, settings, cfg.Mail.From, log),
		Files:        files,
	}
	if local, ok := files.(*storage.Local); ok {
		deps.UploadDir = local.Dir()
	}
	srv := server.New(deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.App.Addr), zap.String("env", cfg.App.Env),
			zap.String("database", cfg.Database.Driver))
		errCh <- srv.Listen(cfg.App.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := srv.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if c, ok := store.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	return nil
}
