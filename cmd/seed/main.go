// Command seed fills a database with a fake catalog and imports translation files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/app"
	"github.com/wichananm65/storefront-backend/internal/cache"
	"github.com/wichananm65/storefront-backend/internal/category"
	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/logger"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/setting"
	"github.com/wichananm65/storefront-backend/internal/translation"
)

func main() {
	var (
		top          = pflag.Int("categories", 6, "top-level categories to create")
		children     = pflag.Int("children", 2, "child categories under each top-level category")
		perCategory  = pflag.Int("products", 8, "products per child category")
		seed         = pflag.Uint64("seed", 0, "faker seed, 0 for random")
		translations = pflag.String("translations", "./translations", "directory of <locale>[.<namespace>].yaml files")
		skipCatalog  = pflag.Bool("skip-catalog", false, "only import translations")
	)
	pflag.Parse()

	if err := run(*top, *children, *perCategory, *seed, *translations, *skipCatalog); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(top, children, perCategory int, seed uint64, translationsDir string, skipCatalog bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	repos, _, closeDB, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	// revalidate the running server's cache when it shares Redis with us
	store := cache.New(ctx, cfg.Redis.URL, cfg.Redis.Enabled, log)

	categories := category.NewService(repos.Categories, store, cfg.Cache.TTL, log)
	categories.SetProductCounter(repos.Products)
	s := &seeder{
		categories:   categories,
		products:     product.NewService(repos.Products, categories, store, cfg.Cache.TTL, log),
		translations: translation.NewService(repos.Translations, store, cfg.Cache.TTL, cfg.I18n.DefaultLocale, log),
		faker:        gofakeit.New(seed),
		log:          log,
	}

	settings := setting.NewService(repos.Settings, store, cfg.Cache.TTL,
		setting.Defaults(cfg.App.Name, cfg.I18n.DefaultLocale, cfg.I18n.Locales), log)
	if err := settings.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("default settings: %w", err)
	}

	var res result
	if !skipCatalog {
		if res, err = s.catalog(ctx, top, children, perCategory); err != nil {
			return err
		}
	}
	if res.Translations, err = s.importTranslations(ctx, translationsDir); err != nil {
		return fmt.Errorf("import translations: %w", err)
	}
	log.Info("seed complete",
		zap.Int("categories", res.Categories),
		zap.Int("products", res.Products),
		zap.Int("translations", res.Translations))
	return nil
}
