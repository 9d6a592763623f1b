// Package app opens the configured database and builds the repositories both binaries use.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/address"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/category"
	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/database"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/setting"
	"github.com/wichananm65/storefront-backend/internal/translation"
	"github.com/wichananm65/storefront-backend/internal/user"
	"github.com/wichananm65/storefront-backend/internal/wishlist"
)

// Repositories groups one repository per domain package over a single database.
type Repositories struct {
	Categories   category.Repository
	Products     product.Repository
	Wishlists    wishlist.Repository
	Carts        cart.Repository
	Orders       order.Repository
	Addresses    address.Repository
	Settings     setting.Repository
	Translations translation.Repository
	Users        user.Repository
}

// Open connects the configured database and returns the repositories on top of it, a ping
// for /health and a close func. The ping is nil for the memory driver.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Repositories, func(context.Context) error, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		mdb, err := database.ConnectMongo(ctx, cfg.Database, log)
		if err != nil {
			return Repositories{}, nil, nil, err
		}
		if err := mdb.EnsureIndexes(ctx, log); err != nil {
			_ = mdb.Close(context.Background())
			return Repositories{}, nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		db := mdb.DB
		return Repositories{
			Categories:   category.NewMongoRepository(db),
			Products:     product.NewMongoRepository(db),
			Wishlists:    wishlist.NewMongoRepository(db),
			Carts:        cart.NewMongoRepository(db),
			Orders:       order.NewMongoRepository(db),
			Addresses:    address.NewMongoRepository(db),
			Settings:     setting.NewMongoRepository(db),
			Translations: translation.NewMongoRepository(db),
			Users:        user.NewMongoRepository(db),
		}, mdb.Ping, func() { _ = mdb.Close(context.Background()) }, nil

	case config.DriverPostgres:
		db, err := database.OpenPostgres(ctx, cfg.Database, log)
		if err != nil {
			return Repositories{}, nil, nil, err
		}
		if err := database.MigratePostgres(ctx, db); err != nil {
			_ = db.Close()
			return Repositories{}, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return PostgresRepositories(db), db.PingContext, func() { _ = db.Close() }, nil

	case config.DriverMemory:
		log.Warn("using in-memory repositories; data is lost on restart")
		return Repositories{
			Categories:   category.NewInMemoryRepository(),
			Products:     product.NewInMemoryRepository(),
			Wishlists:    wishlist.NewInMemoryRepository(),
			Carts:        cart.NewInMemoryRepository(),
			Orders:       order.NewInMemoryRepository(),
			Addresses:    address.NewInMemoryRepository(),
			Settings:     setting.NewInMemoryRepository(),
			Translations: translation.NewInMemoryRepository(),
			Users:        user.NewInMemoryRepository(),
		}, nil, func() {}, nil
	}
	return Repositories{}, nil, nil, errors.New("unknown database driver " + cfg.Database.Driver)
}

func PostgresRepositories(db *sql.DB) Repositories {
	return Repositories{
		Categories:   category.NewPostgresRepository(db),
		Products:     product.NewPostgresRepository(db),
		Wishlists:    wishlist.NewPostgresRepository(db),
		Carts:        cart.NewPostgresRepository(db),
		Orders:       order.NewPostgresRepository(db),
		Addresses:    address.NewPostgresRepository(db),
		Settings:     setting.NewPostgresRepository(db),
		Translations: translation.NewPostgresRepository(db),
		Users:        user.NewPostgresRepository(db),
	}
}
