// Package database opens the configured backing store and prepares its schema.
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/config"
)

// Collection names.
const (
	CollUsers        = "users"
	CollCategories   = "categories"
	CollProducts     = "products"
	CollWishlists    = "wishlists"
	CollCarts        = "carts"
	CollOrders       = "orders"
	CollAddresses    = "addresses"
	CollSettings     = "settings"
	CollTranslations = "translations"
	CollCounters     = "counters"
)

type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func ConnectMongo(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))
	return &Mongo{Client: client, DB: client.Database(cfg.MongoDatabase)}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// MongoIndexes lists the indexes every collection needs. Unique indexes carry the
// uniqueness rules of the domain (slug, sku, email, wishlist pair, translation key).
func MongoIndexes() map[string][]mongo.IndexModel {
	unique := func(name string) *options.IndexOptions {
		return options.Index().SetUnique(true).SetName(name)
	}
	return map[string][]mongo.IndexModel{
		CollUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique("uniq_email")},
		},
		CollCategories: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique("uniq_slug")},
			{Keys: bson.D{{Key: "parentId", Value: 1}}},
			{Keys: bson.D{{Key: "level", Value: 1}, {Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}}},
		},
		CollProducts: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique("uniq_slug")},
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: unique("uniq_sku")},
			{Keys: bson.D{{Key: "categoryId", Value: 1}, {Key: "active", Value: 1}}},
			{Keys: bson.D{{Key: "featured", Value: -1}, {Key: "name", Value: 1}}},
		},
		CollWishlists: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "productId", Value: 1}}, Options: unique("uniq_owner_product")},
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		CollOrders: {
			{Keys: bson.D{{Key: "number", Value: 1}}, Options: unique("uniq_number")},
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		CollAddresses: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		CollTranslations: {
			{Keys: bson.D{{Key: "locale", Value: 1}, {Key: "namespace", Value: 1}, {Key: "key", Value: 1}}, Options: unique("uniq_locale_ns_key")},
		},
	}
}

// EnsureIndexes creates missing indexes; existing ones are left untouched.
func (m *Mongo) EnsureIndexes(ctx context.Context, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for coll, models := range MongoIndexes() {
		names, err := m.DB.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		log.Debug("indexes ensured", zap.String("collection", coll), zap.Strings("indexes", names))
	}
	return nil
}
