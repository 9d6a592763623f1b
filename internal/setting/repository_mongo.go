package setting

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wichananm65/storefront-backend/internal/money"
)

const documentID = "site"

type shippingDoc struct {
	FlatRate      primitive.Decimal128 `bson:"flatRate"`
	FreeThreshold primitive.Decimal128 `bson:"freeThreshold"`
}

type currencyDoc struct {
	Code    string               `bson:"code"`
	Symbol  string               `bson:"symbol"`
	Rate    primitive.Decimal128 `bson:"rate"`
	Default bool                 `bson:"default"`
}

type settingsDoc struct {
	ID         string        `bson:"_id"`
	Site       Site          `bson:"site"`
	Shipping   shippingDoc   `bson:"shipping"`
	Currencies []currencyDoc `bson:"currencies"`
	Carousels  []Carousel    `bson:"carousels"`
	UpdatedAt  time.Time     `bson:"updatedAt"`
}

func toDoc(s Settings) settingsDoc {
	d := settingsDoc{
		ID:   documentID,
		Site: s.Site,
		Shipping: shippingDoc{
			FlatRate:      money.ToDecimal128(s.Shipping.FlatRate),
			FreeThreshold: money.ToDecimal128(s.Shipping.FreeThreshold),
		},
		Currencies: make([]currencyDoc, 0, len(s.Currencies)),
		Carousels:  s.Carousels,
		UpdatedAt:  s.UpdatedAt,
	}
	for _, c := range s.Currencies {
		d.Currencies = append(d.Currencies, currencyDoc{Code: c.Code, Symbol: c.Symbol, Rate: money.ToDecimal128(c.Rate), Default: c.Default})
	}
	if d.Carousels == nil {
		d.Carousels = []Carousel{}
	}
	return d
}

func (d settingsDoc) toSettings() Settings {
	s := Settings{
		Site: d.Site,
		Shipping: Shipping{
			FlatRate:      money.FromDecimal128(d.Shipping.FlatRate),
			FreeThreshold: money.FromDecimal128(d.Shipping.FreeThreshold),
		},
		Currencies: make([]Currency, 0, len(d.Currencies)),
		Carousels:  d.Carousels,
		UpdatedAt:  d.UpdatedAt,
	}
	for _, c := range d.Currencies {
		s.Currencies = append(s.Currencies, Currency{Code: c.Code, Symbol: c.Symbol, Rate: money.FromDecimal128(c.Rate), Default: c.Default})
	}
	if s.Carousels == nil {
		s.Carousels = []Carousel{}
	}
	if s.Site.Social == nil {
		s.Site.Social = map[string]string{}
	}
	return s
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("settings")}
}

func (r *MongoRepository) Get(ctx context.Context) (Settings, error) {
	var d settingsDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": documentID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, err
	}
	return d.toSettings(), nil
}

func (r *MongoRepository) Save(ctx context.Context, s Settings) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": documentID}, toDoc(s), options.Replace().SetUpsert(true))
	return err
}
