package order

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

type lineDoc struct {
	ProductID string               `bson:"productId"`
	SKU       string               `bson:"sku"`
	Name      string               `bson:"name"`
	UnitPrice primitive.Decimal128 `bson:"unitPrice"`
	Quantity  int                  `bson:"quantity"`
	LineTotal primitive.Decimal128 `bson:"lineTotal"`
}

type orderDoc struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Number       int64                `bson:"number"`
	OwnerID      string               `bson:"ownerId"`
	UserID       string               `bson:"userId,omitempty"`
	Email        string               `bson:"email"`
	Items        []lineDoc            `bson:"items"`
	Currency     string               `bson:"currency"`
	ExchangeRate primitive.Decimal128 `bson:"exchangeRate"`
	Subtotal     primitive.Decimal128 `bson:"subtotal"`
	Shipping     primitive.Decimal128 `bson:"shipping"`
	Total        primitive.Decimal128 `bson:"total"`
	Address      ShippingAddress      `bson:"address"`
	Note         string               `bson:"note,omitempty"`
	Status       Status               `bson:"status"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

func toDoc(o Order) orderDoc {
	d := orderDoc{
		Number:       o.Number,
		OwnerID:      o.OwnerID,
		UserID:       o.UserID,
		Email:        o.Email,
		Items:        make([]lineDoc, 0, len(o.Items)),
		Currency:     o.Currency,
		ExchangeRate: money.ToDecimal128(o.ExchangeRate),
		Subtotal:     money.ToDecimal128(o.Subtotal),
		Shipping:     money.ToDecimal128(o.Shipping),
		Total:        money.ToDecimal128(o.Total),
		Address:      o.Address,
		Note:         o.Note,
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for _, l := range o.Items {
		d.Items = append(d.Items, lineDoc{
			ProductID: l.ProductID,
			SKU:       l.SKU,
			Name:      l.Name,
			UnitPrice: money.ToDecimal128(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: money.ToDecimal128(l.LineTotal),
		})
	}
	return d
}

func (d orderDoc) toOrder() Order {
	o := Order{
		ID:           d.ID.Hex(),
		Number:       d.Number,
		OwnerID:      d.OwnerID,
		UserID:       d.UserID,
		Email:        d.Email,
		Items:        make([]Line, 0, len(d.Items)),
		Currency:     d.Currency,
		ExchangeRate: money.FromDecimal128(d.ExchangeRate),
		Subtotal:     money.FromDecimal128(d.Subtotal),
		Shipping:     money.FromDecimal128(d.Shipping),
		Total:        money.FromDecimal128(d.Total),
		Address:      d.Address,
		Note:         d.Note,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	for _, l := range d.Items {
		o.Items = append(o.Items, Line{
			ProductID: l.ProductID,
			SKU:       l.SKU,
			Name:      l.Name,
			UnitPrice: money.FromDecimal128(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: money.FromDecimal128(l.LineTotal),
		})
	}
	return o
}

// MongoRepository stores orders in the orders collection and draws numbers from
// the "orders" document of the counters collection.
type MongoRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("orders"), counters: db.Collection("counters")}
}

func (r *MongoRepository) NextNumber(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "orders"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return firstNumber - 1 + counter.Seq, nil
}

func (r *MongoRepository) Create(ctx context.Context, o Order) (Order, error) {
	d := toDoc(o)
	d.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return Order{}, err
	}
	return d.toOrder(), nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Order{}, ErrNotFound
	}
	var d orderDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return d.toOrder(), nil
}

func buildFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.OwnerID != "" {
		filter["ownerId"] = f.OwnerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func (r *MongoRepository) List(ctx context.Context, f Filter) (Page, error) {
	f = f.normalize()
	filter := buildFilter(f)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "number", Value: -1}}).
		SetSkip(int64(f.offset())).
		SetLimit(int64(f.PageSize))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return Page{}, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return Page{}, err
	}
	p := Page{Items: make([]Order, 0, len(docs)), Total: int(total), Page: f.Page, PageSize: f.PageSize}
	for _, d := range docs {
		p.Items = append(p.Items, d.toOrder())
	}
	return p, nil
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Order{}, ErrNotFound
	}
	var d orderDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gErr := r.Get(ctx, id); gErr != nil {
			return Order{}, gErr
		}
		return Order{}, ErrInvalidTransition
	}
	if err != nil {
		return Order{}, err
	}
	return d.toOrder(), nil
}
