package product

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wichananm65/storefront-backend/internal/money"
)

type productDoc struct {
	ID             primitive.ObjectID    `bson:"_id,omitempty"`
	SKU            string                `bson:"sku"`
	Name           string                `bson:"name"`
	Slug           string                `bson:"slug"`
	Description    string                `bson:"description"`
	Price          primitive.Decimal128  `bson:"price"`
	CompareAtPrice *primitive.Decimal128 `bson:"compareAtPrice,omitempty"`
	Stock          int                   `bson:"stock"`
	CategoryID     primitive.ObjectID    `bson:"categoryId"`
	Images         []string              `bson:"images"`
	Tags           []string              `bson:"tags"`
	Featured       bool                  `bson:"featured"`
	Active         bool                  `bson:"active"`
	Score          float64               `bson:"score"`
	Translations   map[string]Localized  `bson:"translations,omitempty"`
	CreatedAt      time.Time             `bson:"createdAt"`
	UpdatedAt      time.Time             `bson:"updatedAt"`
}

func (d productDoc) toProduct() Product {
	return Product{
		ID:             d.ID.Hex(),
		SKU:            d.SKU,
		Name:           d.Name,
		Slug:           d.Slug,
		Description:    d.Description,
		Price:          money.FromDecimal128(d.Price),
		CompareAtPrice: money.FromDecimal128Ptr(d.CompareAtPrice),
		Stock:          d.Stock,
		CategoryID:     d.CategoryID.Hex(),
		Images:         nonNil(d.Images),
		Tags:           nonNil(d.Tags),
		Featured:       d.Featured,
		Active:         d.Active,
		Score:          d.Score,
		Translations:   d.Translations,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toDoc(p Product) (productDoc, error) {
	d := productDoc{
		SKU:            p.SKU,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Price:          money.ToDecimal128(p.Price),
		CompareAtPrice: money.ToDecimal128Ptr(p.CompareAtPrice),
		Stock:          p.Stock,
		Images:         nonNil(p.Images),
		Tags:           nonNil(p.Tags),
		Featured:       p.Featured,
		Active:         p.Active,
		Score:          p.Score,
		Translations:   p.Translations,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.ID != "" {
		oid, err := primitive.ObjectIDFromHex(p.ID)
		if err != nil {
			return d, ErrNotFound
		}
		d.ID = oid
	}
	cat, err := primitive.ObjectIDFromHex(p.CategoryID)
	if err != nil {
		return d, ErrCategoryNotFound
	}
	d.CategoryID = cat
	return d, nil
}

// MongoRepository stores products in the products collection.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("products")}
}

func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func containsRegex(q string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
}

func buildFilter(f Filter) bson.M {
	filter := bson.M{}
	idCond := bson.M{}
	if f.IDs != nil {
		idCond["$in"] = objectIDs(f.IDs)
	}
	if f.ExcludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(f.ExcludeID); err == nil {
			idCond["$ne"] = oid
		}
	}
	if len(idCond) > 0 {
		filter["_id"] = idCond
	}
	if f.CategoryIDs != nil {
		filter["categoryId"] = bson.M{"$in": objectIDs(f.CategoryIDs)}
	}
	if f.ActiveOnly {
		filter["active"] = true
	}
	if f.Featured != nil {
		filter["featured"] = *f.Featured
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = money.ToDecimal128(*f.MinPrice)
	}
	if f.MaxPrice != nil {
		price["$lte"] = money.ToDecimal128(*f.MaxPrice)
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		rx := containsRegex(q)
		filter["$or"] = bson.A{bson.M{"name": rx}, bson.M{"sku": rx}, bson.M{"tags": rx}}
	}
	return filter
}

func sortDoc(order string) bson.D {
	switch order {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case SortName:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	case SortScore:
		return bson.D{{Key: "score", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}
	}
}

func (r *MongoRepository) List(ctx context.Context, f Filter) ([]Product, int64, error) {
	filter := buildFilter(f)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(sortDoc(f.Sort))
	if f.PageSize > 0 {
		opts.SetSkip(int64(f.offset())).SetLimit(int64(f.PageSize))
	}
	items, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *MongoRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]Product, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toProduct())
	}
	return out, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Product{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoRepository) GetBySlug(ctx context.Context, slug string) (Product, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (Product, error) {
	var d productDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return d.toProduct(), nil
}

func (r *MongoRepository) GetMany(ctx context.Context, ids []string) ([]Product, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []Product{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
}

func duplicateErr(err error) error {
	if strings.Contains(err.Error(), "sku") {
		return ErrSKUTaken
	}
	return ErrSlugTaken
}

func (r *MongoRepository) Create(ctx context.Context, p Product) (Product, error) {
	p.ID = ""
	d, err := toDoc(p)
	if err != nil {
		return Product{}, err
	}
	d.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Product{}, duplicateErr(err)
		}
		return Product{}, err
	}
	return d.toProduct(), nil
}

func (r *MongoRepository) Update(ctx context.Context, p Product) (Product, error) {
	d, err := toDoc(p)
	if err != nil {
		return Product{}, err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": d.ID}, d)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Product{}, duplicateErr(err)
		}
		return Product{}, err
	}
	if res.MatchedCount == 0 {
		return Product{}, ErrNotFound
	}
	return d.toProduct(), nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) AdjustStock(ctx context.Context, id string, delta int) (Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Product{}, ErrNotFound
	}
	filter := bson.M{"_id": oid}
	if delta < 0 {
		filter["stock"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"stock": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	var d productDoc
	err = r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return Product{}, getErr
		}
		return Product{}, ErrInsufficientStock
	}
	if err != nil {
		return Product{}, err
	}
	return d.toProduct(), nil
}

func (r *MongoRepository) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	oid, err := primitive.ObjectIDFromHex(categoryID)
	if err != nil {
		return 0, nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"categoryId": oid})
	return int(n), err
}

func (r *MongoRepository) Suggest(ctx context.Context, q, locale string, limit int) ([]Product, error) {
	rx := containsRegex(q)
	or := bson.A{bson.M{"name": rx}, bson.M{"sku": rx}}
	if locale != "" {
		or = append(or, bson.M{"translations." + locale + ".name": rx})
	}
	filter := bson.M{"active": true, "$or": or}
	opts := options.Find().
		SetSort(bson.D{{Key: "featured", Value: -1}, {Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}
