package wishlist

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type itemDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	OwnerID   string             `bson:"ownerId"`
	ProductID string             `bson:"productId"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d itemDoc) toItem() Item {
	return Item{ID: d.ID.Hex(), OwnerID: d.OwnerID, ProductID: d.ProductID, CreatedAt: d.CreatedAt}
}

// MongoRepository relies on the unique (ownerId, productId) index for idempotent adds.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("wishlists")}
}

func (r *MongoRepository) Add(ctx context.Context, item Item) (Item, bool, error) {
	d := itemDoc{ID: primitive.NewObjectID(), OwnerID: item.OwnerID, ProductID: item.ProductID, CreatedAt: item.CreatedAt}
	_, err := r.coll.InsertOne(ctx, d)
	if err == nil {
		return d.toItem(), true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return Item{}, false, err
	}
	existing, err := r.Get(ctx, item.OwnerID, item.ProductID)
	if err != nil {
		return Item{}, false, err
	}
	return existing, false, nil
}

func (r *MongoRepository) Remove(ctx context.Context, ownerID, productID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"ownerId": ownerID, "productId": productID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotInWishlist
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, ownerID, productID string) (Item, error) {
	var d itemDoc
	err := r.coll.FindOne(ctx, bson.M{"ownerId": ownerID, "productId": productID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Item{}, ErrNotInWishlist
	}
	if err != nil {
		return Item{}, err
	}
	return d.toItem(), nil
}

func (r *MongoRepository) List(ctx context.Context, ownerID string) ([]Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "productId", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]Item, 0)
	for cur.Next(ctx) {
		var d itemDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toItem())
	}
	return out, cur.Err()
}

func (r *MongoRepository) Count(ctx context.Context, ownerID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"ownerId": ownerID})
	return int(n), err
}

func (r *MongoRepository) Clear(ctx context.Context, ownerID string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"ownerId": ownerID})
	return err
}
