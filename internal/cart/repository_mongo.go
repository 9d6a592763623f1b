package cart

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cartDoc is keyed by owner id.
type cartDoc struct {
	OwnerID   string    `bson:"_id"`
	Items     []Item    `bson:"items"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("carts")}
}

func (r *MongoRepository) Get(ctx context.Context, ownerID string) (Cart, error) {
	var d cartDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Cart{OwnerID: ownerID, Items: []Item{}}, nil
	}
	if err != nil {
		return Cart{}, err
	}
	if d.Items == nil {
		d.Items = []Item{}
	}
	return Cart{OwnerID: d.OwnerID, Items: d.Items, UpdatedAt: d.UpdatedAt}, nil
}

func (r *MongoRepository) Save(ctx context.Context, c Cart) error {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	d := cartDoc{OwnerID: c.OwnerID, Items: items, UpdatedAt: c.UpdatedAt}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": c.OwnerID}, d, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepository) Delete(ctx context.Context, ownerID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": ownerID})
	return err
}
