package address

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type addressDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	UserID     string             `bson:"userId"`
	Name       string             `bson:"name"`
	Line1      string             `bson:"line1"`
	Line2      string             `bson:"line2,omitempty"`
	City       string             `bson:"city"`
	PostalCode string             `bson:"postalCode"`
	Country    string             `bson:"country"`
	Phone      string             `bson:"phone,omitempty"`
	IsDefault  bool               `bson:"isDefault"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d addressDoc) toAddress() Address {
	return Address{
		ID: d.ID.Hex(), UserID: d.UserID, Name: d.Name, Line1: d.Line1, Line2: d.Line2, City: d.City,
		PostalCode: d.PostalCode, Country: d.Country, Phone: d.Phone, IsDefault: d.IsDefault,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

func toDoc(a Address) addressDoc {
	return addressDoc{
		UserID: a.UserID, Name: a.Name, Line1: a.Line1, Line2: a.Line2, City: a.City,
		PostalCode: a.PostalCode, Country: a.Country, Phone: a.Phone, IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("addresses")}
}

func (r *MongoRepository) List(ctx context.Context, userID string) ([]Address, error) {
	opts := options.Find().SetSort(bson.D{{Key: "isDefault", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]Address, 0)
	for cur.Next(ctx) {
		var d addressDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toAddress())
	}
	return out, cur.Err()
}

func (r *MongoRepository) Get(ctx context.Context, userID, id string) (Address, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Address{}, ErrNotFound
	}
	var d addressDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid, "userId": userID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Address{}, ErrNotFound
	}
	if err != nil {
		return Address{}, err
	}
	return d.toAddress(), nil
}

func (r *MongoRepository) Create(ctx context.Context, a Address) (Address, error) {
	d := toDoc(a)
	d.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return Address{}, err
	}
	return d.toAddress(), nil
}

func (r *MongoRepository) Update(ctx context.Context, a Address) (Address, error) {
	oid, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		return Address{}, ErrNotFound
	}
	d := toDoc(a)
	d.ID = oid
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid, "userId": a.UserID}, d)
	if err != nil {
		return Address{}, err
	}
	if res.MatchedCount == 0 {
		return Address{}, ErrNotFound
	}
	return d.toAddress(), nil
}

func (r *MongoRepository) Delete(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) SetDefault(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid, "userId": userID}, bson.M{"$set": bson.M{"isDefault": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	_, err = r.coll.UpdateMany(ctx,
		bson.M{"userId": userID, "_id": bson.M{"$ne": oid}, "isDefault": true},
		bson.M{"$set": bson.M{"isDefault": false}})
	return err
}
