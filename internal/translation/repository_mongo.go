package translation

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
)

type translationDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Locale    string             `bson:"locale"`
	Namespace string             `bson:"namespace"`
	Key       string             `bson:"key"`
	Value     string             `bson:"value"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d translationDoc) toTranslation() Translation {
	return Translation{
		ID:        d.ID.Hex(),
		Locale:    d.Locale,
		Namespace: d.Namespace,
		Key:       d.Key,
		Value:     d.Value,
		UpdatedAt: d.UpdatedAt,
	}
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("translations")}
}

func buildFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.Locale != "" {
		filter["locale"] = f.Locale
	}
	if f.Namespace != "" {
		filter["namespace"] = f.Namespace
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		filter["$or"] = bson.A{bson.M{"key": rx}, bson.M{"value": rx}}
	}
	return filter
}

func (r *MongoRepository) List(ctx context.Context, f Filter) ([]Translation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "locale", Value: 1}, {Key: "namespace", Value: 1}, {Key: "key", Value: 1}})
	cur, err := r.coll.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, err
	}
	var docs []translationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Translation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toTranslation())
	}
	return out, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (Translation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Translation{}, ErrNotFound
	}
	var d translationDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Translation{}, ErrNotFound
	}
	if err != nil {
		return Translation{}, err
	}
	return d.toTranslation(), nil
}

func (r *MongoRepository) Create(ctx context.Context, t Translation) (Translation, error) {
	d := translationDoc{
		ID:        primitive.NewObjectID(),
		Locale:    t.Locale,
		Namespace: t.Namespace,
		Key:       t.Key,
		Value:     t.Value,
		UpdatedAt: t.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Translation{}, ErrDuplicate
		}
		return Translation{}, err
	}
	return d.toTranslation(), nil
}

func (r *MongoRepository) Update(ctx context.Context, t Translation) (Translation, error) {
	oid, err := primitive.ObjectIDFromHex(t.ID)
	if err != nil {
		return Translation{}, ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"locale":    t.Locale,
		"namespace": t.Namespace,
		"key":       t.Key,
		"value":     t.Value,
		"updatedAt": t.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Translation{}, ErrDuplicate
		}
		return Translation{}, err
	}
	if res.MatchedCount == 0 {
		return Translation{}, ErrNotFound
	}
	return t, nil
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

func (r *MongoRepository) Upsert(ctx context.Context, t Translation) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"locale": t.Locale, "namespace": t.Namespace, "key": t.Key},
		bson.M{"$set": bson.M{"value": t.Value, "updatedAt": t.UpdatedAt}},
		options.Update().SetUpsert(true),
	)
	return err
}
