package user

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"passwordHash"`
	Name         string             `bson:"name"`
	Phone        string             `bson:"phone,omitempty"`
	Role         string             `bson:"role"`
	AvatarURL    string             `bson:"avatarUrl,omitempty"`
	AvatarKey    string             `bson:"avatarKey,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func toDoc(u User) userDoc {
	d := userDoc{
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Phone:        u.Phone,
		Role:         u.Role,
		AvatarURL:    u.AvatarURL,
		AvatarKey:    u.AvatarKey,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(u.ID); err == nil {
		d.ID = oid
	}
	return d
}

func (d userDoc) toUser() User {
	return User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Name:         d.Name,
		Phone:        d.Phone,
		Role:         d.Role,
		AvatarURL:    d.AvatarURL,
		AvatarKey:    d.AvatarKey,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("users")}
}

func buildFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Query != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
		filter["$or"] = bson.A{bson.M{"email": rx}, bson.M{"name": rx}}
	}
	return filter
}

func (r *MongoRepository) List(ctx context.Context, f Filter) ([]User, int, error) {
	f = f.normalize()
	filter := buildFilter(f)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "email", Value: 1}}).
		SetSkip(int64(f.offset())).
		SetLimit(int64(f.PageSize))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toUser())
	}
	return out, int(total), nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (User, error) {
	var d userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return d.toUser(), nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) Create(ctx context.Context, u User) (User, error) {
	d := toDoc(u)
	d.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return d.toUser(), nil
}

func (r *MongoRepository) Update(ctx context.Context, u User) (User, error) {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return User{}, ErrNotFound
	}
	d := toDoc(u)
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, d)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	if res.MatchedCount == 0 {
		return User{}, ErrNotFound
	}
	return u, nil
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

func (r *MongoRepository) CountByRole(ctx context.Context, role string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"role": role})
	return int(n), err
}
