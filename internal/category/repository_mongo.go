package category

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type categoryDoc struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Name         string               `bson:"name"`
	Slug         string               `bson:"slug"`
	ParentID     *primitive.ObjectID  `bson:"parentId,omitempty"`
	Level        int                  `bson:"level"`
	SortOrder    int                  `bson:"sortOrder"`
	Image        string               `bson:"image,omitempty"`
	Description  string               `bson:"description,omitempty"`
	Translations map[string]Localized `bson:"translations,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

func (d categoryDoc) toCategory() Category {
	c := Category{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Slug:         d.Slug,
		Level:        d.Level,
		SortOrder:    d.SortOrder,
		Image:        d.Image,
		Description:  d.Description,
		Translations: d.Translations,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.ParentID != nil {
		p := d.ParentID.Hex()
		c.ParentID = &p
	}
	return c
}

func toDoc(c Category) (categoryDoc, error) {
	d := categoryDoc{
		Name:         c.Name,
		Slug:         c.Slug,
		Level:        c.Level,
		SortOrder:    c.SortOrder,
		Image:        c.Image,
		Description:  c.Description,
		Translations: c.Translations,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if c.ID != "" {
		oid, err := primitive.ObjectIDFromHex(c.ID)
		if err != nil {
			return d, ErrNotFound
		}
		d.ID = oid
	}
	if c.ParentID != nil {
		oid, err := primitive.ObjectIDFromHex(*c.ParentID)
		if err != nil {
			return d, ErrParentNotFound
		}
		d.ParentID = &oid
	}
	return d, nil
}

// MongoRepository stores categories in the categories collection.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("categories")}
}

func (r *MongoRepository) List(ctx context.Context) ([]Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "level", Value: 1}, {Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toCategory())
	}
	return out, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Category, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Category{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoRepository) GetBySlug(ctx context.Context, slug string) (Category, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (Category, error) {
	var d categoryDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Category{}, ErrNotFound
		}
		return Category{}, err
	}
	return d.toCategory(), nil
}

func (r *MongoRepository) Create(ctx context.Context, c Category) (Category, error) {
	c.ID = ""
	d, err := toDoc(c)
	if err != nil {
		return Category{}, err
	}
	d.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Category{}, ErrSlugTaken
		}
		return Category{}, err
	}
	return d.toCategory(), nil
}

func (r *MongoRepository) Update(ctx context.Context, c Category) (Category, error) {
	d, err := toDoc(c)
	if err != nil {
		return Category{}, err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": d.ID}, d)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Category{}, ErrSlugTaken
		}
		return Category{}, err
	}
	if res.MatchedCount == 0 {
		return Category{}, ErrNotFound
	}
	return d.toCategory(), nil
}

func (r *MongoRepository) SetLevels(ctx context.Context, levels map[string]int) error {
	if len(levels) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(levels))
	for id, lvl := range levels {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": oid}).
			SetUpdate(bson.M{"$set": bson.M{"level": lvl, "updatedAt": time.Now().UTC()}}))
	}
	if len(models) == 0 {
		return nil
	}
	_, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
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

func (r *MongoRepository) CountChildren(ctx context.Context, id string) (int, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"parentId": oid})
	return int(n), err
}
