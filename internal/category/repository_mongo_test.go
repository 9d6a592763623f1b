package category

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get by slug", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		id := primitive.NewObjectID()
		parent := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.categories", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Cat snacks"},
			{Key: "slug", Value: "cat-snacks"},
			{Key: "parentId", Value: parent},
			{Key: "level", Value: 1},
			{Key: "createdAt", Value: time.Now()},
		}))

		c, err := repo.GetBySlug(context.Background(), "cat-snacks")
		require.NoError(t, err)
		assert.Equal(t, id.Hex(), c.ID)
		require.NotNil(t, c.ParentID)
		assert.Equal(t, parent.Hex(), *c.ParentID)
		assert.Equal(t, 1, c.Level)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.categories", mtest.FirstBatch))
		_, err := repo.GetByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.GetByID(context.Background(), "not-an-object-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("create duplicate slug", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))
		_, err := repo.Create(context.Background(), Category{Name: "A", Slug: "a"})
		assert.ErrorIs(t, err, ErrSlugTaken)
	})

	mt.Run("create assigns id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		c, err := repo.Create(context.Background(), Category{Name: "A", Slug: "a"})
		require.NoError(t, err)
		_, err = primitive.ObjectIDFromHex(c.ID)
		assert.NoError(t, err)
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := repo.Delete(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.categories", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "A"}, {Key: "slug", Value: "a"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "B"}, {Key: "slug", Value: "b"}},
		))
		items, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Nil(t, items[0].ParentID)
	})
}
