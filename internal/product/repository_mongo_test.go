package product

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

func productBSON(id, cat primitive.ObjectID, name string, stock int) bson.D {
	p, _ := primitive.ParseDecimal128("149.50")
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "sku", Value: "SKU-" + name},
		{Key: "name", Value: name},
		{Key: "slug", Value: name},
		{Key: "price", Value: p},
		{Key: "stock", Value: stock},
		{Key: "categoryId", Value: cat},
		{Key: "active", Value: true},
		{Key: "createdAt", Value: time.Now()},
	}
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get by slug decodes decimal", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		id, cat := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.products", mtest.FirstBatch, productBSON(id, cat, "ball", 3)))

		p, err := repo.GetBySlug(context.Background(), "ball")
		require.NoError(t, err)
		assert.Equal(t, id.Hex(), p.ID)
		assert.Equal(t, cat.Hex(), p.CategoryID)
		assert.Equal(t, "149.5", p.Price.String())
		assert.NotNil(t, p.Images)
	})

	mt.Run("list counts then finds", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		cat := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "storefront.products", mtest.FirstBatch, bson.D{{Key: "n", Value: 2}}),
			mtest.CreateCursorResponse(0, "storefront.products", mtest.FirstBatch,
				productBSON(primitive.NewObjectID(), cat, "a", 1),
				productBSON(primitive.NewObjectID(), cat, "b", 1)),
		)
		items, total, err := repo.List(context.Background(), Filter{CategoryIDs: []string{cat.Hex()}, Page: 1, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, items, 2)
	})

	mt.Run("create duplicate sku", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error index: sku_1",
		}))
		_, err := repo.Create(context.Background(), Product{SKU: "A", Slug: "a", CategoryID: primitive.NewObjectID().Hex()})
		assert.ErrorIs(t, err, ErrSKUTaken)
	})

	mt.Run("create with bad category id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		_, err := repo.Create(context.Background(), Product{SKU: "A", Slug: "a", CategoryID: "zzz"})
		assert.ErrorIs(t, err, ErrCategoryNotFound)
	})

	mt.Run("adjust stock", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		id, cat := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: productBSON(id, cat, "ball", 1)},
		})
		p, err := repo.AdjustStock(context.Background(), id.Hex(), -2)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Stock)
	})

	mt.Run("adjust stock insufficient", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		id, cat := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "storefront.products", mtest.FirstBatch, productBSON(id, cat, "ball", 0)),
		)
		_, err := repo.AdjustStock(context.Background(), id.Hex(), -1)
		assert.ErrorIs(t, err, ErrInsufficientStock)
	})

	mt.Run("delete invalid id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		assert.ErrorIs(t, repo.Delete(context.Background(), "nope"), ErrNotFound)
	})
}

func TestBuildFilter(t *testing.T) {
	yes := true
	lo := price("10")
	f := buildFilter(Filter{ActiveOnly: true, Featured: &yes, MinPrice: &lo, Query: "a.b"})
	assert.Equal(t, true, f["active"])
	assert.Equal(t, true, f["featured"])
	assert.Contains(t, f, "price")
	assert.Contains(t, f, "$or")
}
