package translation

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestPostgresRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(insertTranslationQuery)).
		WithArgs(sqlmock.AnyArg(), "en", "common", "cart.title", "Cart", now).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = repo.Create(ctx, Translation{Locale: "en", Namespace: "common", Key: "cart.title", Value: "Cart", UpdatedAt: now})
	assert.ErrorIs(t, err, ErrDuplicate)

	mock.ExpectExec(regexp.QuoteMeta(upsertTranslationQuery)).
		WithArgs(sqlmock.AnyArg(), "en", "common", "cart.title", "Basket", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Upsert(ctx, Translation{Locale: "en", Namespace: "common", Key: "cart.title", Value: "Basket", UpdatedAt: now}))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, locale, namespace, key, value, updated_at FROM translations WHERE locale = $1 AND (key ILIKE $2 OR value ILIKE $2) ORDER BY locale, namespace, key`)).
		WithArgs("en", "%bask%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "locale", "namespace", "key", "value", "updated_at"}).
			AddRow("6f1c2b8e-0d7a-4f7e-9f55-3b1f9a0c2d11", "en", "common", "cart.title", "Basket", now))
	items, err := repo.List(ctx, Filter{Locale: "en", Query: "bask"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Basket", items[0].Value)

	assert.ErrorIs(t, repo.Delete(ctx, "nope"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))
		_, err := repo.Create(context.Background(), Translation{Locale: "en", Namespace: "common", Key: "k"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	mt.Run("upsert", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}))
		require.NoError(t, repo.Upsert(context.Background(), Translation{Locale: "en", Namespace: "common", Key: "k", Value: "v"}))
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		assert.ErrorIs(t, repo.Delete(context.Background(), "65f000000000000000000000"), ErrNotFound)
	})
}

func TestBuildFilter(t *testing.T) {
	f := buildFilter(Filter{Locale: "th", Query: "a.b"})
	assert.Equal(t, "th", f["locale"])
	assert.Contains(t, f, "$or")
	assert.NotContains(t, f, "namespace")
}
