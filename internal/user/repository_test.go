package user

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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/wichananm65/storefront-backend/internal/auth"
)

func TestPostgresRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "email", "password_hash", "name", "phone", "role", "avatar_url", "avatar_key", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta(getUserByEmailQuery)).
		WithArgs("jenny@example.com").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("6f1c2b8e-0d7a-4f7e-9f55-3b1f9a0c2d11", "jenny@example.com", "hash", "Jenny", "", auth.RoleCustomer, "", "", now, now))
	u, err := repo.GetByEmail(ctx, "jenny@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jenny", u.Name)

	mock.ExpectQuery(regexp.QuoteMeta(getUserByEmailQuery)).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta(insertUserQuery)).
		WithArgs(sqlmock.AnyArg(), "jenny@example.com", "hash", "Jenny", "", auth.RoleCustomer, "", "", now, now).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = repo.Create(ctx, User{Email: "jenny@example.com", PasswordHash: "hash", Name: "Jenny", Role: auth.RoleCustomer, CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, ErrEmailExists)

	mock.ExpectQuery(regexp.QuoteMeta(countByRoleQuery)).
		WithArgs(auth.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	n, err := repo.CountByRole(ctx, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWhereClause(t *testing.T) {
	where, args := whereClause(Filter{Role: auth.RoleAdmin, Query: "jen"})
	assert.Equal(t, " WHERE role = $1 AND (email ILIKE $2 OR name ILIKE $2)", where)
	assert.Equal(t, []any{auth.RoleAdmin, "%jen%"}, args)

	where, args = whereClause(Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get by email", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "storefront.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "email", Value: "jenny@example.com"},
			{Key: "name", Value: "Jenny"},
			{Key: "role", Value: auth.RoleCustomer},
		}))
		u, err := repo.GetByEmail(context.Background(), "jenny@example.com")
		require.NoError(t, err)
		assert.Equal(t, oid.Hex(), u.ID)
		assert.Equal(t, "Jenny", u.Name)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.users", mtest.FirstBatch))
		_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.GetByID(context.Background(), "not-hex")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))
		_, err := repo.Create(context.Background(), User{Email: "jenny@example.com"})
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		assert.ErrorIs(t, repo.Delete(context.Background(), primitive.NewObjectID().Hex()), ErrNotFound)
	})
}
