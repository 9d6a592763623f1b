package order

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/wichananm65/storefront-backend/internal/money"
)

var orderCols = []string{"id", "number", "owner_id", "user_id", "email", "items", "currency", "exchange_rate",
	"subtotal", "shipping", "total", "address", "note", "status", "created_at", "updated_at"}

func orderRow(t *testing.T, id string, status Status) []driver.Value {
	t.Helper()
	items, err := json.Marshal([]Line{{ProductID: "p1", SKU: "BALL-1", Name: "Ball", UnitPrice: decimal.NewFromInt(120), Quantity: 2, LineTotal: decimal.NewFromInt(240)}})
	require.NoError(t, err)
	addr, err := json.Marshal(*testAddress)
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []driver.Value{id, int64(1001), "user:7", "7", "u@example.com", items, "THB", "1",
		"240.00", "50.00", "290.00", addr, "", string(status), now, now}
}

func TestPostgresRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	ctx := context.Background()
	id := uuid.NewString()

	mock.ExpectQuery(regexp.QuoteMeta(nextNumberQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(1001)))
	n, err := repo.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), n)

	mock.ExpectQuery(regexp.QuoteMeta(getOrderQuery)).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(orderRow(t, id, StatusPending)...))
	o, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "290", o.Total.String())
	require.Len(t, o.Items, 1)
	assert.Equal(t, "BALL-1", o.Items[0].SKU)
	assert.Equal(t, "Bangkok", o.Address.City)

	_, err = repo.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	at := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(updateOrderStatusQuery)).WithArgs(id, StatusPending, StatusPaid, at).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(orderRow(t, id, StatusPaid)...))
	o, err = repo.UpdateStatus(ctx, id, StatusPending, StatusPaid, at)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)

	mock.ExpectQuery(regexp.QuoteMeta(updateOrderStatusQuery)).WithArgs(id, StatusPending, StatusPaid, at).
		WillReturnRows(sqlmock.NewRows(orderCols))
	mock.ExpectQuery(regexp.QuoteMeta(getOrderQuery)).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(orderRow(t, id, StatusPaid)...))
	_, err = repo.UpdateStatus(ctx, id, StatusPending, StatusPaid, at)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	id := uuid.NewString()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM orders WHERE owner_id = $1 AND status = $2`)).
		WithArgs("user:7", StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(`ORDER BY created_at DESC, number DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("user:7", StatusPending, 20, 20).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(orderRow(t, id, StatusPending)...))

	p, err := repo.List(context.Background(), Filter{OwnerID: "user:7", Status: StatusPending, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 21, p.Total)
	assert.Equal(t, 2, p.Page)
	require.Len(t, p.Items, 1)
	assert.Equal(t, id, p.Items[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWhereClause(t *testing.T) {
	where, args := whereClause(Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = whereClause(Filter{Status: StatusShipped})
	assert.Equal(t, " WHERE status = $1", where)
	assert.Equal(t, []any{StatusShipped}, args)
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("next number", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{{Key: "_id", Value: "orders"}, {Key: "seq", Value: int64(3)}}},
		})
		n, err := repo.NextNumber(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1003), n)
	})

	mt.Run("get decodes amounts", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.orders", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "number", Value: int64(1001)},
			{Key: "ownerId", Value: "guest:abc"},
			{Key: "email", Value: "b@example.com"},
			{Key: "items", Value: bson.A{bson.D{
				{Key: "productId", Value: "p1"},
				{Key: "name", Value: "Ball"},
				{Key: "unitPrice", Value: money.ToDecimal128(decimal.RequireFromString("3.36"))},
				{Key: "quantity", Value: 2},
				{Key: "lineTotal", Value: money.ToDecimal128(decimal.RequireFromString("6.72"))},
			}}},
			{Key: "currency", Value: "USD"},
			{Key: "exchangeRate", Value: money.ToDecimal128(decimal.RequireFromString("0.028"))},
			{Key: "total", Value: money.ToDecimal128(decimal.RequireFromString("8.12"))},
			{Key: "status", Value: "pending"},
		}))
		o, err := repo.Get(context.Background(), id.Hex())
		require.NoError(t, err)
		assert.Equal(t, id.Hex(), o.ID)
		assert.Equal(t, "8.12", o.Total.String())
		assert.Equal(t, "6.72", o.Items[0].LineTotal.String())
		assert.Equal(t, StatusPending, o.Status)
	})

	mt.Run("invalid id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		_, err := repo.Get(context.Background(), "1001")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("update status conflict", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "storefront.orders", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: id},
				{Key: "status", Value: "shipped"},
			}),
		)
		_, err := repo.UpdateStatus(context.Background(), id.Hex(), StatusPending, StatusPaid, time.Now())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}
