package wishlist

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	// ON CONFLICT DO NOTHING returns no row for an existing pair.
	addItemQuery = `
		INSERT INTO wishlists (id, owner_id, product_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, product_id) DO NOTHING
		RETURNING id, owner_id, product_id, created_at
	`
	getItemQuery    = `SELECT id, owner_id, product_id, created_at FROM wishlists WHERE owner_id = $1 AND product_id = $2`
	removeItemQuery = `DELETE FROM wishlists WHERE owner_id = $1 AND product_id = $2`
	listItemsQuery  = `
		SELECT id, owner_id, product_id, created_at FROM wishlists
		WHERE owner_id = $1
		ORDER BY created_at DESC, product_id
	`
	countItemsQuery = `SELECT COUNT(*) FROM wishlists WHERE owner_id = $1`
	clearItemsQuery = `DELETE FROM wishlists WHERE owner_id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, item Item) (Item, bool, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	var out Item
	err := r.db.QueryRowContext(ctx, addItemQuery, item.ID, item.OwnerID, item.ProductID, item.CreatedAt).
		Scan(&out.ID, &out.OwnerID, &out.ProductID, &out.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := r.Get(ctx, item.OwnerID, item.ProductID)
		return existing, false, err
	}
	if err != nil {
		return Item{}, false, err
	}
	return out, true, nil
}

func (r *PostgresRepository) Remove(ctx context.Context, ownerID, productID string) error {
	res, err := r.db.ExecContext(ctx, removeItemQuery, ownerID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotInWishlist
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, productID string) (Item, error) {
	var it Item
	err := r.db.QueryRowContext(ctx, getItemQuery, ownerID, productID).Scan(&it.ID, &it.OwnerID, &it.ProductID, &it.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotInWishlist
	}
	return it, err
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, listItemsQuery, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.ProductID, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countItemsQuery, ownerID).Scan(&n)
	return n, err
}

func (r *PostgresRepository) Clear(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, clearItemsQuery, ownerID)
	return err
}
