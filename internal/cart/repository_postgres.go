package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	getCartQuery    = `SELECT items, updated_at FROM carts WHERE owner_id = $1`
	upsertCartQuery = `
		INSERT INTO carts (owner_id, items, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at
	`
	deleteCartQuery = `DELETE FROM carts WHERE owner_id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID string) (Cart, error) {
	c := Cart{OwnerID: ownerID, Items: []Item{}}
	var raw []byte
	err := r.db.QueryRowContext(ctx, getCartQuery, ownerID).Scan(&raw, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return Cart{}, err
	}
	if err := json.Unmarshal(raw, &c.Items); err != nil {
		return Cart{}, err
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c, nil
}

func (r *PostgresRepository) Save(ctx context.Context, c Cart) error {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertCartQuery, c.OwnerID, raw, c.UpdatedAt)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, deleteCartQuery, ownerID)
	return err
}
