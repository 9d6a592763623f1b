package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	orderColumns = `id, number, owner_id, user_id, email, items, currency, exchange_rate,
		subtotal, shipping, total, address, note, status, created_at, updated_at`

	nextNumberQuery  = `SELECT nextval('order_number_seq')`
	insertOrderQuery = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	getOrderQuery          = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	updateOrderStatusQuery = `
		UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o              Order
		items, address []byte
	)
	err := row.Scan(&o.ID, &o.Number, &o.OwnerID, &o.UserID, &o.Email, &items, &o.Currency, &o.ExchangeRate,
		&o.Subtotal, &o.Shipping, &o.Total, &address, &o.Note, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return Order{}, fmt.Errorf("decode order items: %w", err)
	}
	if err := json.Unmarshal(address, &o.Address); err != nil {
		return Order{}, fmt.Errorf("decode order address: %w", err)
	}
	if o.Items == nil {
		o.Items = []Line{}
	}
	return o, nil
}

func (r *PostgresRepository) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, nextNumberQuery).Scan(&n)
	return n, err
}

func (r *PostgresRepository) Create(ctx context.Context, o Order) (Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Items == nil {
		o.Items = []Line{}
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return Order{}, err
	}
	address, err := json.Marshal(o.Address)
	if err != nil {
		return Order{}, err
	}
	_, err = r.db.ExecContext(ctx, insertOrderQuery,
		o.ID, o.Number, o.OwnerID, o.UserID, o.Email, items, o.Currency, o.ExchangeRate,
		o.Subtotal, o.Shipping, o.Total, address, o.Note, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	o, err := scanOrder(r.db.QueryRowContext(ctx, getOrderQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// whereClause renders the filter as a WHERE clause and its arguments.
func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) (Page, error) {
	f = f.normalize()
	where, args := whereClause(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return Page{}, err
	}

	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, number DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, f.PageSize, f.offset())...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	p := Page{Items: []Order{}, Total: total, Page: f.Page, PageSize: f.PageSize}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return Page{}, err
		}
		p.Items = append(p.Items, o)
	}
	return p, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	o, err := scanOrder(r.db.QueryRowContext(ctx, updateOrderStatusQuery, id, from, to, at))
	if errors.Is(err, sql.ErrNoRows) {
		if _, gErr := r.Get(ctx, id); gErr != nil {
			return Order{}, gErr
		}
		return Order{}, ErrInvalidTransition
	}
	return o, err
}
