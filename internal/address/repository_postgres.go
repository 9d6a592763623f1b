package address

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
	addressColumns = `id, user_id, name, line1, line2, city, postal_code, country, phone, is_default, created_at, updated_at`

	listAddressesQuery = `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC, id`
	getAddressQuery    = `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 AND id = $2`
	insertAddressQuery = `
		INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	updateAddressQuery = `
		UPDATE addresses
		SET name = $3, line1 = $4, line2 = $5, city = $6, postal_code = $7, country = $8, phone = $9,
			is_default = $10, updated_at = $11
		WHERE user_id = $1 AND id = $2
	`
	deleteAddressQuery = `DELETE FROM addresses WHERE user_id = $1 AND id = $2`
	// one statement flips every row of the user so there is never a second default
	setDefaultQuery = `
		UPDATE addresses SET is_default = (id = $2)
		WHERE user_id = $1 AND EXISTS (SELECT 1 FROM addresses WHERE user_id = $1 AND id = $2)
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(s rowScanner) (Address, error) {
	var a Address
	err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Line1, &a.Line2, &a.City, &a.PostalCode, &a.Country, &a.Phone,
		&a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]Address, error) {
	rows, err := r.db.QueryContext(ctx, listAddressesQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (Address, error) {
	a, err := scanAddress(r.db.QueryRowContext(ctx, getAddressQuery, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Address{}, ErrNotFound
	}
	return a, err
}

func (r *PostgresRepository) Create(ctx context.Context, a Address) (Address, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertAddressQuery, a.ID, a.UserID, a.Name, a.Line1, a.Line2, a.City,
		a.PostalCode, a.Country, a.Phone, a.IsDefault, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return Address{}, err
	}
	return a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a Address) (Address, error) {
	res, err := r.db.ExecContext(ctx, updateAddressQuery, a.UserID, a.ID, a.Name, a.Line1, a.Line2, a.City,
		a.PostalCode, a.Country, a.Phone, a.IsDefault, a.UpdatedAt)
	if err != nil {
		return Address{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Address{}, ErrNotFound
	}
	return a, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, deleteAddressQuery, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetDefault(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, setDefaultQuery, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
