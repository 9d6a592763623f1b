package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wichananm65/storefront-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	userColumns = `id, email, password_hash, name, phone, role, avatar_url, avatar_key, created_at, updated_at`

	getUserQuery        = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	insertUserQuery     = `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	updateUserQuery     = `
		UPDATE users
		SET email = $2, password_hash = $3, name = $4, phone = $5, role = $6,
			avatar_url = $7, avatar_key = $8, updated_at = $9
		WHERE id = $1
	`
	deleteUserQuery  = `DELETE FROM users WHERE id = $1`
	countByRoleQuery = `SELECT COUNT(*) FROM users WHERE role = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (User, error) {
	var u User
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.AvatarURL, &u.AvatarKey, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Role != "" {
		args = append(args, f.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		conds = append(conds, fmt.Sprintf("(email ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]User, int, error) {
	f = f.normalize()
	where, args := whereClause(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, email LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, f.PageSize, f.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepository) get(ctx context.Context, query, arg string) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return r.get(ctx, getUserQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.get(ctx, getUserByEmailQuery, email)
}

func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	u.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, insertUserQuery,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Role, u.AvatarURL, u.AvatarKey, u.CreatedAt, u.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return User{}, ErrEmailExists
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepository) Update(ctx context.Context, u User) (User, error) {
	if _, err := uuid.Parse(u.ID); err != nil {
		return User{}, ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, updateUserQuery,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Role, u.AvatarURL, u.AvatarKey, u.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return User{}, ErrEmailExists
	}
	if err != nil {
		return User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, deleteUserQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countByRoleQuery, role).Scan(&n)
	return n, err
}
