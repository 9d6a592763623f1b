package translation

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
	translationColumns = `id, locale, namespace, key, value, updated_at`

	getTranslationQuery    = `SELECT ` + translationColumns + ` FROM translations WHERE id = $1`
	insertTranslationQuery = `INSERT INTO translations (` + translationColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	updateTranslationQuery = `
		UPDATE translations SET locale = $2, namespace = $3, key = $4, value = $5, updated_at = $6
		WHERE id = $1
	`
	deleteTranslationQuery = `DELETE FROM translations WHERE id = $1`
	upsertTranslationQuery = `
		INSERT INTO translations (` + translationColumns + `) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (locale, namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranslation(s rowScanner) (Translation, error) {
	var t Translation
	err := s.Scan(&t.ID, &t.Locale, &t.Namespace, &t.Key, &t.Value, &t.UpdatedAt)
	return t, err
}

func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Locale != "" {
		args = append(args, f.Locale)
		conds = append(conds, fmt.Sprintf("locale = $%d", len(args)))
	}
	if f.Namespace != "" {
		args = append(args, f.Namespace)
		conds = append(conds, fmt.Sprintf("namespace = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		conds = append(conds, fmt.Sprintf("(key ILIKE $%d OR value ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Translation, error) {
	where, args := whereClause(f)
	rows, err := r.db.QueryContext(ctx, `SELECT `+translationColumns+` FROM translations`+where+` ORDER BY locale, namespace, key`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Translation, 0)
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Translation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Translation{}, ErrNotFound
	}
	t, err := scanTranslation(r.db.QueryRowContext(ctx, getTranslationQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Translation{}, ErrNotFound
	}
	return t, err
}

func (r *PostgresRepository) Create(ctx context.Context, t Translation) (Translation, error) {
	t.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, insertTranslationQuery, t.ID, t.Locale, t.Namespace, t.Key, t.Value, t.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Translation{}, ErrDuplicate
	}
	if err != nil {
		return Translation{}, err
	}
	return t, nil
}

func (r *PostgresRepository) Update(ctx context.Context, t Translation) (Translation, error) {
	if _, err := uuid.Parse(t.ID); err != nil {
		return Translation{}, ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, updateTranslationQuery, t.ID, t.Locale, t.Namespace, t.Key, t.Value, t.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Translation{}, ErrDuplicate
	}
	if err != nil {
		return Translation{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Translation{}, ErrNotFound
	}
	return t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, deleteTranslationQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, t Translation) error {
	_, err := r.db.ExecContext(ctx, upsertTranslationQuery, uuid.NewString(), t.Locale, t.Namespace, t.Key, t.Value, t.UpdatedAt)
	return err
}
