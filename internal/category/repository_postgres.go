package category

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/wichananm65/storefront-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	categoryColumns = `id, name, slug, parent_id, level, sort_order, image, description, translations, created_at, updated_at`

	listCategoriesQuery = `SELECT ` + categoryColumns + ` FROM categories ORDER BY level, sort_order, name`
	getCategoryQuery    = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	getBySlugQuery      = `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1`
	insertCategoryQuery = `
		INSERT INTO categories (id, name, slug, parent_id, level, sort_order, image, description, translations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	updateCategoryQuery = `
		UPDATE categories
		SET name = $2, slug = $3, parent_id = $4, level = $5, sort_order = $6, image = $7,
			description = $8, translations = $9, updated_at = $10
		WHERE id = $1
	`
	setLevelQuery       = `UPDATE categories SET level = $2, updated_at = now() WHERE id = $1`
	deleteCategoryQuery = `DELETE FROM categories WHERE id = $1`
	countChildrenQuery  = `SELECT COUNT(*) FROM categories WHERE parent_id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(s rowScanner) (Category, error) {
	var (
		c      Category
		parent sql.NullString
		trans  []byte
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Slug, &parent, &c.Level, &c.SortOrder, &c.Image, &c.Description, &trans, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Category{}, err
	}
	if parent.Valid {
		c.ParentID = &parent.String
	}
	if len(trans) > 0 {
		if err := json.Unmarshal(trans, &c.Translations); err != nil {
			return Category{}, err
		}
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, listCategoriesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Category, error) {
	return r.getOne(ctx, getCategoryQuery, id)
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (Category, error) {
	return r.getOne(ctx, getBySlugQuery, slug)
}

func (r *PostgresRepository) getOne(ctx context.Context, q, arg string) (Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

func translationsJSON(t map[string]Localized) ([]byte, error) {
	if t == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(t)
}

func (r *PostgresRepository) Create(ctx context.Context, c Category) (Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	trans, err := translationsJSON(c.Translations)
	if err != nil {
		return Category{}, err
	}
	_, err = r.db.ExecContext(ctx, insertCategoryQuery,
		c.ID, c.Name, c.Slug, c.ParentID, c.Level, c.SortOrder, c.Image, c.Description, trans, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Category{}, ErrSlugTaken
		}
		return Category{}, err
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c Category) (Category, error) {
	trans, err := translationsJSON(c.Translations)
	if err != nil {
		return Category{}, err
	}
	res, err := r.db.ExecContext(ctx, updateCategoryQuery,
		c.ID, c.Name, c.Slug, c.ParentID, c.Level, c.SortOrder, c.Image, c.Description, trans, c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Category{}, ErrSlugTaken
		}
		return Category{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (r *PostgresRepository) SetLevels(ctx context.Context, levels map[string]int) error {
	if len(levels) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for id, lvl := range levels {
		if _, err := tx.ExecContext(ctx, setLevelQuery, id, lvl); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteCategoryQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CountChildren(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countChildrenQuery, id).Scan(&n)
	return n, err
}
