package product

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/wichananm65/storefront-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	productColumns = `id, sku, name, slug, description, price, compare_at_price, stock, category_id, images, tags, featured, active, score, translations, created_at, updated_at`

	getProductQuery    = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	getBySlugQuery     = `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	getManyQuery       = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	insertProductQuery = `
		INSERT INTO products (id, sku, name, slug, description, price, compare_at_price, stock, category_id,
			images, tags, featured, active, score, translations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	updateProductQuery = `
		UPDATE products
		SET sku = $2, name = $3, slug = $4, description = $5, price = $6, compare_at_price = $7, stock = $8,
			category_id = $9, images = $10, tags = $11, featured = $12, active = $13, score = $14,
			translations = $15, updated_at = $16
		WHERE id = $1
	`
	deleteProductQuery = `DELETE FROM products WHERE id = $1`
	adjustStockQuery   = `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING ` + productColumns
	countByCategoryQuery = `SELECT COUNT(*) FROM products WHERE category_id = $1`
	suggestQuery         = `
		SELECT ` + productColumns + ` FROM products
		WHERE active AND (name ILIKE $1 OR sku ILIKE $1 OR translations->$2->>'name' ILIKE $1)
		ORDER BY featured DESC, name, id
		LIMIT $3
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (Product, error) {
	var (
		p       Product
		compare decimal.NullDecimal
		images  pq.StringArray
		tags    pq.StringArray
		trans   []byte
	)
	err := s.Scan(&p.ID, &p.SKU, &p.Name, &p.Slug, &p.Description, &p.Price, &compare, &p.Stock, &p.CategoryID,
		&images, &tags, &p.Featured, &p.Active, &p.Score, &trans, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if compare.Valid {
		p.CompareAtPrice = &compare.Decimal
	}
	p.Images = nonNil(images)
	p.Tags = nonNil(tags)
	if len(trans) > 0 {
		if err := json.Unmarshal(trans, &p.Translations); err != nil {
			return Product{}, err
		}
	}
	return p, nil
}

func (r *PostgresRepository) scanAll(rows *sql.Rows) ([]Product, error) {
	defer rows.Close()
	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// likePattern escapes LIKE wildcards in q and wraps it for a contains match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.IDs != nil {
		add("id = ANY($%d)", pq.Array(f.IDs))
	}
	if f.CategoryIDs != nil {
		add("category_id = ANY($%d)", pq.Array(f.CategoryIDs))
	}
	if f.ExcludeID != "" {
		add("id <> $%d", f.ExcludeID)
	}
	if f.ActiveOnly {
		conds = append(conds, "active")
	}
	if f.Featured != nil {
		add("featured = $%d", *f.Featured)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("(name ILIKE $%[1]d OR sku ILIKE $%[1]d OR array_to_string(tags, ' ') ILIKE $%[1]d)", likePattern(q))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(order string) string {
	switch order {
	case SortPriceAsc:
		return " ORDER BY price ASC, id"
	case SortPriceDesc:
		return " ORDER BY price DESC, id"
	case SortName:
		return " ORDER BY name ASC, id"
	case SortScore:
		return " ORDER BY score DESC, id"
	default:
		return " ORDER BY created_at DESC, id"
	}
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Product, int64, error) {
	where, args := whereClause(f)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + productColumns + ` FROM products` + where + orderClause(f.Sort)
	if f.PageSize > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, f.offset())
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Product, error) {
	return r.getOne(ctx, getProductQuery, id)
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (Product, error) {
	return r.getOne(ctx, getBySlugQuery, slug)
}

func (r *PostgresRepository) getOne(ctx context.Context, q, arg string) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	rows, err := r.db.QueryContext(ctx, getManyQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func productArgs(p Product) ([]any, error) {
	trans := []byte(`{}`)
	if p.Translations != nil {
		b, err := json.Marshal(p.Translations)
		if err != nil {
			return nil, err
		}
		trans = b
	}
	var compare any
	if p.CompareAtPrice != nil {
		compare = *p.CompareAtPrice
	}
	return []any{p.ID, p.SKU, p.Name, p.Slug, p.Description, p.Price, compare, p.Stock, p.CategoryID,
		pq.Array(nonNil(p.Images)), pq.Array(nonNil(p.Tags)), p.Featured, p.Active, p.Score, trans}, nil
}

func uniqueErr(err error) error {
	if strings.Contains(database.ConstraintName(err), "sku") {
		return ErrSKUTaken
	}
	return ErrSlugTaken
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	args, err := productArgs(p)
	if err != nil {
		return Product{}, err
	}
	args = append(args, p.CreatedAt, p.UpdatedAt)
	if _, err := r.db.ExecContext(ctx, insertProductQuery, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return Product{}, uniqueErr(err)
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p Product) (Product, error) {
	args, err := productArgs(p)
	if err != nil {
		return Product{}, err
	}
	args = append(args, p.UpdatedAt)
	res, err := r.db.ExecContext(ctx, updateProductQuery, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Product{}, uniqueErr(err)
		}
		return Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AdjustStock(ctx context.Context, id string, delta int) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, adjustStockQuery, id, delta))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return Product{}, getErr
		}
		return Product{}, ErrInsufficientStock
	}
	return p, err
}

func (r *PostgresRepository) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countByCategoryQuery, categoryID).Scan(&n)
	return n, err
}

func (r *PostgresRepository) Suggest(ctx context.Context, q, locale string, limit int) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, suggestQuery, likePattern(q), locale, limit)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}
