package category

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var categoryCols = []string{"id", "name", "slug", "parent_id", "level", "sort_order", "image", "description", "translations", "created_at", "updated_at"}

func TestPostgresList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(categoryCols).
		AddRow("c1", "Food", "food", nil, 0, 1, "", "", []byte(`{"th":{"name":"อาหาร"}}`), now, now).
		AddRow("c2", "Cat food", "cat-food", "c1", 1, 0, "", "", []byte(`{}`), now, now)
	mock.ExpectQuery("SELECT (.+) FROM categories ORDER BY level, sort_order, name").WillReturnRows(rows)

	items, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(items))
	}
	if items[0].Translations["th"].Name != "อาหาร" {
		t.Fatalf("translations not decoded: %+v", items[0].Translations)
	}
	if items[1].ParentID == nil || *items[1].ParentID != "c1" {
		t.Fatalf("parent not scanned: %+v", items[1].ParentID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("FROM categories WHERE id").WithArgs("x").WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), "x"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresCreate_DuplicateSlug(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("INSERT INTO categories").WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "categories_slug_key"})
	_, err = repo.Create(context.Background(), Category{Name: "A", Slug: "a"})
	if err != ErrSlugTaken {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestPostgresSetLevels(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE categories SET level").WithArgs("c2", 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	if err := repo.SetLevels(context.Background(), map[string]int{"c2": 2}); err != nil {
		t.Fatalf("set levels: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresDelete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("DELETE FROM categories").WithArgs("x").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), "x"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
