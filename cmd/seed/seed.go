package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/category"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/translation"
)

// maxAttempts bounds retries when the faker repeats a name or SKU.
const maxAttempts = 5

type seeder struct {
	categories   *category.Service
	products     *product.Service
	translations *translation.Service
	faker        *gofakeit.Faker
	log          *zap.Logger
	sku          int
}

type result struct {
	Categories   int
	Products     int
	Translations int
}

// catalog creates top-level categories, children under each, and products in every child.
func (s *seeder) catalog(ctx context.Context, top, children, perCategory int) (result, error) {
	var res result
	for i := 0; i < top; i++ {
		parent, err := s.category(ctx, nil, i, func() string { return s.faker.ProductCategory() })
		if err != nil {
			return res, err
		}
		res.Categories++

		for j := 0; j < children; j++ {
			child, err := s.category(ctx, &parent.ID, j, func() string {
				return s.faker.Animal() + " " + strings.ToLower(parent.Name)
			})
			if err != nil {
				return res, err
			}
			res.Categories++

			for k := 0; k < perCategory; k++ {
				if _, err := s.product(ctx, child.ID); err != nil {
					return res, err
				}
				res.Products++
			}
		}
	}
	return res, nil
}

func (s *seeder) category(ctx context.Context, parentID *string, order int, name func() string) (category.Category, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		n := strings.TrimSpace(name())
		if attempt > 0 {
			n = fmt.Sprintf("%s %d", n, attempt+1)
		}
		c, err := s.categories.Create(ctx, category.Input{
			Name:        titleCase(n),
			ParentID:    parentID,
			SortOrder:   order,
			Description: s.faker.Sentence(10),
		})
		if errors.Is(err, category.ErrSlugTaken) {
			lastErr = err
			continue
		}
		if err != nil {
			return category.Category{}, fmt.Errorf("create category %q: %w", n, err)
		}
		return c, nil
	}
	return category.Category{}, lastErr
}

func (s *seeder) product(ctx context.Context, categoryID string) (product.Product, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		s.sku++
		name := s.faker.ProductName()
		if attempt > 0 {
			name = fmt.Sprintf("%s %s", name, s.faker.Adjective())
		}
		price := decimal.NewFromFloat(s.faker.Price(49, 2500)).Round(2)
		in := product.Input{
			SKU:         fmt.Sprintf("SKU-%06d", s.sku),
			Name:        name,
			Description: s.faker.Paragraph(1, 3, 12, " "),
			Price:       price,
			Stock:       s.faker.Number(0, 200),
			CategoryID:  categoryID,
			Tags:        []string{strings.ToLower(s.faker.ProductFeature()), strings.ToLower(s.faker.Animal())},
			Featured:    s.faker.Number(1, 10) == 1,
			Score:       math.Round(s.faker.Float64Range(0, 5)*10) / 10,
		}
		if s.faker.Bool() {
			compare := price.Mul(decimal.NewFromFloat(1.2)).Round(2)
			in.CompareAtPrice = &compare
		}
		p, err := s.products.Create(ctx, in)
		if errors.Is(err, product.ErrSlugTaken) || errors.Is(err, product.ErrSKUTaken) {
			lastErr = err
			continue
		}
		if err != nil {
			return product.Product{}, fmt.Errorf("create product %q: %w", name, err)
		}
		return p, nil
	}
	return product.Product{}, lastErr
}

// importTranslations loads every <locale>.yaml or <locale>.<namespace>.yaml file in dir.
func (s *seeder) importTranslations(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info("no translations directory", zap.String("dir", dir))
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		locale, namespace := splitTranslationFile(name)
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return total, err
		}
		n, err := s.translations.Import(ctx, locale, namespace, data)
		if err != nil {
			return total, fmt.Errorf("%s: %w", name, err)
		}
		total += n
	}
	return total, nil
}

// splitTranslationFile maps "th.yaml" to (th, "") and "th.checkout.yml" to (th, checkout).
func splitTranslationFile(name string) (string, string) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	locale, namespace, _ := strings.Cut(base, ".")
	return locale, namespace
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
