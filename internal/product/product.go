package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sort orders accepted by List.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
	SortScore     = "score"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	DefaultSuggestLimit = 8
	MaxSuggestLimit     = 20
	MinSuggestRunes     = 2
)

type Localized struct {
	Name        string `json:"name,omitempty" bson:"name,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

type Product struct {
	ID             string               `json:"id"`
	SKU            string               `json:"sku"`
	Name           string               `json:"name"`
	Slug           string               `json:"slug"`
	Description    string               `json:"description"`
	Price          decimal.Decimal      `json:"price"`
	CompareAtPrice *decimal.Decimal     `json:"compareAtPrice,omitempty"`
	Stock          int                  `json:"stock"`
	CategoryID     string               `json:"categoryId"`
	Images         []string             `json:"images"`
	Tags           []string             `json:"tags"`
	Featured       bool                 `json:"featured"`
	Active         bool                 `json:"active"`
	Score          float64              `json:"score"`
	Translations   map[string]Localized `json:"translations,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// Localize applies the locale's name and description and drops the translation map.
func (p Product) Localize(locale string) Product {
	if t, ok := p.Translations[locale]; ok {
		if t.Name != "" {
			p.Name = t.Name
		}
		if t.Description != "" {
			p.Description = t.Description
		}
	}
	p.Translations = nil
	return p
}

// Image returns the first image or "".
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Filter is what repositories understand; the service resolves categories and paging first.
type Filter struct {
	IDs         []string
	CategoryIDs []string
	ExcludeID   string
	Query       string
	Featured    *bool
	ActiveOnly  bool
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Sort        string
	Page        int
	PageSize    int
}

func (f Filter) offset() int { return (f.Page - 1) * f.PageSize }

// Query is the public listing request before category resolution.
type Query struct {
	CategorySlug string
	CategoryID   string
	Search       string
	Featured     *bool
	IncludeAll   bool
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Sort         string
	Page         int
	PageSize     int
}

type Page struct {
	Items    []Product `json:"items"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// Suggestion is the compact search-as-you-type result.
type Suggestion struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Slug  string          `json:"slug"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

// Input is the admin create/update payload.
type Input struct {
	SKU            string               `json:"sku" validate:"required,max=64"`
	Name           string               `json:"name" validate:"required,max=200"`
	Slug           string               `json:"slug" validate:"max=220"`
	Description    string               `json:"description" validate:"max=10000"`
	Price          decimal.Decimal      `json:"price"`
	CompareAtPrice *decimal.Decimal     `json:"compareAtPrice"`
	Stock          int                  `json:"stock" validate:"gte=0"`
	CategoryID     string               `json:"categoryId" validate:"required"`
	Images         []string             `json:"images" validate:"max=20,dive,max=500"`
	Tags           []string             `json:"tags" validate:"max=30,dive,max=50"`
	Featured       bool                 `json:"featured"`
	Active         *bool                `json:"active"`
	Score          float64              `json:"score" validate:"gte=0,lte=5"`
	Translations   map[string]Localized `json:"translations"`
}
