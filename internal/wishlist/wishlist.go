package wishlist

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/storefront-backend/internal/product"
)

// Item is one (owner, product) pair. OwnerID is "user:<id>" or "guest:<sid>".
type Item struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	ProductID string    `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the product card shown next to a wishlist entry.
type Summary struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice,omitempty"`
	Image          string           `json:"image,omitempty"`
	InStock        bool             `json:"inStock"`
}

type Entry struct {
	ProductID string    `json:"productId"`
	AddedAt   time.Time `json:"addedAt"`
	Product   Summary   `json:"product"`
}

func summarize(p product.Product, locale string) Summary {
	lp := p.Localize(locale)
	return Summary{
		ID:             p.ID,
		Name:           lp.Name,
		Slug:           p.Slug,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Image:          p.Image(),
		InStock:        p.Stock > 0,
	}
}
