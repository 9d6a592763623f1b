package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

type Item struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Cart belongs to an owner, "user:<id>" or "guest:<sid>".
type Cart struct {
	OwnerID   string    `json:"ownerId"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Cart) index(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity of productID, 0 when absent.
func (c Cart) Quantity(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// set replaces the line quantity, removing it when qty <= 0. New lines go to the end.
func (c *Cart) set(productID string, qty int) {
	i := c.index(productID)
	switch {
	case qty <= 0 && i >= 0:
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	case qty <= 0:
	case i >= 0:
		c.Items[i].Quantity = qty
	default:
		c.Items = append(c.Items, Item{ProductID: productID, Quantity: qty})
	}
}

// Line is a priced cart line. Amounts are in the view currency.
type Line struct {
	ProductID string          `json:"productId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	Stock     int             `json:"stock"`
}

type View struct {
	Items     []Line          `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
