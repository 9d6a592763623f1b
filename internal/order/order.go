package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Line is a snapshot of a product at checkout. Prices are in the order currency.
type Line struct {
	ProductID string          `json:"productId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type ShippingAddress struct {
	Name       string `json:"name" bson:"name" validate:"required,max=100"`
	Line1      string `json:"line1" bson:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" bson:"city" validate:"required,max=100"`
	PostalCode string `json:"postalCode" bson:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" bson:"country" validate:"required,iso3166_1_alpha2"`
	Phone      string `json:"phone,omitempty" bson:"phone,omitempty" validate:"max=30"`
}

type Order struct {
	ID           string          `json:"id"`
	Number       int64           `json:"number"`
	OwnerID      string          `json:"-"`
	UserID       string          `json:"userId,omitempty"`
	Email        string          `json:"email"`
	Items        []Line          `json:"items"`
	Currency     string          `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	Address      ShippingAddress `json:"address"`
	Note         string          `json:"note,omitempty"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// CheckoutInput takes either an inline address or the id of a saved one. Signed-in users
// with neither fall back to their default address.
type CheckoutInput struct {
	Email     string           `json:"email" validate:"omitempty,email"`
	Address   *ShippingAddress `json:"address" validate:"omitempty"`
	AddressID string           `json:"addressId"`
	Currency  string           `json:"currency" validate:"omitempty,len=3"`
	Note      string           `json:"note" validate:"max=500"`
}

type StatusInput struct {
	Status Status `json:"status" validate:"required,oneof=pending paid shipped delivered cancelled"`
}

type Filter struct {
	OwnerID  string
	Status   Status
	Page     int
	PageSize int
}

type Page struct {
	Items    []Order `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (f Filter) normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

func (f Filter) offset() int {
	return (f.Page - 1) * f.PageSize
}
