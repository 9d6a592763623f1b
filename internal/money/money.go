// Package money holds the decimal helpers shared by catalog, cart, order and settings code.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrUnknownCurrency is returned when converting to a currency that is not configured.
var ErrUnknownCurrency = errors.New("unknown currency")

// Places is the number of fractional digits kept for amounts.
const Places = 2

// Round rounds half away from zero to Places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// ToDecimal128 converts for storage in MongoDB. Values that cannot be represented fall back
// to zero, which cannot happen for amounts validated by the services.
func ToDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func FromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func ToDecimal128Ptr(d *decimal.Decimal) *primitive.Decimal128 {
	if d == nil {
		return nil
	}
	v := ToDecimal128(*d)
	return &v
}

func FromDecimal128Ptr(v *primitive.Decimal128) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := FromDecimal128(*v)
	return &d
}
