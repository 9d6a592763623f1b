package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDecimal128RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "19.99", "1234567.89", "-3.5", "0.00000001"} {
		d := decimal.RequireFromString(s)
		back := FromDecimal128(ToDecimal128(d))
		assert.True(t, d.Equal(back), "%s became %s", s, back)
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, "10.13", Round(decimal.RequireFromString("10.125")).String())
	assert.Equal(t, "-10.13", Round(decimal.RequireFromString("-10.125")).String())
	assert.Equal(t, "3", Round(decimal.NewFromInt(3)).String())
}

func TestPtrHelpers(t *testing.T) {
	assert.Nil(t, ToDecimal128Ptr(nil))
	assert.Nil(t, FromDecimal128Ptr(nil))
	d := decimal.RequireFromString("5.25")
	back := FromDecimal128Ptr(ToDecimal128Ptr(&d))
	assert.True(t, d.Equal(*back))
}
