package setting

import (
	"time"

	"github.com/shopspring/decimal"
)

type Site struct {
	Name          string            `json:"name" bson:"name"`
	LogoURL       string            `json:"logoUrl" bson:"logoUrl"`
	ContactEmail  string            `json:"contactEmail" bson:"contactEmail"`
	ContactPhone  string            `json:"contactPhone" bson:"contactPhone"`
	Social        map[string]string `json:"social" bson:"social"`
	DefaultLocale string            `json:"defaultLocale" bson:"defaultLocale"`
	Locales       []string          `json:"locales" bson:"locales"`
}

// Shipping amounts are in the default currency. A zero FreeThreshold disables free shipping.
type Shipping struct {
	FlatRate      decimal.Decimal `json:"flatRate"`
	FreeThreshold decimal.Decimal `json:"freeThreshold"`
}

// Currency rates are relative to the default currency, whose rate is always 1.
type Currency struct {
	Code    string          `json:"code"`
	Symbol  string          `json:"symbol"`
	Rate    decimal.Decimal `json:"rate"`
	Default bool            `json:"default"`
}

type Slide struct {
	ID        string `json:"id" bson:"id"`
	Image     string `json:"image" bson:"image"`
	Link      string `json:"link" bson:"link"`
	Alt       string `json:"alt" bson:"alt"`
	SortOrder int    `json:"sortOrder" bson:"sortOrder"`
	Active    bool   `json:"active" bson:"active"`
}

type Carousel struct {
	Name   string  `json:"name" bson:"name"`
	Slides []Slide `json:"slides" bson:"slides"`
}

type Settings struct {
	Site       Site       `json:"site"`
	Shipping   Shipping   `json:"shipping"`
	Currencies []Currency `json:"currencies"`
	Carousels  []Carousel `json:"carousels"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Defaults is what Get returns before an admin has saved anything.
func Defaults(siteName, defaultLocale string, locales []string) Settings {
	return Settings{
		Site: Site{
			Name:          siteName,
			Social:        map[string]string{},
			DefaultLocale: defaultLocale,
			Locales:       append([]string(nil), locales...),
		},
		Shipping: Shipping{
			FlatRate:      decimal.NewFromInt(50),
			FreeThreshold: decimal.NewFromInt(1000),
		},
		Currencies: []Currency{{Code: "THB", Symbol: "฿", Rate: decimal.NewFromInt(1), Default: true}},
		Carousels:  []Carousel{},
	}
}

// DefaultCurrency returns the currency flagged as default.
func (s Settings) DefaultCurrency() (Currency, bool) {
	for _, c := range s.Currencies {
		if c.Default {
			return c, true
		}
	}
	return Currency{}, false
}

func (s Settings) currency(code string) (int, bool) {
	for i, c := range s.Currencies {
		if c.Code == code {
			return i, true
		}
	}
	return -1, false
}

func (s Settings) carousel(name string) (int, bool) {
	for i, c := range s.Carousels {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

type SiteInput struct {
	Name          string            `json:"name" validate:"required,max=100"`
	LogoURL       string            `json:"logoUrl" validate:"omitempty,url"`
	ContactEmail  string            `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone  string            `json:"contactPhone" validate:"max=30"`
	Social        map[string]string `json:"social" validate:"max=10,dive,keys,max=30,endkeys,url"`
	DefaultLocale string            `json:"defaultLocale" validate:"required,bcp47_language_tag"`
	Locales       []string          `json:"locales" validate:"required,min=1,dive,bcp47_language_tag"`
}

type ShippingInput struct {
	FlatRate      decimal.Decimal `json:"flatRate"`
	FreeThreshold decimal.Decimal `json:"freeThreshold"`
}

type CurrencyInput struct {
	Symbol string          `json:"symbol" validate:"required,max=8"`
	Rate   decimal.Decimal `json:"rate"`
}

type SlideInput struct {
	ID        string `json:"id"`
	Image     string `json:"image" validate:"required,max=500"`
	Link      string `json:"link" validate:"max=500"`
	Alt       string `json:"alt" validate:"max=200"`
	SortOrder int    `json:"sortOrder"`
	Active    *bool  `json:"active"`
}

type CarouselInput struct {
	Slides []SlideInput `json:"slides" validate:"max=20,dive"`
}
