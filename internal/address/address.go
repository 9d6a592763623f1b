package address

import "time"

type Address struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	PostalCode string    `json:"postalCode"`
	Country    string    `json:"country"`
	Phone      string    `json:"phone,omitempty"`
	IsDefault  bool      `json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Input is the create/update payload.
type Input struct {
	Name       string `json:"name" validate:"required,max=100"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
	Phone      string `json:"phone" validate:"max=30"`
	IsDefault  bool   `json:"isDefault"`
}

func (in Input) apply(a *Address) {
	a.Name = in.Name
	a.Line1 = in.Line1
	a.Line2 = in.Line2
	a.City = in.City
	a.PostalCode = in.PostalCode
	a.Country = in.Country
	a.Phone = in.Phone
}
