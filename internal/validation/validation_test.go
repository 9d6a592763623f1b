package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signUp struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=customer admin"`
}

func TestStruct(t *testing.T) {
	assert.Nil(t, Struct(signUp{Email: "a@b.co", Password: "longenough"}))

	errs := Struct(signUp{Email: "not-an-email", Password: "short", Role: "root"})
	assert.Equal(t, "email must be a valid email", errs["email"])
	assert.Equal(t, "password must have at least 8 characters", errs["password"])
	assert.Equal(t, "role must be one of: customer admin", errs["role"])

	errs = Struct(signUp{})
	assert.Equal(t, "email is required", errs["email"])
	assert.Equal(t, "password is required", errs["password"])
	assert.NotContains(t, errs, "role")
}

func TestVar(t *testing.T) {
	assert.Empty(t, Var("locale", "th", "required,bcp47_language_tag"))
	assert.Equal(t, "locale is required", Var("locale", "", "required,bcp47_language_tag"))
	assert.Equal(t, "locale must be a valid locale", Var("locale", "not a locale", "required,bcp47_language_tag"))
}
