// Package validation wraps go-playground/validator so handlers can return every field error at
// once, keyed by the JSON field name.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates v and returns field → message. A nil map means v is valid.
func Struct(v any) map[string]string {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fieldPath(fe)] = message(fe)
	}
	return out
}

// fieldPath drops the top-level struct name: "createRequest.items[0].quantity" → "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Var validates a single value against tag and returns the message for name, or "".
func Var(name string, v any, tag string) string {
	err := instance().Var(v, tag)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return name + " is invalid"
	}
	return messageFor(name, verrs[0])
}

func message(fe validator.FieldError) string {
	return messageFor(fe.Field(), fe)
}

func messageFor(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return field + " must have at least " + fe.Param() + " characters"
		}
		return field + " must be >= " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return field + " must have at most " + fe.Param() + " characters"
		}
		return field + " must be <= " + fe.Param()
	case "gte":
		return field + " must be >= " + fe.Param()
	case "lte":
		return field + " must be <= " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "len":
		return field + " must have length " + fe.Param()
	case "url":
		return field + " must be a valid URL"
	case "uppercase":
		return field + " must be upper-case"
	case "alpha":
		return field + " must contain letters only"
	case "bcp47_language_tag":
		return field + " must be a valid locale"
	default:
		return field + " is invalid"
	}
}
