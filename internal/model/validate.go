package model

import (
	"reflect"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so messages match the wire format.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// A nil UUID and an invalid calendar date both count as missing.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		id, ok := field.Interface().(uuid.UUID)
		if !ok || id == uuid.Nil {
			return nil
		}
		return id.String()
	}, uuid.UUID{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(civil.Date)
		if !ok || !d.IsValid() {
			return nil
		}
		return d.String()
	}, civil.Date{})

	return v
}

// Validate checks the invariants a user must satisfy before it is handed to a repository.
// The returned error is a validator.ValidationErrors when a field rule fails.
func (u *User) Validate() error {
	return validate.Struct(u)
}
