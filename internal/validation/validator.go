// Package validation wraps go-playground/validator with conversion into the
// sync error taxonomy. A snapshot that decoded from JSON but violates the
// schema (empty id, easeFactor below 1.3, negative counters) is reported as
// VALIDATION_FAILED, never as a raw validator error.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lexora-app/lexora-sync/internal/syncerr"
)

// Validator wraps validator/v10 with taxonomy error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain. Field names in error
// messages come from JSON tags so they match the wire format.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		for i := range len(name) {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})

	return &Validator{v: v}
}

// Struct validates s and returns a VALIDATION_FAILED taxonomy error listing
// every violated field, or nil.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return syncerr.Wrap(syncerr.CodeValidationFailed, "schema validation failed", err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return syncerr.Wrap(syncerr.CodeValidationFailed, strings.Join(parts, "; "), err)
}

var defaultValidator = New()

// Struct validates s with the package-level validator. validator/v10 is
// safe for concurrent use, so one shared instance serves the whole process.
func Struct(s any) error {
	return defaultValidator.Struct(s)
}
