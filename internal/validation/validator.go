// package validation provides helper functions for request data validation.
// It uses the go-playground/validator library and includes custom validation rules.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar days.
const DateLayout = time.DateOnly

var validate = validator.New()

// init registers custom validation rules with the validator instance.
func init() {
	// Report json names so messages match the request body.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Money fields are compared as numbers, so gt=0 works on them.
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		switch d := v.Interface().(type) {
		case decimal.Decimal:
			return d.InexactFloat64()
		case decimal.NullDecimal:
			if !d.Valid {
				return nil
			}
			return d.Decimal.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})

	rules := map[string]validator.Func{
		"job_code": func(fl validator.FieldLevel) bool {
			if fl.Field().String() == "" {
				// Empty strings are left to the 'required' tag.
				return true
			}
			return domain.ValidJobCode(fl.Field().String())
		},
		"iso_date": func(fl validator.FieldLevel) bool {
			if fl.Field().String() == "" {
				return true
			}
			_, err := time.Parse(DateLayout, fl.Field().String())
			return err == nil
		},
	}

	for tag, fn := range rules {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			// A rule that fails to register is a programming error.
			panic(fmt.Sprintf("failed to register custom validation %q: %v", tag, err))
		}
	}
}

// ValidationError is a custom error type that holds a slice of validation error messages.
type ValidationError struct {
	Errors []string
	// First is the first offending field, used for the typed domain error.
	First apperrors.ValidationError
}

// Error returns a single string concatenating all validation error messages.
func (v *ValidationError) Error() string {
	return strings.Join(v.Errors, ", ")
}

// Is lets callers match the package error against apperrors.ErrValidation.
func (v *ValidationError) Is(target error) bool { return target == apperrors.ErrValidation }

// ValidateStruct performs validation on a given struct based on its validation tags.
// If validation fails, it returns a *ValidationError with user-friendly messages.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
	}

	verr := &ValidationError{}
	for i, fe := range fieldErrs {
		if i == 0 {
			verr.First = apperrors.ValidationError{Field: fe.Field(), Rule: fe.Tag()}
		}
		verr.Errors = append(verr.Errors, message(fe))
	}

	return verr
}

// ParseDate parses a day in DateLayout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &apperrors.ValidationError{Field: "date", Rule: "iso_date"}
	}
	return t, nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "job_code":
		return fmt.Sprintf("field '%s' must look like R-123456", fe.Field())
	case "iso_date":
		return fmt.Sprintf("field '%s' must be a date in YYYY-MM-DD format", fe.Field())
	case "gt":
		return fmt.Sprintf("field '%s' must be greater than %s", fe.Field(), fe.Param())
	default:
		// Default message for other standard validation tags like 'required', 'min', 'max', etc.
		return fmt.Sprintf("field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
	}
}
