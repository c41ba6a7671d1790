// Package validator wraps go-playground/validator with a package-level instance and a
// uniform error format.
//
// Besides the built-in tags it registers:
//   - hexprefixed: a non-empty 0x-prefixed hexadecimal string (addresses, hashes)
package validator

import (
	"errors"
	"fmt"
	"regexp"

	gvalidator "github.com/go-playground/validator/v10"
)

// ErrValidationFailed is the first error of the chain returned when validation fails.
var ErrValidationFailed = errors.New("struct validation failed")

// validator is the shared instance, built on package load.
var validator *gvalidator.Validate

// Example: "'Hash': value 'abc' does not meet the requirements for the 'hexprefixed' validation"
const errStringFormat = "'%s': value '%v' does not meet the requirements for the '%s' validation"

var hexPrefixedRegex = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)

func init() {
	validator = gvalidator.New(gvalidator.WithRequiredStructEnabled())

	if err := validator.RegisterValidation("hexprefixed", isHexPrefixed); err != nil {
		panic(err)
	}
}

func isHexPrefixed(fl gvalidator.FieldLevel) bool {
	return hexPrefixedRegex.MatchString(fl.Field().String())
}

// formatError turns validator errors into ErrValidationFailed joined with one message per
// field. Other errors are returned unchanged.
func formatError(err error) error {
	var validationErrors gvalidator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := []error{ErrValidationFailed}
	for _, validationErr := range validationErrors {
		errs = append(errs, fmt.Errorf(errStringFormat,
			validationErr.Field(),
			validationErr.Value(),
			validationErr.Tag(),
		))
	}

	return errors.Join(errs...)
}

// Validate checks v against its `validate` struct tags.
//
//	if err := validator.Validate(deposit); errors.Is(err, validator.ErrValidationFailed) {
//	    // reject the deposit
//	}
func Validate(v any) error {
	if err := validator.Struct(v); err != nil {
		return formatError(err)
	}

	return nil
}

// Var checks a single value against tag, e.g. Var(addr, "required,hexprefixed").
func Var(value any, tag string) error {
	if err := validator.Var(value, tag); err != nil {
		return formatError(err)
	}

	return nil
}
