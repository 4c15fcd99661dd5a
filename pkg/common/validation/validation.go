package validation

import (
	"reflect"
	"time"

	cferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
)

// ValidatePositive rejects counts below 1, such as an occurrence count.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return cferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegative rejects negative bounds. Zero is allowed and usually
// means unbounded.
func ValidateNonNegative(module, field string, value int) error {
	if value < 0 {
		return cferrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 for no limit")
	}
	return nil
}

// ValidatePositiveDuration rejects zero and negative periods.
func ValidatePositiveDuration(module, field string, value time.Duration) error {
	if value <= 0 {
		return cferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("use a duration greater than 0")
	}
	return nil
}

// ValidateNotZeroTime rejects the zero time.Time.
func ValidateNotZeroTime(module, field string, value time.Time) error {
	if value.IsZero() {
		return cferrors.NewValidationError(module, field, value, "cannot be zero").
			WithHint("provide a concrete instant")
	}
	return nil
}

// ValidateNotNil rejects a nil interface as well as a typed nil func,
// pointer, map, slice, channel or interface stored in one.
func ValidateNotNil(module, field string, value interface{}) error {
	if isNil(value) {
		return cferrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Func, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
