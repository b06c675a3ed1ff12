package search

import (
	"fmt"

	"github.com/diana-archive/gazetteer/internal/errors"
)

// Sentinel errors for invalid search requests. All are user errors and
// never retried.
var (
	// ErrInvalidFilterKey indicates an unrecognized criterion name.
	ErrInvalidFilterKey = errors.NewStd("invalid filter key")

	// ErrInvalidFilterValue indicates a criterion value of the wrong type or format.
	ErrInvalidFilterValue = errors.NewStd("invalid filter value")

	// ErrMissingParameter indicates a criterion without a usable value, or a
	// parameter given without the parameter it depends on.
	ErrMissingParameter = errors.NewStd("missing parameter")
)

func invalidKey(key string) error {
	return errors.New(fmt.Errorf("%w: %q", ErrInvalidFilterKey, key)).
		Component("search").
		Category(errors.CategoryValidation).
		Context("key", key).
		Build()
}

func invalidValue(key, value, reason string) error {
	return errors.New(fmt.Errorf("%w: %s=%q: %s", ErrInvalidFilterValue, key, value, reason)).
		Component("search").
		Category(errors.CategoryValidation).
		Context("key", key).
		Context("value", value).
		Build()
}

func missingParameter(key, reason string) error {
	return errors.New(fmt.Errorf("%w: %s: %s", ErrMissingParameter, key, reason)).
		Component("search").
		Category(errors.CategoryValidation).
		Context("key", key).
		Build()
}

// IsUserError reports whether err is one of the request validation errors.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidFilterKey) ||
		errors.Is(err, ErrInvalidFilterValue) ||
		errors.Is(err, ErrMissingParameter)
}
