package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrValidation is matched by every rejection of client input.
	ErrValidation   = errors.New("invalid listing")
	ErrMissingName  = fmt.Errorf("%w: name is required", ErrValidation)
	ErrInvalidPrice = fmt.Errorf("%w: price must be a non-negative number", ErrValidation)

	ErrMediaFailure = errors.New("media store failure")
)

type ValidationError struct {
	Field string
	Rule  string
	Param string
}

func (e *ValidationError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("invalid listing: %s must satisfy %s=%s", e.Field, e.Rule, e.Param)
	}
	return fmt.Sprintf("invalid listing: %s must satisfy %s", e.Field, e.Rule)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
