package processor

import (
	"errors"
	"fmt"

	"safestep/internal/intake/validation"
)

var (
	// ErrValidation marks a record rejected by the field rules.
	ErrValidation = errors.New("record failed validation")
	// ErrMalformed marks a body that is not a flat JSON object. It is a
	// validation failure.
	ErrMalformed = fmt.Errorf("%w: malformed body", ErrValidation)
	// ErrResolution marks a record whose identity or link lookup failed.
	ErrResolution = errors.New("identity resolution failed")
)

// ValidationError carries the per-field report for a rejected record.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, e.Result.Summary())
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
