package domain

import (
	"errors"
	"slices"
	"strings"
)

// ValidationError lists constraint violations found before a record reaches persistence.
type ValidationError struct {
	Violations []string
}

// Error joins the violations in sorted order so the message is deterministic.
func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, ", ")
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

type violations []string

func (v *violations) add(msg string) {
	if !slices.Contains(*v, msg) {
		*v = append(*v, msg)
	}
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	sorted := slices.Clone([]string(v))
	slices.Sort(sorted)
	return &ValidationError{Violations: sorted}
}
