package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record id is not in the collection.
var ErrNotFound = errors.New("record not found")

// ErrIDConflict is returned when a caller-chosen id already names a
// different record.
var ErrIDConflict = errors.New("record id already used by another record")

// ValidationError reports input that cannot be committed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
