// Package apperr defines the sentinel errors shared across the engine and
// its surfaces. Unreadable content and empty analysis results are not
// errors; they degrade to empty outputs instead.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// NotFoundf wraps ErrNotFound with context naming the missing target, so
// callers can still match with errors.Is.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}
