package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced row does not exist. Callers
// surface it without retrying.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a version-guarded write finds the row's
// version has moved since it was read. The write is rejected and the row
// left unchanged; callers re-read and re-apply.
var ErrConflict = errors.New("version conflict")

// ValidationError marks caller mistakes (move to the same date, negative
// amounts). Surfaced without retry.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
