package domain

import (
	"errors"
	"fmt"
)

// ErrExtractionFailed marks a page for which no extractor produced usable
// text. Retrying the same HTML cannot change the result.
var ErrExtractionFailed = errors.New("extraction failed")

// DuplicateError reports that the content already exists in the store.
// LookupErr is set when the existing ID could not be resolved.
type DuplicateError struct {
	ExistingID string
	LookupErr  error
}

func (e *DuplicateError) Error() string {
	switch {
	case e.ExistingID != "":
		return fmt.Sprintf("duplicate of %s", e.ExistingID)
	case e.LookupErr != nil:
		return fmt.Sprintf("duplicate article (lookup failed: %v)", e.LookupErr)
	default:
		return "duplicate article"
	}
}

// AsDuplicate unwraps a DuplicateError from err.
func AsDuplicate(err error) (*DuplicateError, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}

// PermanentError wraps failures that must not consume retry budget.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is terminal. Extraction failures are always
// terminal.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrExtractionFailed) {
		return true
	}
	var perm *PermanentError
	return errors.As(err, &perm)
}

// ValidationError is returned at the submission boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
