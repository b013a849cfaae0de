package core

import "github.com/pkg/errors"

// ErrInvalidInput is the default cause of a ValidationError built from field errors only.
var ErrInvalidInput = errors.New("invalid request")

// FieldError reports a problem with one input field, keyed by its json/form name.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

// NewValidationError returns a *ValidationError. A nil err defaults to ErrInvalidInput.
func NewValidationError(err error, flds ...FieldError) error {
	if err == nil {
		err = ErrInvalidInput
	}
	return &ValidationError{Err: err, Fields: flds}
}

func (err *ValidationError) Error() string {
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error { return err.Err }

// shutdown reports a failure that leaves the store in an unknown state; the API stops serving when it sees one.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s *shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether a shutdown error is anywhere in err's chain, including echo.HTTPError internals.
func IsShutdown(err error) bool {
	var s *shutdown
	return errors.As(err, &s)
}
