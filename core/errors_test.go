package core

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsShutdown(t *testing.T) {
	shutdownErr := NewShutdownError("rolling back: disk I/O error")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "other error", err: errors.New("boom"), want: false},
		{name: "bare", err: shutdownErr, want: true},
		{name: "wrapped", err: errors.Wrap(shutdownErr, "creating course"), want: true},
		{name: "fmt wrapped", err: fmt.Errorf("saving messages: %w", shutdownErr), want: true},
		{
			name: "http error internal",
			err:  echo.NewHTTPError(http.StatusInternalServerError, "Failed to process chat").SetInternal(errors.Wrap(shutdownErr, "completing chat")),
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsShutdown(tt.err))
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError(nil, FieldError{Field: "syllabus", Error: "too large"})
	assert.EqualError(t, err, "invalid request")
	assert.ErrorIs(t, err, ErrInvalidInput)

	cause := errors.New("upload too large")
	err = NewValidationError(errors.Wrap(cause, "reading syllabus"))
	assert.ErrorIs(t, err, cause)

	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Empty(t, vErr.Fields)
}
