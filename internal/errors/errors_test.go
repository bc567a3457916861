package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizwire/quizwire/internal/errors"
)

func TestNew(t *testing.T) {
	cause := stderrors.New("boom")
	err := errors.New(errors.CodeNotFound,
		errors.WithCause(cause),
		errors.WithMessagef("player %d not found", 42),
	)

	assert.Equal(t, errors.CodeNotFound, err.Code)
	assert.Equal(t, "player 42 not found", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "not_found")
	assert.Contains(t, err.Error(), "boom")
}

func TestConvert(t *testing.T) {
	t.Run("passes through typed errors", func(t *testing.T) {
		orig := errors.New(errors.CodeInvalidArgument)
		wrapped := fmt.Errorf("submit: %w", orig)

		assert.Equal(t, orig, errors.Convert(wrapped))
	})

	t.Run("wraps unknown errors as internal", func(t *testing.T) {
		err := errors.Convert(stderrors.New("boom"))

		assert.Equal(t, errors.CodeInternal, err.Code)
	})
}

func TestHTTPStatusCode(t *testing.T) {
	tests := map[errors.Code]int{
		errors.CodeInvalidArgument:  http.StatusBadRequest,
		errors.CodeNotFound:         http.StatusNotFound,
		errors.CodeAlreadyExists:    http.StatusConflict,
		errors.CodeUnauthenticated:  http.StatusUnauthorized,
		errors.CodePermissionDenied: http.StatusForbidden,
		errors.CodeUnavailable:      http.StatusServiceUnavailable,
		errors.CodeInternal:         http.StatusInternalServerError,
	}

	for code, want := range tests {
		assert.Equal(t, want, errors.New(code).HTTPStatusCode())
	}

	assert.Equal(t, http.StatusInternalServerError, errors.New(errors.Code(99)).HTTPStatusCode())
}

func TestFromHTTPStatus(t *testing.T) {
	tests := map[int]errors.Code{
		http.StatusBadRequest:          errors.CodeInvalidArgument,
		http.StatusUnauthorized:        errors.CodeUnauthenticated,
		http.StatusForbidden:           errors.CodePermissionDenied,
		http.StatusNotFound:            errors.CodeNotFound,
		http.StatusConflict:            errors.CodeAlreadyExists,
		http.StatusInternalServerError: errors.CodeUnavailable,
		http.StatusBadGateway:          errors.CodeUnavailable,
		http.StatusTeapot:              errors.CodeInternal,
	}

	for status, want := range tests {
		got := errors.FromHTTPStatus(status)
		require.Equal(t, want, got.Code, "status %d", status)
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, errors.IsTransient(stderrors.New("connection refused")))
	assert.True(t, errors.IsTransient(errors.New(errors.CodeUnavailable)))
	assert.True(t, errors.IsTransient(errors.New(errors.CodeInternal)))

	assert.False(t, errors.IsTransient(errors.New(errors.CodeNotFound)))
	assert.False(t, errors.IsTransient(errors.New(errors.CodeInvalidArgument)))
	assert.False(t, errors.IsTransient(errors.New(errors.CodeUnauthenticated)))
}

func TestIsSessionOver(t *testing.T) {
	assert.True(t, errors.IsSessionOver(errors.New(errors.CodeNotFound)))
	assert.True(t, errors.IsSessionOver(errors.New(errors.CodeInvalidArgument)))
	assert.True(t, errors.IsSessionOver(fmt.Errorf("poll: %w", errors.New(errors.CodeNotFound))))

	assert.False(t, errors.IsSessionOver(errors.New(errors.CodeUnavailable)))
	assert.False(t, errors.IsSessionOver(stderrors.New("connection refused")))
}
