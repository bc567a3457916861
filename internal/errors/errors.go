package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code int

const (
	CodeInvalidArgument Code = iota + 1
	CodeNotFound
	CodeAlreadyExists
	CodeUnauthenticated
	CodePermissionDenied
	CodeUnavailable
	CodeInternal
)

var codeNames = map[Code]string{
	CodeInvalidArgument:  "invalid_argument",
	CodeNotFound:         "not_found",
	CodeAlreadyExists:    "already_exists",
	CodeUnauthenticated:  "unauthenticated",
	CodePermissionDenied: "permission_denied",
	CodeUnavailable:      "unavailable",
	CodeInternal:         "internal",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "unknown"
}

var code2http = map[Code]int{
	CodeInvalidArgument:  http.StatusBadRequest,
	CodeNotFound:         http.StatusNotFound,
	CodeAlreadyExists:    http.StatusConflict,
	CodeUnauthenticated:  http.StatusUnauthorized,
	CodePermissionDenied: http.StatusForbidden,
	CodeUnavailable:      http.StatusServiceUnavailable,
	CodeInternal:         http.StatusInternalServerError,
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	err     error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: code.String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %s, message: %s", e.Code, e.Message)
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}

	return http.StatusInternalServerError
}

// FromHTTPStatus classifies a non-2xx response from the session service.
func FromHTTPStatus(status int, opts ...Option) *Error {
	var code Code
	switch {
	case status == http.StatusBadRequest:
		code = CodeInvalidArgument
	case status == http.StatusUnauthorized:
		code = CodeUnauthenticated
	case status == http.StatusForbidden:
		code = CodePermissionDenied
	case status == http.StatusNotFound:
		code = CodeNotFound
	case status == http.StatusConflict:
		code = CodeAlreadyExists
	case status >= 500:
		code = CodeUnavailable
	default:
		code = CodeInternal
	}

	return New(code, opts...)
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

// IsTransient reports whether err is worth retrying on the next polling tick:
// transport failures and server-side 5xx. Everything else is a definitive
// answer from the service.
func IsTransient(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		// Raw transport errors never reached the service.
		return true
	}

	return e.Code == CodeUnavailable || e.Code == CodeInternal
}

// IsSessionOver reports whether err is the session service refusing a play
// request because the session no longer exists or is no longer active. The
// service signals termination this way rather than via an explicit flag, so
// this is a heuristic: a 4xx on a previously working poll is read as "the
// session ended", not as a fault.
func IsSessionOver(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Code == CodeNotFound || e.Code == CodeInvalidArgument
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}
