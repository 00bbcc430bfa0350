// Package errors defines the coded errors shared by the generator, the
// CLI and the HTTP API.
//
// Every failure that crosses a package boundary carries a [Code]. Codes
// fall into a handful of kinds, and the outer surfaces map a kind rather
// than each code: the API picks an HTTP status, the CLI an exit status.
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "step length must be positive")
//	errors.Is(err, errors.ErrCodeInvalidConfig) // true
//	errors.KindOf(err)                          // KindInvalid
//
// Only invalid configuration and cancellation abort a generation run.
// Geometric problems met while generating are counted as diagnostics.
//
// # Error Codes
//
// Codes follow a naming convention that mirrors their kind:
//   - INVALID_*: rejected configuration, input, format or path
//   - *NOT_FOUND: unknown run, file or resource
//   - NETWORK_ERROR, TIMEOUT: cache and store backends
//   - CANCELLED: the caller's context ended a run
//   - INTERNAL_ERROR, UNSUPPORTED: everything else
//
// # Wrapping
//
//	err := errors.Wrap(errors.ErrCodeNetwork, cause, "fetch %s", url)
//	errors.Is(err, errors.ErrCodeNetwork) // true
//	stderrors.Unwrap(err) == cause        // true
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Code is a machine-readable error code. It is the "code" field of API
// error bodies.
type Code string

// Error codes, grouped by kind.
const (
	// Rejected input. INVALID_CONFIG errors carry a *ValidationError.
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Unknown resources.
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeRunNotFound  Code = "RUN_NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Cache and store backends.
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// A run stopped because its context was cancelled.
	ErrCodeCancelled Code = "CANCELLED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Kind groups codes by how a caller should react. The API maps a kind to
// an HTTP status and the CLI to an exit status.
type Kind int

const (
	// KindInternal is the kind of unknown codes and internal errors.
	KindInternal Kind = iota
	// KindInvalid means the request must change before a retry can work.
	KindInvalid
	// KindNotFound means the named run, file or resource does not exist.
	KindNotFound
	// KindUnavailable means a backend failed; the request may be retried.
	KindUnavailable
	// KindCancelled means the caller's context ended the operation.
	KindCancelled
	// KindUnsupported means the operation is not available in this build
	// or configuration.
	KindUnsupported
)

var kinds = map[Code]Kind{
	ErrCodeInvalidConfig: KindInvalid,
	ErrCodeInvalidInput:  KindInvalid,
	ErrCodeInvalidFormat: KindInvalid,
	ErrCodeInvalidPath:   KindInvalid,
	ErrCodeNotFound:      KindNotFound,
	ErrCodeRunNotFound:   KindNotFound,
	ErrCodeFileNotFound:  KindNotFound,
	ErrCodeNetwork:       KindUnavailable,
	ErrCodeTimeout:       KindCancelled,
	ErrCodeCancelled:     KindCancelled,
	ErrCodeUnsupported:   KindUnsupported,
}

// Kind returns the kind of c. Unknown codes are internal.
func (c Code) Kind() Kind {
	return kinds[c]
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface as "CODE: message[: cause]".
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause so the standard errors.Is and errors.As see
// through the code.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns an error with the given code and formatted message.
//
//	errors.New(errors.ErrCodeInvalidInput, "unknown preset %q", name)
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause. The cause stays reachable through Unwrap, so
// errors.Is(err, context.Canceled) and similar checks keep working.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// Cancelled wraps a context error raised during stage. errors.Is against
// the context error keeps working.
func Cancelled(cause error, stage string) *Error {
	return Wrap(ErrCodeCancelled, cause, "run cancelled during %s", stage)
}

// Is reports whether the outermost *Error in err's chain has code.
//
// Inner codes are not consulted: Wrap(ErrCodeNetwork, New(ErrCodeInvalidInput, ...))
// is a network error. Errors that are not *Error never match.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// As is the standard library's errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the outermost *Error in err's chain. Bare
// context errors map to CANCELLED and TIMEOUT; anything else yields "".
func GetCode(err error) Code {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e.Code
	case errors.Is(err, context.Canceled):
		return ErrCodeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	}
	return ""
}

// KindOf returns the kind of err's code.
func KindOf(err error) Kind {
	return GetCode(err).Kind()
}

// UserMessage returns err's message without the code prefix or cause.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ExitCode maps err to a process exit status: 0 for nil, 2 for invalid
// input, 130 for cancellation and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindInvalid:
		return 2
	case KindCancelled:
		if GetCode(err) == ErrCodeCancelled {
			return 130
		}
	}
	return 1
}
