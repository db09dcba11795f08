// Package apperr defines the typed failures of the enrichment pipeline and
// their mapping to HTTP status codes.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind sentinels. Every *Error wraps exactly one of them so callers can use
// errors.Is(err, apperr.ErrSchemaFormat) without caring about the message.
var (
	ErrMissingParameter  = errors.New("missing parameter")
	ErrUpstreamFetch     = errors.New("upstream fetch failed")
	ErrSchemaFormat      = errors.New("invalid schema format")
	ErrNoInferenceResult = errors.New("no inference result")
	ErrInferenceParse    = errors.New("inference result could not be parsed")
	ErrContractViolation = errors.New("output contract violated")
)

// Error is a classified pipeline failure.
type Error struct {
	Kind      error
	Message   string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Error(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName is the stable identifier written to error responses and metrics.
func (e *Error) KindName() string {
	return KindName(e.Kind)
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new error of the given kind. Deadline and
// cancellation causes are marked retryable.
func Wrap(kind error, cause error, message string) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Err:       cause,
		Retryable: IsTimeout(cause),
	}
}

// MissingParameter reports absent required inputs by name.
func MissingParameter(names ...string) *Error {
	msg := "missing required parameters"
	for i, n := range names {
		if i == 0 {
			msg += ": " + n
			continue
		}
		msg += " and " + n
	}
	return New(ErrMissingParameter, msg)
}

// IsTimeout reports whether err was caused by an exceeded deadline.
func IsTimeout(err error) bool {
	return err != nil && errors.Is(err, context.DeadlineExceeded)
}

// IsRetryable reports whether the calling layer may retry the request.
func IsRetryable(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return IsTimeout(err)
}

func KindName(kind error) string {
	switch kind {
	case ErrMissingParameter:
		return "MissingParameter"
	case ErrUpstreamFetch:
		return "UpstreamFetchError"
	case ErrSchemaFormat:
		return "SchemaFormatError"
	case ErrNoInferenceResult:
		return "NoInferenceResultError"
	case ErrInferenceParse:
		return "InferenceParseError"
	case ErrContractViolation:
		return "ContractViolationError"
	default:
		return "InternalError"
	}
}

// KindOf returns the kind name of err, or "InternalError" for unclassified errors.
func KindOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.KindName()
	}
	return KindName(nil)
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingParameter):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamFetch):
		if IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
