package opcall

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes a dispatch failure. Callers branch on the kind rather
// than on implementation-specific error types.
type Kind string

const (
	// KindNotFound reports that no operation matched the requested name
	// with the supplied parameters: the operation is absent, excluded,
	// unexported, or no candidate bound.
	KindNotFound Kind = "not_found"

	// KindBadRequest reports a caller mistake: an ambiguous operation
	// name, a misplaced header parameter, or a parameter value that
	// could not be converted.
	KindBadRequest Kind = "bad_request"

	// KindInternal reports an error raised by the invoked operation
	// itself that no mapper recognized. The original cause is preserved
	// for logging.
	KindInternal Kind = "internal"
)

// Failure is the categorized outcome of a failed Invoke call.
type Failure struct {
	Kind    Kind
	Message string
	cause   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the preserved cause, if any. Only internal failures and
// conversion failures carry one.
func (f *Failure) Unwrap() error {
	return f.cause
}

// NewFailure creates a failure with the given kind and message.
func NewFailure(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// NotFoundf creates a not-found failure with a formatted message.
func NotFoundf(format string, args ...any) *Failure {
	return &Failure{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// BadRequestf creates a bad-request failure with a formatted message.
func BadRequestf(format string, args ...any) *Failure {
	return &Failure{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal failure carrying cause. The message stays
// generic; diagnostic detail belongs in logs, reached through Unwrap.
func Internal(cause error) *Failure {
	return &Failure{Kind: KindInternal, Message: "internal error", cause: cause}
}

// WithCause returns a copy of the failure carrying cause.
func (f *Failure) WithCause(cause error) *Failure {
	return &Failure{Kind: f.Kind, Message: f.Message, cause: cause}
}

// ErrorMapper maps an error raised by an invoked operation to a Failure.
// A nil result means the mapper does not recognize the error and the
// default classification applies.
type ErrorMapper func(error) *Failure

// classify turns an error raised during invocation into a Failure.
//
// The configured mapper is consulted first, on the error itself and then on
// its direct cause. An error that already is a Failure passes through
// unchanged. Anything else becomes an internal failure; not-found and
// bad-request are reserved for lookup, binding and conversion failures and
// explicitly mapped errors.
func classify(err error, mapper ErrorMapper) *Failure {
	if mapper != nil {
		if f := mapper(err); f != nil {
			return f
		}
		if cause := errors.Unwrap(err); cause != nil {
			if f := mapper(cause); f != nil {
				return f
			}
		}
	}

	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	return Internal(err)
}

// AsFailure returns err as a *Failure. Errors that are not categorized
// failures are wrapped as internal, preserving the cause.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return Internal(err)
}

// HTTPStatus maps a failure kind to an HTTP status code. Transport
// collaborators such as httpbind use it to encode the category on the wire.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
