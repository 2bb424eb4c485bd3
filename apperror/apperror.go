// Package apperror defines the typed errors returned by the services and how
// they map onto HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Reasons shared across services. Service-specific reasons live next to the
// sentinel that uses them.
const (
	ReasonInternal         = "internal_error"
	ReasonValidation       = "validation_failed"
	ReasonUserNotFound     = "user_not_found"
	ReasonCodeNotFound     = "code_not_found"
	ReasonCodeUsed         = "code_used"
	ReasonCodeExpired      = "code_expired"
	ReasonIncorrectCode    = "incorrect_code"
	ReasonMissingToken     = "missing_token"
	ReasonInvalidToken     = "invalid_token"
	ReasonTokenExpired     = "token_expired"
	ReasonInsufficientRole = "insufficient_role"
)

// Error is a classified failure. Message is safe to show to clients; Err holds
// the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and reason, so wrapped copies
// of a sentinel still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func (e *Error) WithFields(fields map[string]string) *Error {
	cp := *e
	cp.Fields = fields
	return &cp
}

func (e *Error) StatusCode() int {
	return StatusCode(e.Kind)
}

func New(kind Kind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

func NotFound(reason, message string) *Error {
	return New(KindNotFound, reason, message)
}

func Unauthorized(reason, message string) *Error {
	return New(KindUnauthorized, reason, message)
}

func Forbidden(reason, message string) *Error {
	return New(KindForbidden, reason, message)
}

func Conflict(reason, message string) *Error {
	return New(KindConflict, reason, message)
}

func Validation(reason, message string) *Error {
	return New(KindValidation, reason, message)
}

func Internal(reason, message string, cause error) *Error {
	return &Error{Kind: KindInternal, Reason: reason, Message: message, Err: cause}
}

func StatusCode(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// FromValidation converts ozzo-validation output into a Validation error with
// per-field messages. Internal validator failures stay internal.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		return Internal(ReasonInternal, "validation could not be performed", err)
	}

	fields := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for name, fieldErr := range verrs {
			fields[name] = fieldErr.Error()
		}
	}

	return &Error{
		Kind:    KindValidation,
		Reason:  ReasonValidation,
		Message: "request validation failed",
		Fields:  fields,
		Err:     err,
	}
}
