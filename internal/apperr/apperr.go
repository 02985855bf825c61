// Package apperr defines the application error kinds and their HTTP mapping.
// Handlers fail with one of these; respond.Error is the single place that
// translates a kind into a status code and envelope. Anything that is not an
// *apperr.Error surfaces as a generic 500.
package apperr

import (
	"fmt"
	"net/http"
)

type Kind int

const (
	ValidationFailed Kind = iota
	Unauthorized
	Forbidden
	NotFound
	Conflict
	InsufficientStock
	EmptyCart
	InvalidStatus
)

// Status maps an error kind to its HTTP status code. Conflict maps to 400
// to match the upstream API contract the client was built against.
func (k Kind) Status() int {
	switch k {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// FieldError is one entry of the validation detail array.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a ValidationFailed error carrying field-level detail.
func Validation(fields []FieldError) *Error {
	return &Error{Kind: ValidationFailed, Message: "Validation failed", Fields: fields}
}
