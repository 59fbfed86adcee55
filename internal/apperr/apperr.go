// Package apperr defines the operational error taxonomy shared across the
// service. Errors carry a Kind discriminant plus an HTTP-equivalent status and
// a machine-readable code; callers dispatch on Kind, never on concrete types.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindExternal   Kind = "external_service"
)

type Error struct {
	Kind    Kind
	Status  int    // HTTP-equivalent status
	Code    string // machine-readable, e.g. "NOT_FOUND"
	Message string

	// External-service context, set only for KindExternal.
	Service  string
	Op       string
	Attempts int

	Err error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Kind == KindExternal && e.Service != "" {
		return fmt.Sprintf("[%s] %s", e.Service, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a 404 error for a missing resource.
func NotFound(resource, id string) *Error {
	msg := resource + " not found"
	if id != "" {
		msg = fmt.Sprintf("%s '%s' not found", resource, id)
	}
	return &Error{Kind: KindNotFound, Status: 404, Code: "NOT_FOUND", Message: msg}
}

// Auth builds a 401 or 403 error.
func Auth(message string, status int) *Error {
	code := "UNAUTHORIZED"
	if status == 403 {
		code = "FORBIDDEN"
	}
	return &Error{Kind: KindAuth, Status: status, Code: code, Message: message}
}

// Validation builds a 400 error for bad input or malformed upstream output.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Status: 400, Code: "VALIDATION_ERROR", Message: message}
}

// External wraps a failure from an upstream service. Status defaults to 502
// since the upstream, not the caller, failed.
func External(service, op, message string, cause error) *Error {
	return &Error{
		Kind:    KindExternal,
		Status:  502,
		Code:    "EXTERNAL_SERVICE_ERROR",
		Message: message,
		Service: service,
		Op:      op,
		Err:     cause,
	}
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf returns the HTTP-equivalent status of err, defaulting to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 500
}
