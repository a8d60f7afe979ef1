package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "validation failed"
	}
	return err.Err.Error()
}

// ConflictError is returned when a write would violate a uniqueness invariant.
type ConflictError struct {
	Err    error
	Fields []FieldError
}

func NewConflictError(err error, flds ...FieldError) error {
	return &ConflictError{err, flds}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return "conflict"
	}
	return err.Err.Error()
}

// NotFoundError is returned by repositories when the requested record does not exist.
// Packages declare one sentinel each, eg. `user.ErrNotFound`.
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

// IsNotFound reports whether the cause of err is a *NotFoundError.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
