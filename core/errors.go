package core

import (
	"fmt"

	"github.com/pkg/errors"
)

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
		return ""
	}
	return err.Err.Error()
}

// ConflictError reports a uniqueness collision on Field.
// Definite is false for pre-write lookups (a likely duplicate) and true when the store
// itself rejected the write.
type ConflictError struct {
	Field    string
	Value    string
	Definite bool
}

func NewLikelyConflict(field, value string) error {
	return &ConflictError{Field: field, Value: value}
}

func NewDefiniteConflict(field, value string) error {
	return &ConflictError{Field: field, Value: value, Definite: true}
}

func (err ConflictError) Error() string {
	if err.Value == "" {
		return fmt.Sprintf("%s already exists", err.Field)
	}
	return fmt.Sprintf("%s %q already exists", err.Field, err.Value)
}

// IsConflict reports whether err is a ConflictError on field (any field if empty).
func IsConflict(err error, field ...string) bool {
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		return false
	}
	return len(field) == 0 || cErr.Field == field[0]
}

type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

type PermissionError struct {
	Message string
}

func NewPermissionError(msg string) error {
	return &PermissionError{Message: msg}
}

func (err PermissionError) Error() string {
	if err.Message == "" {
		return "permission denied"
	}
	return err.Message
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
