package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind is the machine-readable class of an AppError. Values are sent to clients as extensions.code.
type ErrorKind string

const (
	ErrorKindValidation     ErrorKind = "VALIDATION_ERROR"
	ErrorKindNotFound       ErrorKind = "NOT_FOUND"
	ErrorKindConflict       ErrorKind = "CONFLICT"
	ErrorKindForbidden      ErrorKind = "FORBIDDEN"
	ErrorKindAuthentication ErrorKind = "UNAUTHENTICATED"
	ErrorKindInternal       ErrorKind = "INTERNAL"
)

// AppError is a typed failure. Fields carries per-input messages for validation errors.
type AppError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Kind == ErrorKindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string, fields map[string]string) error {
	return &AppError{Kind: ErrorKindValidation, Message: message, Fields: fields}
}

func NewNotFoundError(message string) error {
	return &AppError{Kind: ErrorKindNotFound, Message: message, Err: ErrorRecordNotFound}
}

func NewConflictError(message string) error {
	return &AppError{Kind: ErrorKindConflict, Message: message}
}

func NewForbiddenError(message string) error {
	return &AppError{Kind: ErrorKindForbidden, Message: message}
}

func NewAuthenticationError(message string) error {
	return &AppError{Kind: ErrorKindAuthentication, Message: message}
}

// WrapInternal marks a store or infrastructure failure. Nil in, nil out.
func WrapInternal(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &AppError{Kind: ErrorKindInternal, Message: message, Err: err}
}

// ErrorKindOf returns INTERNAL for errors that are not AppErrors.
func ErrorKindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrorKindInternal
}

func IsErrorKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	return ErrorKindOf(err) == kind
}

// ErrorFields returns the field map of a validation error, or nil.
func ErrorFields(err error) map[string]string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
