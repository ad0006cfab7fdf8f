package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the HTTP layer can map them to a status.
type ErrorKind string

const (
	KindInvalidRequest    ErrorKind = "INVALID_REQUEST"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	KindStoreFailure      ErrorKind = "STORE_FAILURE"
)

// AppError is the error type returned by the service layer.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidRequest reports malformed or empty input.
func InvalidRequest(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a referenced entity that does not exist.
func NotFound(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock reports a quantity larger than the available stock.
func InsufficientStock(productName string) *AppError {
	return &AppError{Kind: KindInsufficientStock, Message: fmt.Sprintf("Insufficient stock for product %s", productName)}
}

// StoreFailure wraps an unexpected persistence error. The operation name is
// kept for logs; clients only ever see a generic message.
func StoreFailure(operation string, err error) *AppError {
	return &AppError{Kind: KindStoreFailure, Message: "failed to " + operation, Err: err}
}

// KindOf returns the kind of err, or KindStoreFailure for anything that is
// not an *AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStoreFailure
}

// IsKind reports whether err is an *AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
