package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrTimeout          = errors.New("operation timed out")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInternal         = errors.New("internal error")
	ErrDatabase         = errors.New("database error")
	ErrValidation       = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// InputError reports a client input problem (missing file, bad extension, unknown layout).
func InputError(format string, args ...interface{}) error {
	return NewAppError("INVALID_INPUT", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// NotFound reports a missing resource.
func NotFound(kind, id string) error {
	return NewAppError("NOT_FOUND", fmt.Sprintf("%s %s not found", kind, id), ErrNotFound)
}

// ConflictError reports a business conflict such as a duplicate invoice.
func ConflictError(format string, args ...interface{}) error {
	return NewAppError("CONFLICT", fmt.Sprintf(format, args...), ErrConflict)
}

// StoreError wraps a storage failure as an infrastructure fault.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return NewAppError("STORE_UNAVAILABLE", op, errors.Join(ErrStoreUnavailable, err))
}

// Kind is the caller-facing class of an error.
type Kind int

const (
	KindInternal Kind = iota
	KindInput
	KindNotFound
	KindConflict
	KindTimeout
	KindStoreUnavailable
)

// KindOf classifies err into the error taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return KindInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrDatabase):
		return KindStoreUnavailable
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.InvalidArgument:
			return KindInput
		case codes.NotFound:
			return KindNotFound
		case codes.AlreadyExists:
			return KindConflict
		case codes.DeadlineExceeded:
			return KindTimeout
		case codes.Unavailable:
			return KindStoreUnavailable
		}
	}
	return KindInternal
}

// Code maps err to its gRPC status code.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	switch KindOf(err) {
	case KindInput:
		return codes.InvalidArgument
	case KindNotFound:
		return codes.NotFound
	case KindConflict:
		return codes.AlreadyExists
	case KindTimeout:
		return codes.DeadlineExceeded
	case KindStoreUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// ToStatus converts err into a gRPC status error, keeping existing statuses as-is.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}

