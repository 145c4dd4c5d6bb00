package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
	ValidationError      ErrorCode = "VALIDATION_ERROR"
	NotFound             ErrorCode = "NOT_FOUND"
	BadRequest           ErrorCode = "BAD_REQUEST"
	Unauthorized         ErrorCode = "UNAUTHORIZED"

	// ledger errors
	AlreadyInitialized      ErrorCode = "ALREADY_INITIALIZED"
	InvalidAuthorization    ErrorCode = "INVALID_AUTHORIZATION"
	InvalidTokenType        ErrorCode = "INVALID_TOKEN_TYPE"
	ArithmeticOverflow      ErrorCode = "ARITHMETIC_OVERFLOW"
	ArithmeticUnderflow     ErrorCode = "ARITHMETIC_UNDERFLOW"
	OverdrawError           ErrorCode = "OVERDRAW_ERROR"
	ExternalTransferFailure ErrorCode = "EXTERNAL_TRANSFER_FAILURE"
)

func (e ErrorCode) String() string {
	return string(e)
}

// Error is the error type returned by every service operation.
type Error struct {
	StatusCode int
	ErrorCode  ErrorCode
	Err        error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(statusCode int, errorCode ErrorCode, err error) *Error {
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        err,
	}
}

func NewErrorWithMsg(statusCode int, errorCode ErrorCode, format string, args ...any) *Error {
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        fmt.Errorf(format, args...),
	}
}

func NewInternalServiceError(err error) *Error {
	return NewError(http.StatusInternalServerError, InternalServiceError, err)
}

func NewValidationFailedError(err error) *Error {
	return NewError(http.StatusBadRequest, ValidationError, err)
}

func NewNotFoundError(format string, args ...any) *Error {
	return NewErrorWithMsg(http.StatusNotFound, NotFound, format, args...)
}

func NewAlreadyInitializedError(format string, args ...any) *Error {
	return NewErrorWithMsg(http.StatusConflict, AlreadyInitialized, format, args...)
}

func NewInvalidAuthorizationError(format string, args ...any) *Error {
	return NewErrorWithMsg(http.StatusForbidden, InvalidAuthorization, format, args...)
}

func NewInvalidTokenTypeError(format string, args ...any) *Error {
	return NewErrorWithMsg(http.StatusBadRequest, InvalidTokenType, format, args...)
}

func NewArithmeticOverflowError(format string, args ...any) *Error {
	return NewErrorWithMsg(http.StatusUnprocessableEntity, ArithmeticOverflow, format, args...)
}

func NewArithmeticUnderflowError(format string, args ...any) *Error {
	return NewErrorWithMsg(http.StatusUnprocessableEntity, ArithmeticUnderflow, format, args...)
}

func NewOverdrawError(format string, args ...any) *Error {
	return NewErrorWithMsg(http.StatusUnprocessableEntity, OverdrawError, format, args...)
}

// NewExternalTransferFailure wraps a token ledger rejection.
func NewExternalTransferFailure(err error) *Error {
	return NewError(http.StatusUnprocessableEntity, ExternalTransferFailure, err)
}

// IsErrorCode reports whether err carries a *Error with the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.ErrorCode == code
	}
	return false
}

// AsError returns err as *Error, wrapping unknown errors into an internal one.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternalServiceError(err)
}
