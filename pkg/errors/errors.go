package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// StatusCode maps the error code to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized, ErrMissingSession:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNetwork:
		return http.StatusBadGateway
	case ErrApplication:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrMissingSession
	ErrNetwork
	ErrApplication
)

const (
	MsgMissingSession = "User details not found. Please login again."
	MsgNetwork        = "Network error. Please try again later."
)

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// MissingSession is returned when the caller identity is absent.
func MissingSession() *AppError {
	return &AppError{Code: ErrMissingSession, Message: MsgMissingSession}
}

// Network wraps a transport or decoding failure talking to the backend.
func Network(err error) *AppError {
	return &AppError{Code: ErrNetwork, Message: MsgNetwork, Err: err}
}

// Application reports a well-formed backend response with success=false.
func Application(message string) *AppError {
	return &AppError{Code: ErrApplication, Message: message}
}

func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

// Forbidden is returned when the session may not see a resource.
func Forbidden(resource string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: fmt.Sprintf("%s is not available to this account", resource),
	}
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
