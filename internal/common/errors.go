package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes carried by AppError.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInternal        = "INTERNAL"
	CodeParse           = "PARSE_ERROR"
	CodeConfig          = "CONFIG_ERROR"
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
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("data source unavailable")
	ErrParseFailed     = errors.New("parse failed")
	ErrInternal        = errors.New("internal error")
)

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

// Unavailable marks err as a connectivity failure so callers can degrade.
func Unavailable(message string, err error) error {
	return NewAppError(CodeUnavailable, message, errors.Join(ErrUnavailable, err))
}

// ToGRPCStatus maps application errors onto gRPC status errors.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	code := codes.Internal
	switch {
	case errors.Is(err, ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, ErrUnavailable):
		code = codes.Unavailable
	case errors.As(err, &appErr):
		switch appErr.Code {
		case CodeInvalidArgument, CodeConfig:
			code = codes.InvalidArgument
		case CodeNotFound:
			code = codes.NotFound
		case CodeUnavailable:
			code = codes.Unavailable
		}
	}
	return status.Error(code, err.Error())
}
