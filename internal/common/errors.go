package common

import (
	"errors"
	"fmt"
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

// Error codes recorded on AppError.
const (
	CodeArchive     = "ARCHIVE_ERROR"
	CodeAcquisition = "ACQUISITION_ERROR"
	CodeOutputWrite = "OUTPUT_WRITE_ERROR"
	CodeConfig      = "CONFIG_ERROR"
	CodeDatabase    = "DB_ERROR"
)

// Common application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid run state")
	ErrNoEligibleEntries = errors.New("no eligible entries in archive")
	ErrSuffixExhausted   = errors.New("suffix search exhausted")
	ErrDatabase          = errors.New("database error")
	ErrValidation        = errors.New("validation failed")
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
