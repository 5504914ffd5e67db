// Package apperr defines the error taxonomy the driver loop switches on.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an error the way the driver needs to act on it.
type Code string

const (
	CodeConfiguration        Code = "CONFIGURATION"
	CodeProviderAvailability Code = "PROVIDER_AVAILABILITY"
	CodeProviderRuntime      Code = "PROVIDER_RUNTIME"
	CodeAgentStuck           Code = "AGENT_STUCK"
	CodeBudgetExceeded       Code = "BUDGET_EXCEEDED"
	CodeOperatorInterrupt    Code = "OPERATOR_INTERRUPT"
	CodeExhaustion           Code = "EXHAUSTION"
)

// AppError wraps an underlying cause with a classification the driver
// loop can pattern-match on without string comparison.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Err: cause}
}

// Is reports whether err carries the given classification.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
