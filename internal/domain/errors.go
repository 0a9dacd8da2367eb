package domain

import (
	"errors"
	"fmt"
)

// Standard error definitions
var (
	ErrNotFound              = errors.New("record not found")
	ErrNotRunning            = errors.New("execution is not running")
	ErrConflict              = errors.New("record modified concurrently")
	ErrExecutorNotRegistered = errors.New("no executor registered for step type")
)

type ValidationCode string

const (
	CodeDuplicateStepID       ValidationCode = "DUPLICATE_STEP_ID"
	CodeUnknownDependency     ValidationCode = "UNKNOWN_DEPENDENCY"
	CodeCyclicDependency      ValidationCode = "CYCLIC_DEPENDENCY"
	CodeInvalidCronExpression ValidationCode = "INVALID_CRON_EXPRESSION"
	CodeOrderViolation        ValidationCode = "ORDER_VIOLATION"
)

// ValidationError is raised synchronously at definition-save or
// schedule-create time; nothing failing validation is ever persisted.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewValidationError(code ValidationCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationResult aggregates every check failure in check order.
type ValidationResult struct {
	Valid  bool               `json:"valid"`
	Errors []*ValidationError `json:"errors,omitempty"`
}

// Err returns the first failure as an error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
