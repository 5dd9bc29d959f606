package workflows

import (
	"fmt"
)

// ErrorSeverity classifies workflow errors.
type ErrorSeverity string

const (
	// ErrorSeverityCritical indicates the workflow must fail.
	ErrorSeverityCritical ErrorSeverity = "critical"
	// ErrorSeverityHigh indicates a recorded failure the workflow absorbs,
	// such as a capability call that fails after the attempt row exists.
	ErrorSeverityHigh ErrorSeverity = "high"
	// ErrorSeverityLow indicates a minor issue that only gets logged.
	ErrorSeverityLow ErrorSeverity = "low"
)

// WorkflowError is a structured error raised inside a workflow or activity.
type WorkflowError struct {
	Operation string
	Severity  ErrorSeverity
	Err       error
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Err.Error())
}

// Unwrap allows errors.Is and errors.As to work with WorkflowError.
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewWorkflowError creates a new workflow error.
func NewWorkflowError(operation string, severity ErrorSeverity, err error) *WorkflowError {
	return &WorkflowError{Operation: operation, Severity: severity, Err: err}
}

// WrapActivityError wraps an activity error with operation context.
func WrapActivityError(operation string, err error) error {
	return fmt.Errorf("%s: %w", operation, err)
}
