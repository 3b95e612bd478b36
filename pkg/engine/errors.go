package engine

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an engine error for recovery logic.
type ErrorClass string

const (
	// ErrorClassConfiguration indicates invalid wiring detected at
	// construction time: an unresolved operation mapping or an invalid
	// storage backend choice. Not recoverable without fixing the plan or
	// the registry.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassNotFound indicates an unknown workflow, node, instance or
	// resource name.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassValidation indicates rejected execution parameters. The
	// message carries the complete set of offending names.
	ErrorClassValidation ErrorClass = "validation"
)

// Error is a classified engine error with dispatch context.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Node is the node id that caused the error, if applicable.
	Node string `json:"node,omitempty"`

	// Operation is the operation kind being resolved, if applicable.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`

	// Details contains additional context-specific information, such as
	// the offending parameter names of a validation failure.
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Node != "" && e.Operation != "" {
		msg = fmt.Sprintf("[%s] %s (node=%s, operation=%s)", e.Class, e.Message, e.Node, e.Operation)
	} else if e.Node != "" {
		msg = fmt.Sprintf("[%s] %s (node=%s)", e.Class, e.Message, e.Node)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithNode adds node context to an error.
func (e *Error) WithNode(nodeID string) *Error {
	e.Node = nodeID
	return e
}

// WithOperation adds operation-kind context to an error.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(message string, err error) *Error {
	return &Error{Class: ErrorClassConfiguration, Message: message, Err: err}
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(message string) *Error {
	return &Error{Class: ErrorClassNotFound, Message: message}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string) *Error {
	return &Error{Class: ErrorClassValidation, Message: message}
}

func isClass(err error, class ErrorClass) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return isClass(err, ErrorClassConfiguration) }

// IsNotFound reports whether err is an engine not-found error.
func IsNotFound(err error) bool { return isClass(err, ErrorClassNotFound) }

// IsValidation reports whether err is a parameter validation error.
func IsValidation(err error) bool { return isClass(err, ErrorClassValidation) }
