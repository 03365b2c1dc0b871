package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeExtraction represents entity/relationship extraction errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeModel represents LLM request/response errors
	ErrorTypeModel ErrorType = "model"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeTranslation represents text-to-query translation errors
	ErrorTypeTranslation ErrorType = "translation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Extraction Errors

// ErrExtractionFailed is returned when the model call or output parsing fails
// during entity/relationship extraction. Extraction is all-or-nothing: a
// partially parsed knowledge record is never surfaced.
type ErrExtractionFailed struct {
	*BaseError
	Model string
}

func NewExtractionFailed(model string, err error) *ErrExtractionFailed {
	return &ErrExtractionFailed{
		BaseError: NewBaseError(ErrorTypeExtraction, "knowledge extraction failed", err),
		Model:     model,
	}
}

// Model Errors

// ErrModelRequestFailed is returned when an LLM request fails
type ErrModelRequestFailed struct {
	*BaseError
	Model     string
	Attempts  int
	Retryable bool
}

func NewModelRequestFailed(model string, attempts int, retryable bool, err error) *ErrModelRequestFailed {
	return &ErrModelRequestFailed{
		BaseError: NewBaseError(ErrorTypeModel, fmt.Sprintf("LLM request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
		Retryable: retryable,
	}
}

// ErrModelEmptyResponse is returned when the LLM returns no usable output
var ErrModelEmptyResponse = NewBaseError(ErrorTypeModel, "no response from LLM", nil)

// Translation Errors

// ErrTranslationFailed is returned when a generated query could not be
// produced or failed to execute. The offending query is attached so every
// failure stays traceable to the exact Cypher that caused it.
type ErrTranslationFailed struct {
	*BaseError
	Question string
	Query    string
}

func NewTranslationFailed(question, query string, err error) *ErrTranslationFailed {
	return &ErrTranslationFailed{
		BaseError: NewBaseError(ErrorTypeTranslation, fmt.Sprintf("failed to answer question: %s", question), err),
		Question:  question,
		Query:     query,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when the Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if baseErr, ok := err.(*BaseError); ok {
		return baseErr.Type == errType
	}
	// Check wrapped errors
	if baseErr, ok := err.(interface{ Unwrap() error }); ok {
		return IsErrorType(baseErr.Unwrap(), errType)
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	if modelErr, ok := err.(*ErrModelRequestFailed); ok {
		return modelErr.Retryable
	}
	// Graph connection errors are retryable
	if IsErrorType(err, ErrorTypeGraph) {
		return true
	}
	return false
}
