package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies a pipeline failure. The transport layer maps each
// type to a client-visible status.
type ErrorType string

const (
	ErrTypeUnsupportedFormat   ErrorType = "UNSUPPORTED_FORMAT"
	ErrTypeParse               ErrorType = "PARSE_ERROR"
	ErrTypeUnknownTemplate     ErrorType = "UNKNOWN_TEMPLATE"
	ErrTypeProviderUnavailable ErrorType = "PROVIDER_UNAVAILABLE"
	ErrTypeMalformedAIResponse ErrorType = "MALFORMED_AI_RESPONSE"
	ErrTypeRender              ErrorType = "RENDER_ERROR"
	ErrTypeNotFound            ErrorType = "NOT_FOUND"
	ErrTypeValidation          ErrorType = "VALIDATION"
	ErrTypeStorage             ErrorType = "STORAGE"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err (or anything it wraps) is an AppError of the
// given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// TypeOf returns the error type of err, or "" if it is not an AppError.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Helper constructors for the pipeline error taxonomy

// NewUnsupportedFormatError reports an upload with an extension outside the
// spreadsheet/CSV classes.
func NewUnsupportedFormatError(ext string) *AppError {
	return NewAppError(ErrTypeUnsupportedFormat, fmt.Sprintf("unsupported file format %q, only .xlsx, .xls and .csv are accepted", ext), nil)
}

// NewParseError reports content that could not be decoded as tabular data.
func NewParseError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParse, message, cause)
}

// NewUnknownTemplateError reports a (template type, language) pair outside
// the registry.
func NewUnknownTemplateError(templateType, language string) *AppError {
	return NewAppError(ErrTypeUnknownTemplate, fmt.Sprintf("unknown template %q for language %q", templateType, language), nil)
}

// NewProviderUnavailableError reports a transport, auth or timeout failure from
// the AI collaborator.
func NewProviderUnavailableError(cause error) *AppError {
	return NewAppError(ErrTypeProviderUnavailable, "AI provider unavailable", cause)
}

// NewMalformedAIResponseError reports a provider response that could not be
// decomposed into the analysis schema.
func NewMalformedAIResponseError(message string, cause error) *AppError {
	return NewAppError(ErrTypeMalformedAIResponse, message, cause)
}

// NewRenderError reports a document rendering failure
func NewRenderError(message string, cause error) *AppError {
	return NewAppError(ErrTypeRender, message, cause)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewValidationError creates a request validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}
