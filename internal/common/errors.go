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

// Is lets errors.Is match an AppError against the sentinel of its code.
func (e *AppError) Is(target error) bool {
	return target != nil && codeSentinels[e.Code] == target
}

// Error codes
const (
	CodeUnreadableDocument = "UNREADABLE_DOCUMENT"
	CodeExtractionFailed   = "EXTRACTION_FAILED"
	CodeIncompleteMapping  = "INCOMPLETE_MAPPING"
	CodeExport             = "EXPORT_ERROR"
	CodeConfig             = "CONFIG_ERROR"
	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
)

// Pipeline errors. Everything except ErrExport is scoped to a single document.
var (
	ErrUnreadableDocument = errors.New("unreadable document")
	ErrExtractionFailed   = errors.New("extraction failed")
	ErrIncompleteMapping  = errors.New("incomplete mapping")
	ErrExport             = errors.New("export failed")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrInvalidInput       = errors.New("invalid input")
)

var codeSentinels = map[string]error{
	CodeUnreadableDocument: ErrUnreadableDocument,
	CodeExtractionFailed:   ErrExtractionFailed,
	CodeIncompleteMapping:  ErrIncompleteMapping,
	CodeExport:             ErrExport,
	CodeConfig:             ErrInvalidInput,
	CodeUnsupportedFormat:  ErrUnsupportedFormat,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func UnreadableDocumentError(message string, cause error) error {
	return NewAppError(CodeUnreadableDocument, message, cause)
}

func ExtractionFailedError(message string) error {
	return NewAppError(CodeExtractionFailed, message, nil)
}

func IncompleteMappingError(message string) error {
	return NewAppError(CodeIncompleteMapping, message, nil)
}

func ExportError(message string, cause error) error {
	return NewAppError(CodeExport, message, cause)
}

func UnsupportedFormatError(message string) error {
	return NewAppError(CodeUnsupportedFormat, message, nil)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorCode returns the AppError code carried by err, or "" for foreign errors.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
