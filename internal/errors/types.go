// Package errors defines the structured error types returned by the build
// pipeline. Configuration and compilation failures abort a build; lint
// failures abort only the lint step.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeCompilation ErrorType = "compilation"
	ErrorTypeIO          ErrorType = "io"
	ErrorTypeLint        ErrorType = "lint"
	ErrorTypeInternal    ErrorType = "internal"
)

// Error is a structured error type with context.
type Error struct {
	Type     ErrorType
	Code     string
	Message  string
	Cause    error
	Context  map[string]interface{}
	Package  string
	FilePath string
	Line     int
	Column   int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Package != "" {
		parts = append(parts, "package:"+e.Package)
	}

	if e.FilePath != "" {
		loc := e.FilePath
		if e.Line > 0 {
			loc += fmt.Sprintf(":%d:%d", e.Line, e.Column)
		}
		parts = append(parts, loc)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPackage records the package the error belongs to.
func (e *Error) WithPackage(pkg string) *Error {
	e.Package = pkg

	return e
}

// WithFile records the file the error belongs to.
func (e *Error) WithFile(path string) *Error {
	e.FilePath = path

	return e
}

// WithPosition records the line and column inside FilePath.
func (e *Error) WithPosition(line, column int) *Error {
	e.Line = line
	e.Column = column

	return e
}

// Error creation functions

// NewConfigurationError creates an error for an invalid package layout or
// build configuration.
func NewConfigurationError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewCompilationError creates an error for a template the engine could not
// process.
func NewCompilationError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeCompilation,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewLintError creates an error raised while checking build output.
func NewLintError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeLint,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether any error in err's chain is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}

	return false
}

// IsConfigurationError checks if an error is configuration-related.
func IsConfigurationError(err error) bool {
	return IsType(err, ErrorTypeConfig)
}

// IsCompilationError checks if an error came from the template engine.
func IsCompilationError(err error) bool {
	return IsType(err, ErrorTypeCompilation)
}

// IsLintError checks if an error came from the lint step.
func IsLintError(err error) bool {
	return IsType(err, ErrorTypeLint)
}

// Common error codes.
const (
	ErrCodeInvalidPackage     = "ERR_INVALID_PACKAGE"
	ErrCodePackageDirMismatch = "ERR_PACKAGE_DIR_MISMATCH"
	ErrCodePackageDirMissing  = "ERR_PACKAGE_DIR_MISSING"
	ErrCodePackageDirNotDir   = "ERR_PACKAGE_DIR_NOT_DIR"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeCompileFailed      = "ERR_COMPILE_FAILED"
	ErrCodeEngineUnavailable  = "ERR_ENGINE_UNAVAILABLE"
	ErrCodeWriteFailed        = "ERR_WRITE_FAILED"
	ErrCodeStatFailed         = "ERR_STAT_FAILED"
	ErrCodeManifestSealed     = "ERR_MANIFEST_SEALED"
	ErrCodeLintFailed         = "ERR_LINT_FAILED"
	ErrCodeUnresolvedTarget   = "ERR_UNRESOLVED_TARGET"
	ErrCodeSearchPathEmpty    = "ERR_SEARCH_PATH_EMPTY"
)

// FieldValidationError reports a single invalid configuration field.
type FieldValidationError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fve.FieldName, fve.ErrorMessage)
}

// NewFieldValidationError creates a new field validation error.
func NewFieldValidationError(field string, value interface{}, message string) *FieldValidationError {
	return &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
	}
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []*FieldValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Errors) == 0 {
		return "no validation errors"
	}
	if len(vec.Errors) == 1 {
		return vec.Errors[0].Error()
	}

	msgs := make([]string, 0, len(vec.Errors))
	for _, err := range vec.Errors {
		msgs = append(msgs, err.Error())
	}

	return fmt.Sprintf("validation failed with %d errors: %s", len(vec.Errors), strings.Join(msgs, "; "))
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(field string, value interface{}, message string) {
	vec.Errors = append(vec.Errors, NewFieldValidationError(field, value, message))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}

// ErrOrNil returns the collection as an error, or nil when it is empty.
func (vec *ValidationErrorCollection) ErrOrNil() error {
	if !vec.HasErrors() {
		return nil
	}

	return vec
}
