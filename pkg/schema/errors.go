package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeSerialization = "SERIALIZATION_ERROR"
	ErrCodeUnvalidated   = "UNVALIDATED_DOCUMENT"
	ErrCodeParse         = "PARSE_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// CompoundError is the structured error type for all compiler operations.
type CompoundError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Path    string         `json:"path,omitempty"`
	Cause   error          `json:"-"`
}

func (e *CompoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CompoundError) Unwrap() error {
	return e.Cause
}

// NewError creates a new CompoundError.
func NewError(code, message string) *CompoundError {
	return &CompoundError{Code: code, Message: message}
}

// NewErrorf creates a new CompoundError with a formatted message.
func NewErrorf(code, format string, args ...any) *CompoundError {
	return &CompoundError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithPath attaches a structural path to the error.
func (e *CompoundError) WithPath(path string) *CompoundError {
	e.Path = path
	return e
}

// WithCause attaches an underlying cause.
func (e *CompoundError) WithCause(err error) *CompoundError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *CompoundError) WithDetails(details map[string]any) *CompoundError {
	e.Details = details
	return e
}
