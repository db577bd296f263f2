package errors

import (
	"errors"
	"fmt"
)

// Error types for different failure classes in an audit run
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeMissingSignal ErrorType = "missing_signal"
	ErrorTypeInsufficient  ErrorType = "insufficient_baseline"
	ErrorTypeMisalignment  ErrorType = "temporal_misalignment"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Fatal   bool                   `json:"fatal"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors

// NewConfigurationError fails an audit run before any record is processed.
func NewConfigurationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConfiguration,
		Code:    code,
		Message: message,
		Fatal:   true,
	}
}

func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Fatal:   true,
	}
}

// NewMissingSignalError marks a record unusable for one analyzer. It is a
// soft skip, never a run failure.
func NewMissingSignalError(analyzer, field string) *AppError {
	return &AppError{
		Type:    ErrorTypeMissingSignal,
		Code:    "MISSING_SIGNAL",
		Message: fmt.Sprintf("%s analyzer requires %s", analyzer, field),
		Details: map[string]interface{}{"analyzer": analyzer, "field": field},
	}
}

// NewInsufficientBaselineError marks a vehicle as having too little history
// for pattern analysis.
func NewInsufficientBaselineError(vehicleID string, samples int) *AppError {
	return &AppError{
		Type:    ErrorTypeInsufficient,
		Code:    "INSUFFICIENT_BASELINE",
		Message: fmt.Sprintf("vehicle %s has %d fuel records, pattern analysis skipped", vehicleID, samples),
		Details: map[string]interface{}{"vehicle_id": vehicleID, "sample_count": samples},
	}
}

// NewTemporalMisalignmentError flags non-overlapping source date ranges.
// Cross-source checks are suppressed but the run still completes.
func NewTemporalMisalignmentError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeMisalignment,
		Code:    "TEMPORAL_MISALIGNMENT",
		Message: message,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
		Fatal:   true,
	}
}

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsFatal reports whether an error must abort the audit run. Soft errors
// (missing signal, insufficient baseline, misalignment) degrade analysis
// instead of failing it.
func IsFatal(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fatal
	}
	return true
}
