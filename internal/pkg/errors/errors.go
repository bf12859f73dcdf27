package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code for each error type
type ErrorCode string

const (
	// General errors
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	ErrCodeConflict   ErrorCode = "CONFLICT"

	// Report pipeline errors
	ErrCodeParseError      ErrorCode = "PARSE_ERROR"
	ErrCodeValidationError ErrorCode = "VALIDATION_ERROR"
	ErrCodeDuplicateBatch  ErrorCode = "DUPLICATE_BATCH"
	ErrCodeIngestionError  ErrorCode = "INGESTION_ERROR"

	// Recommendation errors
	ErrCodeOffcutUnavailable ErrorCode = "OFFCUT_UNAVAILABLE"

	// Database errors
	ErrCodeDatabaseError  ErrorCode = "DATABASE_ERROR"
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional context to the error
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Common error constructors

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message, http.StatusInternalServerError)
}

func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message, http.StatusNotFound)
}

func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Report pipeline errors

// ParseError indicates report text that is malformed beyond recovery,
// such as a report with no batch code anywhere.
func ParseError(message string) *AppError {
	return New(ErrCodeParseError, message, http.StatusUnprocessableEntity)
}

// ValidationError indicates a cutting record that fails schema or
// numeric sanity checks.
func ValidationError(message string) *AppError {
	return New(ErrCodeValidationError, message, http.StatusUnprocessableEntity)
}

func ValidationErrorf(format string, args ...interface{}) *AppError {
	return ValidationError(fmt.Sprintf(format, args...))
}

// DuplicateBatch indicates a batch code that already exists in the store.
// Reported distinctly from validation failure so callers can prompt for
// resolution instead of retrying.
func DuplicateBatch(batchCode string) *AppError {
	return New(ErrCodeDuplicateBatch,
		fmt.Sprintf("batch %q has already been ingested", batchCode),
		http.StatusConflict).
		WithDetails("batch_code", batchCode)
}

// IngestionError wraps a persistence failure during the ingestion
// transaction. The transaction is rolled back in full.
func IngestionError(err error, message string) *AppError {
	return Wrap(err, ErrCodeIngestionError, message, http.StatusInternalServerError)
}

// OffcutUnavailable indicates an offcut that was consumed by another
// confirmation between recommendation and confirmation time.
func OffcutUnavailable(legacyIDs []int) *AppError {
	return New(ErrCodeOffcutUnavailable,
		"one or more offcuts are no longer available",
		http.StatusConflict).
		WithDetails("legacy_offcut_ids", legacyIDs)
}

// Database errors

func DatabaseError(err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, "database operation failed", http.StatusInternalServerError)
}

func RecordNotFound(resource string) *AppError {
	return New(ErrCodeRecordNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound)
}

// IsCode reports whether err carries the given error code
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
