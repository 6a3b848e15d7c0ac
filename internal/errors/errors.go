// Package errors classifies failures raised by the ledger engine so callers can
// render them inline without inspecting message text.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents local validation failures (never sent to the gateway)
	CategoryValidation ErrorCategory = "validation"
	// CategoryAuthorization represents an expired or missing session (401)
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryGateway represents any other non-2xx gateway response
	CategoryGateway ErrorCategory = "gateway"
	// CategoryNetwork represents transport failures before a response was read
	CategoryNetwork ErrorCategory = "network"
	// CategoryDecode represents a success response whose body could not be parsed
	CategoryDecode ErrorCategory = "decode"
)

// CategorizedError represents an error with category and HTTP status code.
// StatusCode is zero for errors that never reached the gateway.
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// Validation Errors

// NewValidationError creates a validation error for a single field.
// The reason is shown to the user as-is.
func NewValidationError(field string, reason string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryValidation,
		Code:     "INVALID_" + strings.ToUpper(field),
		Message:  reason,
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// Gateway Errors

// NewGatewayError creates an error from a non-2xx gateway response
func NewGatewayError(statusCode int, message string) *CategorizedError {
	category := CategoryGateway
	code := "GATEWAY_ERROR"
	switch statusCode {
	case http.StatusUnauthorized:
		category = CategoryAuthorization
		code = "UNAUTHORIZED"
	case http.StatusForbidden:
		code = "FORBIDDEN"
	case http.StatusNotFound:
		code = "NOT_FOUND"
	case http.StatusConflict:
		code = "CONFLICT"
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		code = "REJECTED"
	}
	return &CategorizedError{
		Category:   category,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Details: map[string]interface{}{
			"status": statusCode,
		},
	}
}

// NewNetworkError creates an error for a request that never produced a response
func NewNetworkError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryNetwork,
		Code:     "NETWORK_ERROR",
		Message:  fmt.Sprintf("network error during %s", operation),
		Cause:    cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewDecodeError creates an error for a response body that could not be parsed
func NewDecodeError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryDecode,
		Code:     "DECODE_ERROR",
		Message:  fmt.Sprintf("unexpected response during %s", operation),
		Cause:    cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// Categorize returns the categorized error in err's chain, or nil
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}
	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}
	return nil
}

// StatusCode returns the gateway status carried by err, or 0
func StatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return 0
}

// IsAuthExpired reports whether err is a 401 from the gateway
func IsAuthExpired(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the gateway
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsValidation reports whether err was raised by local validation
func IsValidation(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == CategoryValidation
}

// IsUserError determines if an error is a user error (validation or 4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	if catErr.Category == CategoryValidation {
		return true
	}
	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// UserMessage returns a message suitable for inline display.
// Categorized errors surface their message; anything else falls back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if catErr := Categorize(err); catErr != nil {
		if catErr.Cause != nil && (catErr.Category == CategoryNetwork || catErr.Category == CategoryDecode) {
			return fmt.Sprintf("%s: %v", catErr.Message, catErr.Cause)
		}
		return catErr.Message
	}
	return err.Error()
}
