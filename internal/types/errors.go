package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidLat    ErrorCode = "validation_invalid_latitude"
	ErrCodeValidationInvalidLon    ErrorCode = "validation_invalid_longitude"
	ErrCodeValidationInvalidUnits  ErrorCode = "validation_invalid_units"
	ErrCodeValidationInvalidMonth  ErrorCode = "validation_invalid_month"
	ErrCodeValidationCloudCover    ErrorCode = "validation_cloud_cover_out_of_range"
	ErrCodeValidationUVIndex       ErrorCode = "validation_uv_index_out_of_range"
	ErrCodeValidationMissingField  ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidDate   ErrorCode = "validation_invalid_date"
	ErrCodeValidationInvalidLayer  ErrorCode = "validation_invalid_map_layer"
	ErrCodeValidationInvalidTile   ErrorCode = "validation_invalid_tile_coordinates"
	ErrCodeValidationMissingTarget ErrorCode = "validation_missing_location_or_coordinates"

	// Location resolution
	ErrCodeLocationNotFound  ErrorCode = "location_not_found"
	ErrCodeLocationAmbiguous ErrorCode = "location_ambiguous"

	// Upstream provider (429/502)
	ErrCodeUpstreamNotEntitled ErrorCode = "upstream_not_entitled"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamMalformed   ErrorCode = "upstream_malformed_response"
	ErrCodeUpstreamRejected    ErrorCode = "upstream_request_rejected"

	// Internal (500)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Used by the API layer to translate AppErrors into HTTP responses.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case s == string(ErrCodeLocationNotFound):
		return http.StatusNotFound // 404
	case s == string(ErrCodeLocationAmbiguous):
		return http.StatusUnprocessableEntity // 422
	case s == string(ErrCodeUpstreamNotEntitled):
		return http.StatusPaymentRequired // 402
	case s == string(ErrCodeUpstreamRateLimited):
		return http.StatusTooManyRequests // 429
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the service.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// IsCode reports whether err is (or wraps) an *AppError carrying the given code.
// Callers use this to branch on structural error identity instead of matching
// message strings; the tier fallback decision depends on it.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
