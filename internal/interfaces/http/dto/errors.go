package dto

import "net/http"

// General error codes
const (
	ErrCodeUnknown  = "UNKNOWN"
	ErrCodeInternal = "INTERNAL_ERROR"
)

// Input error codes
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeRateLimited  = "RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes produced by the application services appear here verbatim.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeRateLimited:  http.StatusTooManyRequests,

	// Generic domain errors
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"INVALID_STATE":        http.StatusUnprocessableEntity,

	// Registration and verification
	"EMAIL_TAKEN":               http.StatusConflict,
	"INVALID_EMAIL":             http.StatusBadRequest,
	"INVALID_PASSWORD":          http.StatusBadRequest,
	"INVALID_DISPLAY_NAME":      http.StatusBadRequest,
	"INVALID_VERIFICATION_CODE": http.StatusBadRequest,
	"VERIFICATION_CODE_EXPIRED": http.StatusBadRequest,
	"ALREADY_VERIFIED":          http.StatusConflict,

	// Login and tokens
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"ACCOUNT_LOCKED":      http.StatusForbidden,
	"ACCOUNT_PENDING":     http.StatusForbidden,
	"ACCOUNT_DEACTIVATED": http.StatusForbidden,
	"ACCOUNT_INACTIVE":    http.StatusForbidden,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,
	"TOKEN_INVALID":       http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":   http.StatusUnauthorized,
	"TOKEN_ERROR":         http.StatusUnauthorized,

	// Profiles and avatars
	"USER_NOT_FOUND":         http.StatusNotFound,
	"UNSUPPORTED_MEDIA_TYPE": http.StatusUnsupportedMediaType,
	"INVALID_AVATAR_KEY":     http.StatusBadRequest,
	"INVALID_AVATAR":         http.StatusBadRequest,

	// Chat
	"DIALOGUE_NOT_FOUND":  http.StatusNotFound,
	"SELF_DIALOGUE":       http.StatusUnprocessableEntity,
	"INVALID_LISTING_REF": http.StatusBadRequest,
	"EMPTY_MESSAGE":       http.StatusBadRequest,
	"MESSAGE_TOO_LONG":    http.StatusBadRequest,

	// Notifications
	"NOTIFICATION_NOT_FOUND":    http.StatusNotFound,
	"NOTIFICATION_UNREAD":       http.StatusUnprocessableEntity,
	"INVALID_NOTIFICATION":      http.StatusBadRequest,
	"INVALID_NOTIFICATION_TYPE": http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for a domain error code.
// Unknown codes map to 500 so unexpected failures never leak as client
// errors.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
