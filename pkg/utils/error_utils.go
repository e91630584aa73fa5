package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Standardized APIError response
type APIError struct {
	StatusCode int    `json:"-"`              // HTTP status code, not included in JSON response body for error itself
	Code       string `json:"code,omitempty"` // Application-specific error code
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

// NewAPIError creates a new APIError instance
func NewAPIError(statusCode int, code string, message string, details string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Details:    details,
	}
}

// RespondWithError sends a standardized JSON error response
func RespondWithError(c *gin.Context, err *APIError) {
	c.JSON(err.StatusCode, gin.H{"error": err})
	c.Abort()
}

const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"

	// Loyalty business-rule rejections.
	ErrCodeRewardInactive         = "REWARD_INACTIVE"
	ErrCodeInsufficientPunches    = "INSUFFICIENT_PUNCHES"
	ErrCodeDuplicatePending       = "DUPLICATE_PENDING_REQUEST"
	ErrCodeAlreadyRedeemed        = "ALREADY_REDEEMED"
	ErrCodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	ErrCodeIdentityExhausted      = "IDENTITY_ISSUANCE_EXHAUSTED"
	ErrCodePunchCooldown          = "PUNCH_COOLDOWN"
)

// RespondValidationFailed is a helper to return a standard validation error
func RespondValidationFailed(c *gin.Context, details string) {
	RespondWithError(c, NewAPIError(http.StatusBadRequest, ErrCodeValidationFailed, "Input validation failed", details))
}
