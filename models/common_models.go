// models/common_models.go
package models

// APIErrorResponse represents a standard error response format.
type APIErrorResponse struct {
	StatusCode int    `json:"status_code"`       // HTTP status code
	ErrorCode  string `json:"error_code"`        // Application-specific error code
	Message    string `json:"message"`           // User-friendly error message
	Details    string `json:"details,omitempty"` // More detailed information, if available
}

// Error codes used in APIErrorResponse.ErrorCode.
const (
	ErrCodeMalformedOverride = "malformed_override_header"
	ErrCodeResolution        = "server_address_resolution"
	ErrCodeInvalidQuery      = "invalid_query"
	ErrCodeBodyTooLarge      = "body_too_large"
	ErrCodeInternal          = "internal_error"
)

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
