package errors

// ErrorResponse is the body returned for every failed mobile auth call.
type ErrorResponse struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error"`                // User-friendly error message
	Code       string `json:"code"`                 // Business error code, e.g. "PRINCIPAL_ARCHIVED"
	RetryAfter int    `json:"retryAfter,omitempty"` // Seconds, only for RATE_LIMITED
	RequestID  string `json:"requestId,omitempty"`  // Request tracking ID
}

// NewErrorResponse renders appErr for the wire. 5xx messages never leak details.
func NewErrorResponse(appErr AppError, requestID string) *ErrorResponse {
	return &ErrorResponse{
		OK:        false,
		Error:     appErr.Message(),
		Code:      appErr.ErrorCode(),
		RequestID: requestID,
	}
}
