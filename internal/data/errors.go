package data

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream matches every *APIError.
	ErrUpstream = errors.New("upstream request failed")
	// ErrAuthFailed matches *APIError values from the token endpoint.
	ErrAuthFailed = errors.New("authentication failed")
)

// Error codes carried by APIError.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "ENDPOINT_NOT_FOUND"
	CodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	CodeTimeout          = "TIMEOUT"
	CodeAuthFailed       = "AUTH_FAILED"
	CodeAPIError         = "API_ERROR"
	CodeMissingKey       = "MISSING_SUBSCRIPTION_KEY"
	CodeInvalidResponse  = "INVALID_RESPONSE"
	CodeTransportFailure = "TRANSPORT_ERROR"
)

// APIError represents an error from the ERCOT API or its token endpoint.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // For rate limit errors
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUpstream:
		return true
	case ErrAuthFailed:
		return e.Code == CodeAuthFailed
	}
	return false
}
