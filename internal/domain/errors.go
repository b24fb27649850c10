package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss is returned when a product is not in the cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidUpload is returned when an uploaded file fails type or size checks
	ErrInvalidUpload = errors.New("invalid image upload")

	// ErrUnknownElement is returned when regeneration targets an element that does not exist
	ErrUnknownElement = errors.New("unknown element")

	// ErrVisionAPIFailure is returned when the vision model request fails
	ErrVisionAPIFailure = errors.New("vision API request failed")

	// ErrTextAPIFailure is returned when the text generation request fails
	ErrTextAPIFailure = errors.New("text generation API request failed")

	// ErrStorageUnavailable is returned when image storage is not configured or fails
	ErrStorageUnavailable = errors.New("image storage unavailable")

	// ErrCacheUnavailable is returned when the cache backend cannot be reached
	ErrCacheUnavailable = errors.New("cache service unavailable")
)

// Upstream error codes
const (
	CodeRateLimited     = "RATE_LIMITED"
	CodeQuotaExceeded   = "QUOTA_EXCEEDED"
	CodeTimeout         = "TIMEOUT"
	CodeNetwork         = "NETWORK_ERROR"
	CodeInvalidResponse = "INVALID_RESPONSE"
	CodeSafetyBlocked   = "SAFETY_BLOCKED"
	CodeUpstream        = "UPSTREAM_ERROR"
)

// ServiceError is an upstream model failure classified for the caller
type ServiceError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	// Kind is ErrVisionAPIFailure or ErrTextAPIFailure
	Kind error `json:"-"`
	Err  error `json:"-"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes both the sentinel kind and the underlying cause
func (e *ServiceError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
