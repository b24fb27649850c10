package gemini

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/listinglens/backend/internal/domain"
	"google.golang.org/genai"
)

// classifyError maps a failed model call to a ServiceError. kind is
// domain.ErrVisionAPIFailure or domain.ErrTextAPIFailure.
func classifyError(err error, kind error) *domain.ServiceError {
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	out := &domain.ServiceError{Kind: kind, Err: err}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Code, out.Message, out.Retryable = domain.CodeTimeout, "model request timed out", true
		return out
	case errors.Is(err, context.Canceled):
		out.Code, out.Message = domain.CodeTimeout, "model request was cancelled"
		return out
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		classifyAPIError(out, apiErr)
		return out
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			out.Code, out.Message, out.Retryable = domain.CodeTimeout, "model request timed out", true
		} else {
			out.Code, out.Message, out.Retryable = domain.CodeNetwork, "could not reach the model service", true
		}
		return out
	}

	classifyMessage(out, err.Error())
	return out
}

func classifyAPIError(out *domain.ServiceError, apiErr genai.APIError) {
	message := strings.ToLower(apiErr.Message + " " + apiErr.Status)

	switch {
	case apiErr.Code == http.StatusTooManyRequests && strings.Contains(message, "quota"):
		out.Code, out.Message = domain.CodeQuotaExceeded, "model quota exceeded"
	case apiErr.Code == http.StatusTooManyRequests:
		out.Code, out.Message, out.Retryable = domain.CodeRateLimited, "model rate limit reached", true
	case apiErr.Code == http.StatusRequestTimeout || apiErr.Code == http.StatusGatewayTimeout:
		out.Code, out.Message, out.Retryable = domain.CodeTimeout, "model request timed out", true
	case strings.Contains(message, "safety") || strings.Contains(message, "blocked"):
		out.Code, out.Message = domain.CodeSafetyBlocked, "request blocked by safety filters"
	case apiErr.Code >= 500:
		out.Code, out.Message, out.Retryable = domain.CodeUpstream, "model service error", true
	default:
		out.Code, out.Message = domain.CodeUpstream, "model request rejected"
	}
}

// classifyMessage is the fallback for errors that carry no status code
func classifyMessage(out *domain.ServiceError, message string) {
	message = strings.ToLower(message)

	switch {
	case strings.Contains(message, "quota"):
		out.Code, out.Message = domain.CodeQuotaExceeded, "model quota exceeded"
	case strings.Contains(message, "rate limit") || strings.Contains(message, "too many requests"):
		out.Code, out.Message, out.Retryable = domain.CodeRateLimited, "model rate limit reached", true
	case strings.Contains(message, "timeout") || strings.Contains(message, "deadline"):
		out.Code, out.Message, out.Retryable = domain.CodeTimeout, "model request timed out", true
	case strings.Contains(message, "connection") || strings.Contains(message, "network"):
		out.Code, out.Message, out.Retryable = domain.CodeNetwork, "could not reach the model service", true
	case strings.Contains(message, "safety"):
		out.Code, out.Message = domain.CodeSafetyBlocked, "request blocked by safety filters"
	default:
		out.Code, out.Message = domain.CodeUpstream, "model request failed"
	}
}
