package core

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrorType classifies a request failure for propagation policy decisions.
type ErrorType string

const (
	// ErrorTypeNotFound indicates the upstream has no data for the key (404).
	// Expected and recoverable: the aggregator converts it to a sentinel.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeUpstream indicates a systemic upstream failure (5xx, network,
	// timeout, undecodable payload).
	ErrorTypeUpstream ErrorType = "upstream_error"
	// ErrorTypeUnavailable indicates the circuit breaker is refusing calls.
	ErrorTypeUnavailable ErrorType = "upstream_unavailable"
	// ErrorTypeInvalidRequest indicates a malformed client request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
)

// APIError is the error type crossing package boundaries. It carries enough
// to map onto an HTTP response at the route layer.
type APIError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the status code to serve for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// ToJSON converts the error to a JSON-compatible map for the response body.
func (e *APIError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewNotFoundError creates a not-found error (upstream 404).
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUpstreamError creates a systemic upstream failure error.
func NewUpstreamError(statusCode int, message string, err error) *APIError {
	return &APIError{
		Type:       ErrorTypeUpstream,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewUnavailableError creates an error for a tripped circuit breaker.
func NewUnavailableError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewInvalidRequestError creates a client error (400).
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// IsNotFound reports whether err is an upstream not-found. The aggregator
// uses this to tell "no data published yet" apart from an outage.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeNotFound
}

// ParseUpstreamError builds an APIError from an upstream non-2xx response.
// The message is pulled from the body when it looks like a JSON error
// envelope ({"error": "..."} or {"message": "..."}), otherwise the raw body
// is used.
func ParseUpstreamError(statusCode int, body []byte) *APIError {
	message := string(body)
	if gjson.ValidBytes(body) {
		if m := gjson.GetBytes(body, "error"); m.Type == gjson.String {
			message = m.String()
		} else if m := gjson.GetBytes(body, "message"); m.Type == gjson.String {
			message = m.String()
		}
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	if statusCode == http.StatusNotFound {
		return NewNotFoundError(message)
	}
	return NewUpstreamError(http.StatusBadGateway, message, nil)
}
