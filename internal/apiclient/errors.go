package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// GenericMessage is shown when nothing more specific is known.
const GenericMessage = "Something went wrong. Please try again."

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// NetworkError means the backend could not be reached or the response was cut short.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "backend unreachable: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	var f fields
	if json.Unmarshal(body, &f) == nil {
		e.Message = f.str("error", "message", "detail", "msg")
		if e.Message == "" {
			e.Message = f.object("error").str("message")
		}
	}
	return e
}

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// UserMessage maps any error from this package to a short message fit for a banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return "Your session has expired. Please log in again."
		case apiErr.Status == http.StatusForbidden:
			return "You do not have permission to do that."
		case apiErr.Status == http.StatusNotFound:
			return "The requested item no longer exists."
		case apiErr.Status >= 500:
			return "The server encountered an error. Please try again later."
		}
		return GenericMessage
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The server took too long to respond. Please try again."
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "Unable to reach the server. Please check your connection."
	}
	return GenericMessage
}

// HTTPStatus is the status a handler should answer with when a backend call fails.
// Client errors pass through; backend failures become 502, an unreachable backend 503
// and a timeout 504.
func HTTPStatus(err error) int {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
