package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/factorychat/pkg/chatstream"
)

// ValidationError is returned before any network activity when an argument
// is missing or blank.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TimeoutError is returned when an attempt exceeds its deadline. Timeouts
// are never retried.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("request timed out after %s", e.Timeout)
	}
	return "request timed out"
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx response from the chat backend.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NetworkError wraps a transport level failure such as a refused
// connection or a reset mid-body.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when a response body cannot be decoded
// or is missing required fields.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Err)
	}
	return "malformed response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err may succeed on another attempt: a 502 or
// 503 response, or a transport failure. Timeouts are never retryable.
func IsRetryable(err error) bool {
	if err == nil || IsTimeout(err) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status == http.StatusBadGateway || httpErr.Status == http.StatusServiceUnavailable
	}

	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsTimeout reports whether err is a *TimeoutError.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// UserMessage renders err as a sentence suitable for showing to a user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		validationErr *ValidationError
		timeoutErr    *TimeoutError
		httpErr       *HTTPError
		netErr        *NetworkError
		streamErr     *chatstream.MalformedStreamError
		responseErr   *MalformedResponseError
	)

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &timeoutErr):
		return "The request timed out. Please try again shortly."
	case errors.As(err, &httpErr):
		return httpErr.Message
	case errors.As(err, &netErr):
		return "Network connection failed. Please check your connection."
	case errors.As(err, &streamErr):
		return "Could not read the streamed response."
	case errors.As(err, &responseErr):
		return "The server returned a response in an unexpected format."
	case errors.Is(err, context.Canceled):
		return "The request was canceled."
	default:
		return err.Error()
	}
}

// BuildErrorMessage derives a message from a failed response body. A JSON
// body's "message" field wins, then its "error" field; otherwise the raw
// body (or fallback when the body is empty) is reported with the status.
func BuildErrorMessage(body []byte, status int, fallback string) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		if fallback == "" {
			fallback = "server error"
		}
		return fmt.Sprintf("request failed (%d): %s", status, fallback)
	}

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}

	return fmt.Sprintf("request failed (%d): %s", status, text)
}
