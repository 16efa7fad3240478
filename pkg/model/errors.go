package model

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a backend-reported failure: a response arrived, but with a
// non-2xx status. Message holds the backend's own text when it sent one.
type APIError struct {
	Status  int
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

// NewAPIError builds an APIError from a response status and raw body.
func NewAPIError(status int, body []byte) *APIError {
	return &APIError{
		Status:  status,
		Message: ErrorText(body),
		Body:    string(body),
	}
}

// ErrorText extracts a human-readable message from an error body. The
// backend is not consistent: it may send a bare JSON string, an object with
// "error" or "message", or plain text.
func ErrorText(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var s string
	if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		for _, key := range []string{"error", "message"} {
			if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	// Plain text, but not an HTML error page.
	if strings.HasPrefix(trimmed, "<") {
		return ""
	}
	return trimmed
}
