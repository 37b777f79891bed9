package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TransportError reports a round trip that never produced a response
// (DNS, connection refused, timeout, cancellation).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to send request %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response, normalized by the common response
// interceptor. The response body has already been read and closed.
type ServerError struct {
	StatusCode int
	Method     string
	URL        string

	// Message is taken from a JSON "message" or "error" key, or the raw body.
	Message string
	Body    []byte
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: HTTP %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// IsStatus reports whether err is a ServerError with the given status code.
func IsStatus(err error, code int) bool {
	var se *ServerError
	return errors.As(err, &se) && se.StatusCode == code
}

// IsUnauthorized reports whether err is a 401 ServerError.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// errorBody covers the error envelopes the backend emits: echo's
// {"message": ...} and the OAuth2-style {"error", "error_description"}.
type errorBody struct {
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewServerError builds a ServerError from a response whose body has been read.
func NewServerError(resp *http.Response, body []byte) *ServerError {
	se := &ServerError{
		StatusCode: resp.StatusCode,
		Body:       body,
	}
	if resp.Request != nil {
		se.Method = resp.Request.Method
		se.URL = resp.Request.URL.String()
	}
	se.Message = messageFromBody(body)
	return se
}

func messageFromBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Message != "":
			return eb.Message
		case eb.Error != "" && eb.ErrorDescription != "":
			return eb.Error + ": " + eb.ErrorDescription
		case eb.Error != "":
			return eb.Error
		}
	}

	// JSON string bodies, e.g. "Report sent successfully"
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}

	const maxRaw = 512
	if len(trimmed) > maxRaw {
		return trimmed[:maxRaw]
	}
	return trimmed
}
