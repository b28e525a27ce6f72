package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FallbackMessage is used when no other message can be recovered from a failure.
const FallbackMessage = "An unexpected error occurred"

// Error is the single failure shape returned by every remote call. StatusCode is
// zero when the request never produced an HTTP response.
type Error struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports whether the server answered 404.
func (e *Error) NotFound() bool { return e.StatusCode == 404 }

// Unauthorized reports whether the server rejected the credential.
func (e *Error) Unauthorized() bool { return e.StatusCode == 401 || e.StatusCode == 403 }

// Normalize converts any error into an *Error. An *Error anywhere in the chain
// is returned as is; anything else keeps its text, falling back to
// FallbackMessage when that is blank.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = FallbackMessage
	}
	return &Error{Message: msg, Err: err}
}

// Message returns the display text of err after normalization, or "" for nil.
func Message(err error) string {
	if n := Normalize(err); n != nil {
		return n.Message
	}
	return ""
}

// errorBody holds the fields a backend may use to describe a failure.
type errorBody struct {
	Error   any `json:"error"`
	Message any `json:"message"`
}

// fromResponse builds the error for a non-2xx answer. The body's "error" field
// wins over "message"; without either the transport-level status message is used.
func fromResponse(status int, body []byte) *Error {
	transport := fmt.Errorf("Request failed with status code %d", status)

	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		if msg := text(eb.Error); msg != "" {
			return &Error{Message: msg, StatusCode: status, Err: transport}
		}
		if msg := text(eb.Message); msg != "" {
			return &Error{Message: msg, StatusCode: status, Err: transport}
		}
	}
	return &Error{Message: transport.Error(), StatusCode: status, Err: transport}
}

// fromTransport wraps a failure that happened before or while reading a
// response. The result is always a fresh value; an *Error found in err's chain
// may be shared and is never modified.
func fromTransport(status int, err error) *Error {
	n := *Normalize(err)
	n.StatusCode = status
	return &n
}

func text(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
