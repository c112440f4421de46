package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNoLevels           = errors.New("no levels available for this subject")
	ErrProfileIncomplete  = errors.New("Profile incomplete. Please complete your profile first.")
	ErrNoSubjects         = errors.New("No subjects available for your class")
	ErrMissingCredentials = errors.New("email and password are required")
)

// Error is a backend failure. Status is the HTTP status code; a 2xx status
// means the backend answered but reported success=false.
type Error struct {
	Status  int
	Message string
	Data    map[string]json.RawMessage
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Rejected reports an application-level failure delivered with a 2xx status.
func (e *Error) Rejected() bool {
	return e.Status >= 200 && e.Status < 300
}

func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// ErrorMessage returns the user-facing text for err.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// newStatusError extracts the message for a non-2xx response body.
func newStatusError(status int, data map[string]json.RawMessage) *Error {
	return &Error{Status: status, Message: statusMessage(status, data), Data: data}
}

// newRejectedError handles {"success": false} on a 2xx response.
func newRejectedError(status int, data map[string]json.RawMessage) *Error {
	msg := errorField(data, "")
	if msg == "" {
		msg = stringOf(data["message"])
	}
	if msg == "" {
		msg = "Request failed"
	}
	return &Error{Status: status, Message: msg, Data: data}
}

func statusMessage(status int, data map[string]json.RawMessage) string {
	switch status {
	case http.StatusInternalServerError:
		if present(data["error"]) {
			return errorField(data, "Server error (500)")
		}
		if msg := stringOf(data["message"]); msg != "" {
			return msg
		}
		if joined := joinErrors(data["errors"], false); joined != "" {
			return joined
		}
		return "Server error (500). Something went wrong on the backend, please try again later."
	case http.StatusNotFound:
		return firstNonEmpty(stringOf(data["message"]), errorField(data, ""), "Resource not found.")
	case http.StatusUnauthorized:
		return firstNonEmpty(stringOf(data["message"]), errorField(data, ""), "Unauthorized. Please log in again.")
	case http.StatusForbidden:
		return firstNonEmpty(stringOf(data["message"]), errorField(data, ""), "Forbidden. You are not allowed to do this.")
	}
	if hasItems(data["errors"]) {
		return firstNonEmpty(joinErrors(data["errors"], true), stringOf(data["message"]), "Validation error")
	}
	if msg := stringOf(data["message"]); msg != "" {
		return msg
	}
	if present(data["error"]) {
		return errorField(data, "Request failed")
	}
	return "Request failed"
}

// errorField reads "error" as a string or as an object with a message.
func errorField(data map[string]json.RawMessage, fallback string) string {
	raw := data["error"]
	if s := stringOf(raw); s != "" {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return fallback
}

// joinErrors flattens an errors array. Each item contributes its message,
// its field name when withField is set, or itself when it is a string.
func joinErrors(raw json.RawMessage, withField bool) string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		var obj struct {
			Message string `json:"message"`
			Field   string `json:"field"`
		}
		if json.Unmarshal(item, &obj) == nil {
			if obj.Message != "" {
				parts = append(parts, obj.Message)
				continue
			}
			if withField && obj.Field != "" {
				parts = append(parts, obj.Field)
				continue
			}
		}
		if s := stringOf(item); s != "" {
			parts = append(parts, s)
			continue
		}
		parts = append(parts, string(item))
	}
	return strings.Join(parts, ", ")
}

func present(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != `""` && s != "false" && s != "0"
}

func hasItems(raw json.RawMessage) bool {
	var items []json.RawMessage
	return json.Unmarshal(raw, &items) == nil && len(items) > 0
}

func stringOf(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
