package onboarding

import (
	"encoding/json"
	"errors"
	"strings"

	"edujourney/internal/api"
)

const genericRegistrationError = "Registration failed. Please check your input."

type rule struct {
	match func(string) bool
	text  string
}

func has(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Order matters: several rules test an unscoped keyword on their own, so
// "digit" alone maps to the number message even without "password".
var registrationRules = []rule{
	{func(e string) bool { return has(e, "password") && has(e, "uppercase") }, "Password must contain at least one uppercase letter"},
	{func(e string) bool { return has(e, "password") && has(e, "lowercase") }, "Password must contain at least one lowercase letter"},
	{func(e string) bool { return has(e, "password") && has(e, "number") || has(e, "digit") }, "Password must contain at least one number"},
	{func(e string) bool { return has(e, "password") && has(e, "special", "symbol", "character") }, "Password must contain at least one special character (@$!%*?&#^()_+-=[]{}|;:,.<>~)"},
	{func(e string) bool { return has(e, "password") && has(e, "length", "8", "minimum") }, "Password must be at least 8 characters long"},
	{func(e string) bool { return has(e, "password") && has(e, "maximum", "128") }, "Password must not exceed 128 characters"},
	{func(e string) bool { return has(e, "password") && has(e, "required") }, "Password is required"},
	{func(e string) bool { return has(e, "password") && has(e, "weak") || has(e, "too simple") }, "Password is too weak. Please use a stronger password with uppercase, lowercase, numbers, and special characters"},

	{func(e string) bool {
		return has(e, "username") && has(e, "taken") || has(e, "already exists") || has(e, "duplicate")
	}, "Username is already taken. Please choose another username"},
	{func(e string) bool { return has(e, "username") && has(e, "length", "3", "100") }, "Username must be between 3 and 100 characters"},
	{func(e string) bool { return has(e, "username") && has(e, "invalid", "format", "character") }, "Username must start with a letter and can only contain letters, numbers, underscore, and dash"},
	{func(e string) bool { return has(e, "username") && has(e, "required") }, "Username is required"},

	{func(e string) bool {
		return has(e, "email") && has(e, "taken", "already exists", "duplicate", "already registered")
	}, "Email is already registered. Please use another email or try logging in"},
	{func(e string) bool { return has(e, "email") && has(e, "invalid", "format", "valid") }, "Please enter a valid email address"},
	{func(e string) bool { return has(e, "email") && has(e, "required") }, "Email is required"},

	{func(e string) bool { return has(e, "validation", "invalid input") }, "Please check your input and try again"},
	{func(e string) bool { return has(e, "required") && !has(e, "password", "username", "email") }, "All fields are required"},

	{func(e string) bool { return has(e, "500", "internal server error") }, "Server error. Please try again later"},
	{func(e string) bool { return has(e, "network", "connection", "fetch") }, "Network error. Please check your internet connection"},

	{func(e string) bool { return has(e, "error", "failed") }, "Registration failed. Please check your input and try again"},
}

// FriendlyRegistrationError rewrites a backend registration message into
// something a learner can act on. Messages that match no rule pass through.
func FriendlyRegistrationError(msg string) string {
	if msg == "" {
		return genericRegistrationError
	}
	lower := strings.ToLower(msg)
	for _, r := range registrationRules {
		if r.match(lower) {
			return r.text
		}
	}
	return msg
}

// FormatAPIError flattens an error from the API client. Field errors are
// each rewritten and joined with ". ".
func FormatAPIError(err error) string {
	if err == nil {
		return "An error occurred. Please try again."
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Data != nil {
		if raw, ok := apiErr.Data["errors"]; ok {
			var items []json.RawMessage
			if json.Unmarshal(raw, &items) == nil {
				parts := make([]string, 0, len(items))
				for _, item := range items {
					parts = append(parts, FriendlyRegistrationError(fieldErrorText(item)))
				}
				return strings.Join(parts, ". ")
			}
		}
		if msg := stringField(apiErr.Data, "message"); msg != "" {
			return FriendlyRegistrationError(msg)
		}
		if raw, ok := apiErr.Data["error"]; ok && string(raw) != "null" {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				return FriendlyRegistrationError(s)
			}
			var obj struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(raw, &obj)
			return FriendlyRegistrationError(obj.Message)
		}
	}
	return FriendlyRegistrationError(err.Error())
}

func fieldErrorText(item json.RawMessage) string {
	var s string
	if json.Unmarshal(item, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(item, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return string(item)
}

func stringField(data map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := data[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}
