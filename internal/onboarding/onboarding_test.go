package onboarding

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/journey"
)

func TestValidateUsername(t *testing.T) {
	cases := map[string]string{
		"":        "Username is required",
		"ab":      "Username must be between 3 and 100 characters",
		"1abc":    "Username must start with a letter and can only contain letters, numbers, underscore, and dash",
		"ab c":    "Username must start with a letter and can only contain letters, numbers, underscore, and dash",
		"ana_b-1": "",
	}
	for in, want := range cases {
		if got := ValidateUsername(in); got != want {
			t.Fatalf("ValidateUsername(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if got := ValidatePassword("", "", ""); got != "Password is required" {
		t.Fatalf("unexpected %q", got)
	}
	if got := ValidatePassword("Ab1!", "", ""); got != "Password must be between 8 and 128 characters" {
		t.Fatalf("unexpected %q", got)
	}
	if got := ValidatePassword("abcdefgh1!", "", ""); got == "" {
		t.Fatalf("missing uppercase should fail")
	}
	if got := ValidatePassword("Secret#123", "secret#123", ""); got != "Password cannot be the same as username or email" {
		t.Fatalf("unexpected %q", got)
	}
	if got := ValidatePassword("Secret#123", "ana", "ana@example.com"); got != "" {
		t.Fatalf("expected valid password, got %q", got)
	}
}

func TestValidateRegister(t *testing.T) {
	in := api.RegisterInput{Username: "ana", Email: "ana@example.com", Password: "Secret#123", ConfirmPassword: "Secret#124"}
	if got := ValidateRegister(in); got != "Passwords do not match" {
		t.Fatalf("unexpected %q", got)
	}
	in.ConfirmPassword = ""
	if got := ValidateRegister(in); got != "All fields are required" {
		t.Fatalf("unexpected %q", got)
	}
	in.ConfirmPassword = in.Password
	if got := ValidateRegister(in); got != "" {
		t.Fatalf("expected valid form, got %q", got)
	}
}

func TestValidateProfile(t *testing.T) {
	in := api.ProfileInput{FullName: "Ana", Gender: "female", ClassID: ClassSMP, GradeLevelID: 4, SubjectIDs: []journey.ID{"1"}}
	if got := ValidateProfile(in); got != "Grade does not match the selected class" {
		t.Fatalf("unexpected %q", got)
	}
	in.ClassID = ClassSD
	if got := ValidateProfile(in); got != "" {
		t.Fatalf("expected valid profile, got %q", got)
	}
	in.SubjectIDs = nil
	if got := ValidateProfile(in); got == "" {
		t.Fatalf("expected subjects to be required")
	}
}

func TestFriendlyRegistrationError(t *testing.T) {
	cases := map[string]string{
		"":                            "Registration failed. Please check your input.",
		"Password needs an UPPERCASE": "Password must contain at least one uppercase letter",
		"must include a digit":        "Password must contain at least one number",
		"Username already exists":     "Username is already taken. Please choose another username",
		"email already exists":        "Username is already taken. Please choose another username",
		"Email already registered":    "Email is already registered. Please use another email or try logging in",
		"email format is bad":         "Please enter a valid email address",
		"field is required":           "All fields are required",
		"Internal Server Error":       "Server error. Please try again later",
		"request failed":              "Registration failed. Please check your input and try again",
		"Please slow down":            "Please slow down",
	}
	for in, want := range cases {
		if got := FriendlyRegistrationError(in); got != want {
			t.Fatalf("FriendlyRegistrationError(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatAPIError(t *testing.T) {
	if got := FormatAPIError(nil); got != "An error occurred. Please try again." {
		t.Fatalf("unexpected %q", got)
	}
	err := &api.Error{Status: 422, Message: "x", Data: map[string]json.RawMessage{
		"errors": json.RawMessage(`["username is required",{"message":"email is invalid"}]`),
	}}
	if got := FormatAPIError(err); got != "Username is required. Please enter a valid email address" {
		t.Fatalf("unexpected %q", got)
	}
	err = &api.Error{Status: 400, Data: map[string]json.RawMessage{"error": json.RawMessage(`{"message":"password too weak"}`)}}
	if got := FormatAPIError(err); got != "Password is too weak. Please use a stronger password with uppercase, lowercase, numbers, and special characters" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatAPIError(errors.New("network down")); got != "Network error. Please check your internet connection" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestOTPAutoSubmitsOnce(t *testing.T) {
	o := NewOTP("ana@example.com")
	var code string
	var submitted int
	for _, r := range "12a3456" {
		if c, ok := o.Type(r); ok {
			code = c
			submitted++
		}
	}
	if submitted != 1 || code != "123456" {
		t.Fatalf("expected a single submit of 123456, got %d %q", submitted, code)
	}
	if _, ok := o.Type('7'); ok {
		t.Fatalf("typing past the last box must not resubmit")
	}
	o.Backspace()
	if o.Code() != "12345" {
		t.Fatalf("expected last digit cleared, got %q", o.Code())
	}
	if c, ok := o.Type('9'); !ok || c != "123459" {
		t.Fatalf("expected corrected code to submit, got %q %v", c, ok)
	}
}

func TestOTPBackspaceMovesBack(t *testing.T) {
	o := NewOTP("x")
	o.Type('1')
	o.Type('2')
	o.Backspace()
	o.Backspace()
	if o.Code() != "" || o.Cursor() != 0 {
		t.Fatalf("expected empty entry at box 0, got %q cursor=%d", o.Code(), o.Cursor())
	}
	if got := o.Boxes("_"); got[0] != "_" {
		t.Fatalf("unexpected boxes %v", got)
	}
}

func TestResendCooldown(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	o := NewOTP("x")
	if !o.StartResend(now) {
		t.Fatalf("first resend should be allowed")
	}
	if o.StartResend(now.Add(10 * time.Second)) {
		t.Fatalf("resend during cooldown should be refused")
	}
	if got := o.ResendRemaining(now.Add(10*time.Second + 500*time.Millisecond)); got != 20 {
		t.Fatalf("expected 20s remaining, got %d", got)
	}
	if got := o.ResendRemaining(now.Add(ResendCooldown)); got != 0 {
		t.Fatalf("expected cooldown finished, got %d", got)
	}
}

func TestNextStep(t *testing.T) {
	if NextStep(api.User{ProfileComplete: true}) != StepJourney {
		t.Fatalf("complete profiles go to the journey")
	}
	if NextStep(api.User{}) != StepProfileSetup {
		t.Fatalf("incomplete profiles go to setup")
	}
	if ValidateCode("123") == "" || ValidateCode("123456") != "" {
		t.Fatalf("unexpected code validation")
	}
}
