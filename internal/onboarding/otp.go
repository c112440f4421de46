package onboarding

import (
	"strings"
	"time"

	"edujourney/internal/api"
)

const (
	OTPLength      = 6
	ResendCooldown = 30 * time.Second
)

// OTP is the one-time code entry. Digits fill left to right; the code is
// submitted as soon as every box holds a digit.
type OTP struct {
	Email     string
	digits    [OTPLength]string
	cursor    int
	resendAt  time.Time
	submitted string
}

func NewOTP(email string) *OTP {
	return &OTP{Email: email}
}

// Type enters one character. Non-digits are ignored. It reports the full
// code when this keystroke completed it.
func (o *OTP) Type(r rune) (string, bool) {
	if r < '0' || r > '9' || o.cursor >= OTPLength {
		return "", false
	}
	o.digits[o.cursor] = string(r)
	if o.cursor < OTPLength-1 {
		o.cursor++
	} else {
		o.cursor = OTPLength
	}
	if code, ok := o.Complete(); ok && code != o.submitted {
		o.submitted = code
		return code, true
	}
	return "", false
}

// Backspace clears the current box, or moves back when it is already empty.
func (o *OTP) Backspace() {
	if o.cursor >= OTPLength {
		o.cursor = OTPLength - 1
	}
	if o.digits[o.cursor] == "" && o.cursor > 0 {
		o.cursor--
	}
	o.digits[o.cursor] = ""
	o.submitted = ""
}

func (o *OTP) Reset() {
	o.digits = [OTPLength]string{}
	o.cursor = 0
	o.submitted = ""
}

func (o *OTP) Code() string {
	return strings.Join(o.digits[:], "")
}

func (o *OTP) Complete() (string, bool) {
	for _, d := range o.digits {
		if d == "" {
			return "", false
		}
	}
	return o.Code(), true
}

// Boxes renders each position, using placeholder for empty ones.
func (o *OTP) Boxes(placeholder string) []string {
	out := make([]string, OTPLength)
	for i, d := range o.digits {
		if d == "" {
			d = placeholder
		}
		out[i] = d
	}
	return out
}

func (o *OTP) Cursor() int { return o.cursor }

// StartResend arms the resend cooldown. It reports false while a previous
// cooldown is still running.
func (o *OTP) StartResend(now time.Time) bool {
	if o.ResendRemaining(now) > 0 {
		return false
	}
	o.resendAt = now.Add(ResendCooldown)
	return true
}

// ResendRemaining is the whole seconds left before another code may be
// requested.
func (o *OTP) ResendRemaining(now time.Time) int {
	if o.resendAt.IsZero() || !now.Before(o.resendAt) {
		return 0
	}
	left := o.resendAt.Sub(now)
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

// ValidateCode checks a manually submitted code.
func ValidateCode(code string) string {
	if len(code) != OTPLength {
		return "Please enter complete OTP code"
	}
	return ""
}

type Step string

const (
	StepJourney      Step = "journey"
	StepProfileSetup Step = "profile_setup"
)

// NextStep routes a freshly authenticated user.
func NextStep(u api.User) Step {
	if u.ProfileComplete {
		return StepJourney
	}
	return StepProfileSetup
}
