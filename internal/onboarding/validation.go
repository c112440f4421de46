package onboarding

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"edujourney/internal/api"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
	upperPattern    = regexp.MustCompile(`[A-Z]`)
	lowerPattern    = regexp.MustCompile(`[a-z]`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
	specialPattern  = regexp.MustCompile(`[@$!%*?&#^()_+\-=\[\]{}|;:,.<>~]`)
)

// ValidateUsername returns a message describing the first problem, or "".
func ValidateUsername(username string) string {
	if username == "" {
		return "Username is required"
	}
	if n := utf8.RuneCountInString(username); n < 3 || n > 100 {
		return "Username must be between 3 and 100 characters"
	}
	if !usernamePattern.MatchString(username) {
		return "Username must start with a letter and can only contain letters, numbers, underscore, and dash"
	}
	return ""
}

func ValidatePassword(password, username, email string) string {
	if password == "" {
		return "Password is required"
	}
	if n := utf8.RuneCountInString(password); n < 8 || n > 128 {
		return "Password must be between 8 and 128 characters"
	}
	if !upperPattern.MatchString(password) || !lowerPattern.MatchString(password) ||
		!digitPattern.MatchString(password) || !specialPattern.MatchString(password) {
		return "Password must contain uppercase, lowercase, number, and special character (@$!%*?&#^()_+-=[]{}|;:,.<>~)"
	}
	lower := strings.ToLower(password)
	if lower == strings.ToLower(username) || lower == strings.ToLower(email) {
		return "Password cannot be the same as username or email"
	}
	return ""
}

func ValidateRegister(in api.RegisterInput) string {
	if in.Username == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return "All fields are required"
	}
	if msg := ValidateUsername(in.Username); msg != "" {
		return msg
	}
	if msg := ValidatePassword(in.Password, in.Username, in.Email); msg != "" {
		return msg
	}
	if in.Password != in.ConfirmPassword {
		return "Passwords do not match"
	}
	return ""
}

// Class ids used by the backend.
const (
	ClassSD  = 1
	ClassSMP = 2
	ClassSMA = 3
)

// GradesFor lists the grade levels valid for a class.
func GradesFor(classID int) []int {
	switch classID {
	case ClassSD:
		return []int{1, 2, 3, 4, 5, 6}
	case ClassSMP, ClassSMA:
		return []int{1, 2, 3}
	default:
		return nil
	}
}

// ValidateProfile checks a complete-profile submission.
func ValidateProfile(in api.ProfileInput) string {
	if strings.TrimSpace(in.FullName) == "" {
		return "Full name is required"
	}
	if in.Gender == "" {
		return "Gender is required"
	}
	if in.ClassID == 0 || in.GradeLevelID == 0 {
		return "Please choose your class and grade"
	}
	grades := GradesFor(in.ClassID)
	if grades == nil {
		return "Unknown class"
	}
	if in.GradeLevelID < grades[0] || in.GradeLevelID > grades[len(grades)-1] {
		return "Grade does not match the selected class"
	}
	if len(in.SubjectIDs) == 0 {
		return "Please choose at least one subject"
	}
	return ""
}
