package devtools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Scenario is a screen the dev HTTP endpoint can jump to, with the overlay
// that should be open on arrival.
type Scenario struct {
	Name    string
	Screen  string
	Overlay string
}

const (
	ScreenLogin        = "login"
	ScreenOTP          = "otp"
	ScreenProfileSetup = "profile_setup"
	ScreenJourney      = "journey"
	ScreenLesson       = "lesson"
	ScreenQuiz         = "quiz"
	ScreenLeaderboard  = "leaderboard"
	ScreenAchievements = "achievements"
	ScreenChat         = "chat"
	ScreenProfile      = "profile"
)

type Manager struct{}

func NewManager() *Manager { return &Manager{} }

func (m *Manager) Resolve(name string) Scenario {
	switch strings.TrimSpace(name) {
	case "login", "logged_out":
		return Scenario{Name: "login", Screen: ScreenLogin}
	case "otp":
		return Scenario{Name: "otp", Screen: ScreenOTP}
	case "profile_setup", "onboarding":
		return Scenario{Name: "profile_setup", Screen: ScreenProfileSetup}
	case "lesson", "lesson_countdown":
		return Scenario{Name: "lesson", Screen: ScreenLesson}
	case "lesson_complete", "complete_confirm":
		return Scenario{Name: "lesson_complete", Screen: ScreenLesson, Overlay: "complete"}
	case "quiz":
		return Scenario{Name: "quiz", Screen: ScreenQuiz}
	case "leaderboard":
		return Scenario{Name: "leaderboard", Screen: ScreenLeaderboard}
	case "achievements":
		return Scenario{Name: "achievements", Screen: ScreenAchievements}
	case "achievement_toast", "toast":
		return Scenario{Name: "achievement_toast", Screen: ScreenJourney, Overlay: "toast"}
	case "chat", "ai_chat":
		return Scenario{Name: "chat", Screen: ScreenChat}
	case "profile":
		return Scenario{Name: "profile", Screen: ScreenProfile}
	case "help":
		return Scenario{Name: "help", Screen: ScreenJourney, Overlay: "help"}
	default:
		return Scenario{Name: "journey", Screen: ScreenJourney}
	}
}

// SetState records the current screen for scripts polling outside the dev
// HTTP endpoint.
func (m *Manager) SetState(ctx context.Context, cacheDir string, state string, rendered bool) error {
	_ = ctx
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cacheDir = filepath.Join(home, ".cache", "edujourney")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}
	payload := map[string]any{
		"state":    strings.TrimSpace(state),
		"rendered": rendered,
	}
	b, _ := json.Marshal(payload)
	return os.WriteFile(filepath.Join(cacheDir, "dev_state.json"), b, 0o644)
}
