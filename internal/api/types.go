package api

import (
	"bytes"
	"encoding/json"

	"edujourney/internal/journey"
)

// Points decodes either a bare number or the {total, weekly, monthly} object
// newer backends send.
type Points struct {
	Total   int `json:"total"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
}

func (p *Points) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = Points{}
		return nil
	}
	if b[0] != '{' {
		var n float64
		if err := json.Unmarshal(b, &n); err != nil {
			*p = Points{}
			return nil
		}
		*p = Points{Total: int(n)}
		return nil
	}
	type plain Points
	var out plain
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*p = Points(out)
	return nil
}

// Streak decodes either a bare number or {current, longest, last_active_date}.
type Streak struct {
	Current        int    `json:"current"`
	Longest        int    `json:"longest"`
	LastActiveDate string `json:"last_active_date,omitempty"`
}

func (s *Streak) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = Streak{}
		return nil
	}
	if b[0] != '{' {
		var n float64
		if err := json.Unmarshal(b, &n); err != nil {
			*s = Streak{}
			return nil
		}
		*s = Streak{Current: int(n)}
		return nil
	}
	type plain Streak
	var out plain
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*s = Streak(out)
	return nil
}

type User struct {
	ID              journey.ID `json:"id"`
	Email           string     `json:"email"`
	Username        string     `json:"username"`
	IsVerified      bool       `json:"is_verified"`
	ProfileComplete bool       `json:"profile_complete"`
	Profile         *Profile   `json:"profile,omitempty"`
}

// DisplayName prefers the username, then the profile's full name.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.Profile != nil && u.Profile.FullName != "" {
		return u.Profile.FullName
	}
	return "User"
}

type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type Profile struct {
	ID           journey.ID   `json:"id"`
	UserID       journey.ID   `json:"user_id"`
	FullName     string       `json:"full_name"`
	Gender       string       `json:"gender"`
	GradeLevelID int          `json:"grade_level_id"`
	ClassID      int          `json:"class_id"`
	SubjectIDs   []journey.ID `json:"subject_ids,omitempty"`
	AvatarURL    string       `json:"avatar_url"`
	Points       Points       `json:"points"`
	Streak       Streak       `json:"streak"`
}

// ClassLabel names the school stage behind ClassID.
func (p Profile) ClassLabel() string {
	switch p.ClassID {
	case 1:
		return "SD"
	case 2:
		return "SMP"
	case 3:
		return "SMA"
	default:
		return ""
	}
}

// ProfileInput is the body of the complete/update profile calls.
type ProfileInput struct {
	FullName     string       `json:"full_name"`
	Gender       string       `json:"gender"`
	GradeLevelID int          `json:"grade_level_id"`
	ClassID      int          `json:"class_id"`
	SubjectIDs   []journey.ID `json:"subject_ids"`
}

type Subject struct {
	ID          journey.ID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	IconURL     string     `json:"icon_url,omitempty"`
}

// SubjectLevel is one subject taught at a class level. Backends nest the
// subject under either "subjects" or "subject".
type SubjectLevel struct {
	ID        journey.ID `json:"id"`
	SubjectID journey.ID `json:"subject_id"`
	ClassID   int        `json:"class_id"`
	Subjects  *Subject   `json:"subjects,omitempty"`
	Subject   *Subject   `json:"subject,omitempty"`
}

func (s SubjectLevel) SubjectInfo() Subject {
	if s.Subjects != nil {
		return *s.Subjects
	}
	if s.Subject != nil {
		return *s.Subject
	}
	return Subject{ID: s.SubjectID}
}

// Stats is the learner summary from /api/progress/stats. The points and
// streak fields come in several spellings; TotalPoints and CurrentStreak
// fold them.
type Stats struct {
	Points           Points `json:"points"`
	TotalPointsRaw   int    `json:"total_points"`
	Streak           Streak `json:"streak"`
	CurrentStreakRaw int    `json:"current_streak"`
	CompletedLevels  int    `json:"completed_levels"`
	InProgress       int    `json:"in_progress_levels"`
	Achievements     int    `json:"achievements_count"`
}

func (s Stats) TotalPoints() int {
	if s.Points.Total != 0 {
		return s.Points.Total
	}
	return s.TotalPointsRaw
}

func (s Stats) CurrentStreak() int {
	if s.Streak.Current != 0 {
		return s.Streak.Current
	}
	return s.CurrentStreakRaw
}

// LevelProgress is the server view of one started or completed level.
type LevelProgress struct {
	ID          journey.ID `json:"id"`
	LevelID     journey.ID `json:"level_id"`
	Status      string     `json:"status"`
	Score       int        `json:"score"`
	StartedAt   string     `json:"started_at,omitempty"`
	CompletedAt string     `json:"completed_at,omitempty"`
}

// Completion is what the complete-level call returns.
type Completion struct {
	Message      string              `json:"-"`
	Progress     LevelProgress       `json:"progress"`
	PointsEarned int                 `json:"points_earned"`
	Achievements []AchievementUnlock `json:"achievements,omitempty"`
}

type AchievementUnlock struct {
	ID           journey.ID `json:"id"`
	Title        string     `json:"title"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	IconURL      string     `json:"icon_url"`
	PointsReward int        `json:"points_reward"`
}

type Question struct {
	ID       journey.ID `json:"id"`
	LevelID  journey.ID `json:"level_id"`
	Question string     `json:"question"`
	Options  []string   `json:"options"`
	Points   int        `json:"points"`
}

type Answer struct {
	QuestionID journey.ID `json:"question_id"`
	Answer     string     `json:"answer"`
}

type SubmitResult struct {
	Score          int  `json:"score"`
	CorrectAnswers int  `json:"correct_answers"`
	TotalQuestions int  `json:"total_questions"`
	Passed         bool `json:"passed"`
	PointsEarned   int  `json:"points_earned"`
}

type Notification struct {
	ID        journey.ID `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	IsRead    bool       `json:"is_read"`
	CreatedAt string     `json:"created_at"`
}

type ChatSession struct {
	ID        journey.ID `json:"id"`
	SubjectID journey.ID `json:"subject_id"`
	LevelID   journey.ID `json:"level_id"`
	Title     string     `json:"title,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
}

type ChatMessage struct {
	ID        journey.ID `json:"id"`
	SessionID journey.ID `json:"session_id"`
	Sender    string     `json:"sender"`
	Message   string     `json:"message"`
	CreatedAt string     `json:"created_at"`
}

// ChatReply is the send-message result. Older backends name the reply
// bot_message.
type ChatReply struct {
	UserMessage *ChatMessage `json:"user_message,omitempty"`
	AIMessage   *ChatMessage `json:"ai_message,omitempty"`
	BotMessage  *ChatMessage `json:"bot_message,omitempty"`
}

func (r ChatReply) Bot() *ChatMessage {
	if r.AIMessage != nil {
		return r.AIMessage
	}
	return r.BotMessage
}
