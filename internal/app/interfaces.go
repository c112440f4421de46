package app

import (
	"context"
	"encoding/json"

	"edujourney/internal/api"
	"edujourney/internal/chat"
	"edujourney/internal/journey"
	"edujourney/internal/quiz"
	"edujourney/internal/ui"
)

// Backend is everything the app asks of the learning platform.
type Backend interface {
	chat.Backend
	quiz.Backend

	SetToken(token string)
	Token() string

	Register(ctx context.Context, in api.RegisterInput) (api.User, error)
	RequestOTP(ctx context.Context, email, purpose string) error
	VerifyEmail(ctx context.Context, email, code string) (api.AuthResult, error)
	Login(ctx context.Context, email, password string) (api.AuthResult, error)
	Me(ctx context.Context) (api.User, error)
	Profile(ctx context.Context) (api.Profile, error)
	CompleteProfile(ctx context.Context, in api.ProfileInput) (api.Profile, error)
	UpdateAvatar(ctx context.Context, avatarURL string) (api.Profile, error)

	Subjects(ctx context.Context) ([]api.Subject, error)
	SubjectLevelsByClass(ctx context.Context, classID int) ([]api.SubjectLevel, error)
	LevelsBySubjectLevel(ctx context.Context, subjectLevelID journey.ID) ([]journey.Level, error)
	Level(ctx context.Context, id journey.ID) (journey.Level, error)

	StartLevel(ctx context.Context, levelID journey.ID) (api.LevelProgress, error)
	CompleteLevel(ctx context.Context, levelID journey.ID) (api.Completion, error)
	JourneyMap(ctx context.Context, subjectLevelID journey.ID) ([]journey.ProgressEntry, error)
	Stats(ctx context.Context) (api.Stats, error)

	Leaderboard(ctx context.Context, kind string, limit int) (json.RawMessage, error)
	MyRank(ctx context.Context, kind string) (json.RawMessage, error)
	Achievements(ctx context.Context) (json.RawMessage, error)
	MyAchievements(ctx context.Context) (json.RawMessage, error)

	Notifications(ctx context.Context, unreadOnly bool, limit int) ([]api.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkAllRead(ctx context.Context) error
}

var (
	_ Backend       = (*api.Client)(nil)
	_ ui.Controller = (*App)(nil)
)
