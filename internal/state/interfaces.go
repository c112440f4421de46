package state

import (
	"context"
	"time"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	SaveSession(ctx context.Context, s Session) error
	LoadSession(ctx context.Context) (*Session, error)
	ClearSession(ctx context.Context) error
	SaveProfileDraft(ctx context.Context, d ProfileDraft) error
	LoadProfileDraft(ctx context.Context) (*ProfileDraft, error)
	ClearProfileDraft(ctx context.Context) error
	MarkCompletion(ctx context.Context, currentStreak int, now time.Time) (CompletionFlags, error)
	GetCompletion(ctx context.Context, now time.Time) (CompletionFlags, error)
	StartLessonVisit(ctx context.Context, v LessonVisit) (int64, error)
	FinishLessonVisit(ctx context.Context, visitID int64, completed bool, at time.Time) error
	GetSummary(ctx context.Context) (Summary, error)
	GetLastVisit(ctx context.Context) (*LastVisit, error)
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	Close() error
}

// Session is the persisted login. Only one is kept.
type Session struct {
	Token           string
	UserID          string
	Email           string
	Username        string
	ProfileComplete bool
	SavedTS         time.Time
}

// ProfileDraft holds a half-finished complete-profile form.
type ProfileDraft struct {
	FullName     string
	Gender       string
	GradeLevelID int
	ClassID      int
	SubjectIDs   []string
	UpdatedTS    time.Time
}

// CompletionFlags are the per-day completion facts shown after finishing a
// lesson.
type CompletionFlags struct {
	LastCompletionDay    string
	FirstCompletionToday bool
	StreakActivatedToday bool
	PreviousStreak       int
}

type LessonVisit struct {
	SessionID      string
	SubjectLevelID string
	LevelID        string
	Bodies         int
	StartTS        time.Time
}

type Summary struct {
	Visits    int
	Completed int
}

type LastVisit struct {
	SubjectLevelID string
	LevelID        string
	StartTS        time.Time
	Completed      bool
}
