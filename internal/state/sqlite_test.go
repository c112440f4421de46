package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "state.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := openStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	got, err := store.LoadSession(ctx)
	if err != nil || got != nil {
		t.Fatalf("expected no session, got %#v err=%v", got, err)
	}
	saved := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	if err := store.SaveSession(ctx, Session{Token: "tok", UserID: "7", Email: "ana@example.com", ProfileComplete: true, SavedTS: saved}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := store.SaveSession(ctx, Session{Token: "tok2", UserID: "7", SavedTS: saved}); err != nil {
		t.Fatalf("overwrite session: %v", err)
	}
	got, err = store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if got == nil || got.Token != "tok2" || got.ProfileComplete || !got.SavedTS.Equal(saved) {
		t.Fatalf("unexpected session %#v", got)
	}
	if err := store.SaveSession(ctx, Session{}); err != nil {
		t.Fatalf("clear via empty token: %v", err)
	}
	if got, _ := store.LoadSession(ctx); got != nil {
		t.Fatalf("expected session cleared, got %#v", got)
	}
}

func TestProfileDraftRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.SaveProfileDraft(ctx, ProfileDraft{FullName: "Ana", ClassID: 2, GradeLevelID: 1, SubjectIDs: []string{"3", " ", "5"}}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	d, err := store.LoadProfileDraft(ctx)
	if err != nil {
		t.Fatalf("load draft: %v", err)
	}
	if d == nil || d.FullName != "Ana" || len(d.SubjectIDs) != 2 || d.SubjectIDs[1] != "5" {
		t.Fatalf("unexpected draft %#v", d)
	}
	if err := store.ClearProfileDraft(ctx); err != nil {
		t.Fatalf("clear draft: %v", err)
	}
	if d, _ := store.LoadProfileDraft(ctx); d != nil {
		t.Fatalf("expected draft cleared")
	}
}

func TestMarkCompletionFlags(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	day1 := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	flags, err := store.MarkCompletion(ctx, 1, day1)
	if err != nil {
		t.Fatalf("mark completion: %v", err)
	}
	if !flags.FirstCompletionToday || !flags.StreakActivatedToday || flags.PreviousStreak != 1 {
		t.Fatalf("unexpected first completion flags %#v", flags)
	}

	flags, err = store.MarkCompletion(ctx, 1, day1.Add(time.Minute))
	if err != nil {
		t.Fatalf("mark second completion: %v", err)
	}
	if flags.FirstCompletionToday || flags.StreakActivatedToday {
		t.Fatalf("second completion the same day should clear both flags, got %#v", flags)
	}

	day2 := day1.AddDate(0, 0, 1)
	got, err := store.GetCompletion(ctx, day2)
	if err != nil {
		t.Fatalf("get completion: %v", err)
	}
	if got.FirstCompletionToday || got.PreviousStreak != 1 {
		t.Fatalf("unexpected next-day view %#v", got)
	}
	flags, err = store.MarkCompletion(ctx, 2, day2)
	if err != nil {
		t.Fatalf("mark day2: %v", err)
	}
	if !flags.FirstCompletionToday || flags.StreakActivatedToday || flags.PreviousStreak != 2 {
		t.Fatalf("unexpected day2 flags %#v", flags)
	}
}

func TestLessonVisitsSummaryAndLast(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	first, err := store.StartLessonVisit(ctx, LessonVisit{SessionID: "s", SubjectLevelID: "11", LevelID: "1", Bodies: 3, StartTS: start})
	if err != nil {
		t.Fatalf("start visit: %v", err)
	}
	if err := store.FinishLessonVisit(ctx, first, true, start.Add(time.Minute)); err != nil {
		t.Fatalf("finish visit: %v", err)
	}
	if _, err := store.StartLessonVisit(ctx, LessonVisit{SessionID: "s", SubjectLevelID: "11", LevelID: "2", StartTS: start.Add(2 * time.Minute)}); err != nil {
		t.Fatalf("start second visit: %v", err)
	}

	sum, err := store.GetSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Visits != 2 || sum.Completed != 1 {
		t.Fatalf("unexpected summary %#v", sum)
	}
	last, err := store.GetLastVisit(ctx)
	if err != nil {
		t.Fatalf("last visit: %v", err)
	}
	if last == nil || last.LevelID != "2" || last.SubjectLevelID != "11" || last.Completed {
		t.Fatalf("unexpected last visit %#v", last)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.SaveSettings(ctx, map[string]string{"leaderboard_type": "weekly", "motion": "off", " ": "x"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	got, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if len(got) != 2 || got["leaderboard_type"] != "weekly" {
		t.Fatalf("unexpected settings %#v", got)
	}
	if SettingInt(map[string]string{"n": " 5 "}, "n", 1) != 5 || SettingInt(got, "missing", 9) != 9 {
		t.Fatalf("unexpected SettingInt results")
	}
}
