package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS auth_session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			profile_complete INTEGER NOT NULL DEFAULT 0,
			saved_ts TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS profile_draft (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			full_name TEXT NOT NULL DEFAULT '',
			gender TEXT NOT NULL DEFAULT '',
			grade_level_id INTEGER NOT NULL DEFAULT 0,
			class_id INTEGER NOT NULL DEFAULT 0,
			subject_ids TEXT NOT NULL DEFAULT '',
			updated_ts TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS completion_tracker (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_completion_day TEXT NOT NULL DEFAULT '',
			first_completion_today INTEGER NOT NULL DEFAULT 0,
			streak_activated_today INTEGER NOT NULL DEFAULT 0,
			previous_streak INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS lesson_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			level_id TEXT NOT NULL,
			bodies INTEGER NOT NULL DEFAULT 0,
			start_ts TEXT NOT NULL,
			finished_ts TEXT NOT NULL DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	// Backfill databases created before visits recorded their subject level.
	if _, err := s.db.ExecContext(ctx, `ALTER TABLE lesson_visits ADD COLUMN subject_level_id TEXT NOT NULL DEFAULT ''`); err != nil {
		msg := strings.ToLower(err.Error())
		if !strings.Contains(msg, "duplicate column name") {
			return fmt.Errorf("ensure schema alter lesson_visits.subject_level_id: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.Token) == "" {
		return s.ClearSession(ctx)
	}
	saved := sess.SavedTS
	if saved.IsZero() {
		saved = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_session(id, token, user_id, email, username, profile_complete, saved_ts)
		VALUES(1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			email = excluded.email,
			username = excluded.username,
			profile_complete = excluded.profile_complete,
			saved_ts = excluded.saved_ts
	`, sess.Token, sess.UserID, sess.Email, sess.Username, ifThen(sess.ProfileComplete, 1, 0), saved.UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) LoadSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, email, username, profile_complete, saved_ts
		FROM auth_session WHERE id = 1
	`)
	var (
		out      Session
		complete int
		savedRaw string
	)
	if err := row.Scan(&out.Token, &out.UserID, &out.Email, &out.Username, &complete, &savedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	out.ProfileComplete = complete == 1
	if t, err := time.Parse(timeLayout, savedRaw); err == nil {
		out.SavedTS = t
	}
	return &out, nil
}

func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_session`)
	return err
}

func (s *SQLiteStore) SaveProfileDraft(ctx context.Context, d ProfileDraft) error {
	updated := d.UpdatedTS
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	ids := make([]string, 0, len(d.SubjectIDs))
	for _, id := range d.SubjectIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_draft(id, full_name, gender, grade_level_id, class_id, subject_ids, updated_ts)
		VALUES(1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			gender = excluded.gender,
			grade_level_id = excluded.grade_level_id,
			class_id = excluded.class_id,
			subject_ids = excluded.subject_ids,
			updated_ts = excluded.updated_ts
	`, d.FullName, d.Gender, max(0, d.GradeLevelID), max(0, d.ClassID), strings.Join(ids, ","), updated.UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) LoadProfileDraft(ctx context.Context) (*ProfileDraft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT full_name, gender, grade_level_id, class_id, subject_ids, updated_ts
		FROM profile_draft WHERE id = 1
	`)
	var (
		out        ProfileDraft
		subjectRaw string
		updatedRaw string
	)
	if err := row.Scan(&out.FullName, &out.Gender, &out.GradeLevelID, &out.ClassID, &subjectRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if subjectRaw != "" {
		out.SubjectIDs = strings.Split(subjectRaw, ",")
	}
	if t, err := time.Parse(timeLayout, updatedRaw); err == nil {
		out.UpdatedTS = t
	}
	return &out, nil
}

func (s *SQLiteStore) ClearProfileDraft(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profile_draft`)
	return err
}

// MarkCompletion records a finished lesson. The first completion of a local
// calendar day sets FirstCompletionToday; a streak going from 0 to 1 sets
// StreakActivatedToday.
func (s *SQLiteStore) MarkCompletion(ctx context.Context, currentStreak int, now time.Time) (CompletionFlags, error) {
	prev, err := s.loadCompletion(ctx)
	if err != nil {
		return CompletionFlags{}, err
	}
	today := dayKey(now)
	flags := CompletionFlags{
		LastCompletionDay:    today,
		FirstCompletionToday: prev.LastCompletionDay != today,
		StreakActivatedToday: currentStreak == 1 && prev.PreviousStreak == 0,
		PreviousStreak:       max(0, currentStreak),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO completion_tracker(id, last_completion_day, first_completion_today, streak_activated_today, previous_streak)
		VALUES(1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_completion_day = excluded.last_completion_day,
			first_completion_today = excluded.first_completion_today,
			streak_activated_today = excluded.streak_activated_today,
			previous_streak = excluded.previous_streak
	`, flags.LastCompletionDay,
		ifThen(flags.FirstCompletionToday, 1, 0),
		ifThen(flags.StreakActivatedToday, 1, 0),
		flags.PreviousStreak,
	)
	if err != nil {
		return CompletionFlags{}, err
	}
	return flags, nil
}

// GetCompletion returns the tracker with the daily flags cleared when the
// last completion was on an earlier day.
func (s *SQLiteStore) GetCompletion(ctx context.Context, now time.Time) (CompletionFlags, error) {
	flags, err := s.loadCompletion(ctx)
	if err != nil {
		return CompletionFlags{}, err
	}
	if flags.LastCompletionDay != dayKey(now) {
		flags.FirstCompletionToday = false
		flags.StreakActivatedToday = false
	}
	return flags, nil
}

func (s *SQLiteStore) loadCompletion(ctx context.Context) (CompletionFlags, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_completion_day, first_completion_today, streak_activated_today, previous_streak
		FROM completion_tracker WHERE id = 1
	`)
	var (
		out       CompletionFlags
		firstInt  int
		streakInt int
	)
	if err := row.Scan(&out.LastCompletionDay, &firstInt, &streakInt, &out.PreviousStreak); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CompletionFlags{}, nil
		}
		return CompletionFlags{}, err
	}
	out.FirstCompletionToday = firstInt == 1
	out.StreakActivatedToday = streakInt == 1
	return out, nil
}

func (s *SQLiteStore) StartLessonVisit(ctx context.Context, v LessonVisit) (int64, error) {
	start := v.StartTS
	if start.IsZero() {
		start = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lesson_visits(session_id, subject_level_id, level_id, bodies, start_ts) VALUES(?,?,?,?,?)`,
		v.SessionID,
		strings.TrimSpace(v.SubjectLevelID),
		strings.TrimSpace(v.LevelID),
		max(0, v.Bodies),
		start.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) FinishLessonVisit(ctx context.Context, visitID int64, completed bool, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE lesson_visits SET finished_ts = ?, completed = ? WHERE id = ?`,
		at.UTC().Format(timeLayout), ifThen(completed, 1, 0), visitID)
	return err
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	var out Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(completed), 0)
		FROM lesson_visits
	`)
	if err := row.Scan(&out.Visits, &out.Completed); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *SQLiteStore) GetLastVisit(ctx context.Context) (*LastVisit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT subject_level_id, level_id, start_ts, completed
		FROM lesson_visits
		ORDER BY id DESC
		LIMIT 1
	`)
	var (
		out       LastVisit
		startRaw  string
		completed int
	)
	if err := row.Scan(&out.SubjectLevelID, &out.LevelID, &startRaw, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if t, err := time.Parse(timeLayout, startRaw); err == nil {
		out.StartTS = t
	}
	out.Completed = completed == 1
	return &out, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for key, value := range values {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO app_settings(key, value) VALUES(?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SettingInt reads an integer setting, returning fallback when absent or
// malformed.
func SettingInt(values map[string]string, key string, fallback int) int {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// dayKey is the local calendar day used for "today" comparisons.
func dayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

func ifThen(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}
