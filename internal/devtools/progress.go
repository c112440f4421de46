package devtools

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/journey"

	"github.com/gin-gonic/gin"
)

// unlockedLocked reports whether a learner may open a level: the first
// level of a subject level always, later ones once the previous level is
// completed or they already have a progress row. Callers hold s.mu.
func (s *Server) unlockedLocked(a *account, l FixtureLevel) bool {
	if _, started := a.Progress[l.ID]; started {
		return true
	}
	levels := s.pack.LevelsFor(l.SubjectLevelID)
	for i, cand := range levels {
		if cand.ID != l.ID {
			continue
		}
		if i == 0 {
			return true
		}
		prev, done := a.Progress[levels[i-1].ID]
		return done && prev.Status == "completed"
	}
	return false
}

func (s *Server) startLevel(c *gin.Context) {
	l, found := s.pack.Level(c.Param("id"))
	if !found {
		notFound(c, "Level")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	if !s.unlockedLocked(a, l) {
		fail(c, http.StatusForbidden, "Level is locked")
		return
	}
	row, exists := a.Progress[l.ID]
	if !exists {
		row = &progressRow{ID: s.nextRowID, LevelID: l.ID, Status: "in_progress", StartedAt: s.now()}
		s.nextRowID++
		a.Progress[l.ID] = row
	}
	success(c, progressJSON(row))
}

func (s *Server) getLevelProgress(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, exists := s.caller(c).Progress[c.Param("id")]
	if !exists {
		notFound(c, "Progress")
		return
	}
	success(c, progressJSON(row))
}

func (s *Server) updateLevelProgress(c *gin.Context) {
	var in struct {
		Status *string `json:"status"`
		Score  *int    `json:"score"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, exists := s.caller(c).Progress[c.Param("id")]
	if !exists {
		notFound(c, "Progress")
		return
	}
	if in.Status != nil && *in.Status != "completed" {
		row.Status = *in.Status
	}
	if in.Score != nil {
		row.Score = *in.Score
	}
	success(c, progressJSON(row))
}

func (s *Server) completeLevel(c *gin.Context) {
	l, found := s.pack.Level(c.Param("id"))
	if !found {
		notFound(c, "Level")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	if !s.unlockedLocked(a, l) {
		fail(c, http.StatusForbidden, "Level is locked")
		return
	}
	now := s.now()
	row, exists := a.Progress[l.ID]
	if exists && row.Status == "completed" {
		successMessage(c, http.StatusOK, "Level already completed", gin.H{"progress": progressJSON(row), "points_earned": 0})
		return
	}
	if !exists {
		row = &progressRow{ID: s.nextRowID, LevelID: l.ID, StartedAt: now}
		s.nextRowID++
		a.Progress[l.ID] = row
	}
	row.Status = "completed"
	row.Score = l.PointsReward
	row.CompletedAt = now
	a.Points += l.PointsReward
	a.Weekly += l.PointsReward
	s.touchStreak(a, now)
	unlocked := s.awardAchievements(a, now)

	achievements := make([]api.AchievementUnlock, 0, len(unlocked))
	for _, ach := range unlocked {
		achievements = append(achievements, api.AchievementUnlock{
			ID:           journey.ID(ach.ID),
			Title:        ach.Title,
			Description:  ach.Description,
			IconURL:      ach.IconURL,
			PointsReward: ach.PointsReward,
		})
	}
	successMessage(c, http.StatusOK, "Level completed successfully", gin.H{
		"progress":      progressJSON(row),
		"points_earned": l.PointsReward,
		"achievements":  achievements,
	})
}

// touchStreak extends the streak on the first completion of a day that
// follows an active day, and restarts it after a gap.
func (s *Server) touchStreak(a *account, now time.Time) {
	today := dayKey(now)
	if a.LastDay == today {
		return
	}
	if a.LastDay == dayKey(now.AddDate(0, 0, -1)) {
		a.Streak++
	} else {
		a.Streak = 1
	}
	a.Longest = max(a.Longest, a.Streak)
	a.LastDay = today
}

// awardAchievements grants every achievement whose threshold the account
// now meets and returns the new ones.
func (s *Server) awardAchievements(a *account, now time.Time) []FixtureAchieve {
	completed := a.completedCount()
	var out []FixtureAchieve
	for _, ach := range s.pack.Achievements {
		if _, has := a.Awarded[ach.ID]; has {
			continue
		}
		met := (ach.Completions > 0 && completed >= ach.Completions) || (ach.Streak > 0 && a.Streak >= ach.Streak)
		if !met {
			continue
		}
		a.Awarded[ach.ID] = now
		a.Points += ach.PointsReward
		out = append(out, ach)
	}
	return out
}

func (s *Server) myProgress(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gin.H, 0)
	for _, l := range s.pack.Levels {
		row, exists := s.caller(c).Progress[l.ID]
		if !exists || (status != "" && row.Status != status) {
			continue
		}
		item := progressJSON(row)
		item["title"] = l.Title
		out = append(out, item)
	}
	success(c, out)
}

// journeyMap answers in the wrapped {levels: [...]} shape with the explicit
// is_unlocked contract.
func (s *Server) journeyMap(c *gin.Context) {
	levels := s.pack.LevelsFor(c.Param("id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	rows := make([]gin.H, 0, len(levels))
	for _, l := range levels {
		row := gin.H{
			"id":          journey.ID(l.ID),
			"level_id":    journey.ID(l.ID),
			"title":       l.Title,
			"is_unlocked": s.unlockedLocked(a, l),
			"status":      nil,
			"score":       0,
		}
		if pr, exists := a.Progress[l.ID]; exists {
			row["status"] = pr.Status
			row["score"] = pr.Score
		}
		rows = append(rows, row)
	}
	success(c, gin.H{"levels": rows})
}

func (s *Server) stats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	inProgress := 0
	for _, row := range a.Progress {
		if row.Status == "in_progress" {
			inProgress++
		}
	}
	success(c, gin.H{
		"points":             gin.H{"total": a.Points, "weekly": a.Weekly, "monthly": a.Points},
		"current_streak":     a.Streak,
		"longest_streak":     a.Longest,
		"completed_levels":   a.completedCount(),
		"in_progress_levels": inProgress,
		"achievements_count": len(a.Awarded),
	})
}

func (s *Server) questions(c *gin.Context) {
	l, found := s.pack.Level(c.Param("id"))
	if !found {
		notFound(c, "Level")
		return
	}
	out := make([]api.Question, 0, len(l.Questions))
	for _, q := range l.Questions {
		out = append(out, api.Question{
			ID:       journey.ID(q.ID),
			LevelID:  journey.ID(l.ID),
			Question: q.Question,
			Options:  q.Options,
			Points:   q.Points,
		})
	}
	success(c, out)
}

func (s *Server) submitAnswers(c *gin.Context) {
	l, found := s.pack.Level(c.Param("id"))
	if !found {
		notFound(c, "Level")
		return
	}
	var in struct {
		Answers []api.Answer `json:"answers"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	given := map[journey.ID]string{}
	for _, ans := range in.Answers {
		given[ans.QuestionID] = ans.Answer
	}
	res := api.SubmitResult{TotalQuestions: len(l.Questions)}
	for _, q := range l.Questions {
		if strings.EqualFold(strings.TrimSpace(given[journey.ID(q.ID)]), strings.TrimSpace(q.Answer)) {
			res.CorrectAnswers++
			res.PointsEarned += q.Points
		}
	}
	if res.TotalQuestions > 0 {
		res.Score = res.CorrectAnswers * 100 / res.TotalQuestions
	}
	res.Passed = res.Score >= 70
	if res.PointsEarned > 0 {
		s.mu.Lock()
		a := s.caller(c)
		a.Points += res.PointsEarned
		a.Weekly += res.PointsEarned
		s.mu.Unlock()
	}
	success(c, res)
}

func progressJSON(row *progressRow) gin.H {
	return gin.H{
		"id":           row.ID,
		"level_id":     journey.ID(row.LevelID),
		"status":       row.Status,
		"score":        row.Score,
		"started_at":   stamp(row.StartedAt),
		"completed_at": stamp(row.CompletedAt),
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
