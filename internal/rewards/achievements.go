package rewards

import (
	"encoding/json"
	"time"

	"github.com/dustin/go-humanize"

	"edujourney/internal/api"
	"edujourney/internal/events"
	"edujourney/internal/journey"
)

// DefaultIcon is used when an unlocked achievement carries no icon.
const DefaultIcon = "🏆"

type Achievement struct {
	ID           journey.ID
	Title        string
	Description  string
	IconURL      string
	PointsReward int
	Completed    bool
	AwardedAt    time.Time
}

// AwardedText renders the award time relative to now, empty when locked.
func (a Achievement) AwardedText(now time.Time) string {
	if !a.Completed || a.AwardedAt.IsZero() {
		return ""
	}
	return humanize.RelTime(a.AwardedAt, now, "ago", "from now")
}

type achievementRow struct {
	ID           journey.ID `json:"id"`
	Title        string     `json:"title"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	IconURL      string     `json:"icon_url"`
	Icon         string     `json:"icon"`
	PointsReward int        `json:"points_reward"`
	Points       int        `json:"points"`
}

// userAchievementRow is one entry of my-achievements. The achievement may be
// referenced by achievement_id or nested under "achievements".
type userAchievementRow struct {
	ID            journey.ID      `json:"id"`
	Title         string          `json:"title"`
	AchievementID journey.ID      `json:"achievement_id"`
	Achievements  *achievementRow `json:"achievements"`
	AwardedAt     string          `json:"awarded_at"`
}

func (u userAchievementRow) achievementKey() journey.ID {
	if u.AchievementID != "" {
		return u.AchievementID
	}
	if u.Achievements != nil && u.Achievements.ID != "" {
		return u.Achievements.ID
	}
	if u.ID != "" && u.Title == "" {
		return u.ID
	}
	return ""
}

// MergeAchievements marks every achievement in all that also appears in
// mine as completed, carrying over its award time.
func MergeAchievements(all, mine json.RawMessage) []Achievement {
	var rows []achievementRow
	if json.Unmarshal(all, &rows) != nil {
		return nil
	}
	var owned []userAchievementRow
	_ = json.Unmarshal(mine, &owned)

	completed := map[journey.ID]bool{}
	for _, ua := range owned {
		if key := ua.achievementKey(); key != "" {
			completed[key] = true
		}
	}

	out := make([]Achievement, 0, len(rows))
	for _, row := range rows {
		a := Achievement{
			ID:           row.ID,
			Title:        firstString(row.Title, row.Name),
			Description:  row.Description,
			IconURL:      firstString(row.IconURL, row.Icon),
			PointsReward: row.PointsReward,
			Completed:    completed[row.ID],
		}
		if a.PointsReward == 0 {
			a.PointsReward = row.Points
		}
		for _, ua := range owned {
			if ua.AchievementID == row.ID || (ua.Achievements != nil && ua.Achievements.ID == row.ID) {
				a.AwardedAt = parseTime(ua.AwardedAt)
				break
			}
		}
		out = append(out, a)
	}
	return out
}

// Announce publishes an unlocked achievement so the toast stack shows it.
func Announce(bus *events.Bus, u api.AchievementUnlock) {
	if bus == nil {
		return
	}
	icon := u.IconURL
	if icon == "" {
		icon = DefaultIcon
	}
	bus.PublishAchievement(events.Achievement{
		Name:        firstString(u.Title, u.Name),
		Description: u.Description,
		Icon:        icon,
		Points:      u.PointsReward,
	})
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
