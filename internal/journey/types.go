package journey

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID is a backend identifier. The API mixes numeric and string ids, so both
// decode into the same textual form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Level is one lesson in a subject level's sequence. Read-only to the client.
type Level struct {
	ID               ID         `json:"id" yaml:"id"`
	LevelIndex       int        `json:"level_index" yaml:"level_index"`
	Title            string     `json:"title" yaml:"title"`
	Description      string     `json:"description" yaml:"description"`
	PointsReward     int        `json:"points_reward" yaml:"points_reward"`
	EstimatedMinutes int        `json:"estimated_minutes" yaml:"estimated_minutes"`
	Materials        []Material `json:"materials,omitempty" yaml:"materials"`
}

// Label is the short heading used for the level on the map and lesson card.
func (l Level) Label() string {
	if l.LevelIndex > 0 {
		return "Lesson " + strconv.Itoa(l.LevelIndex)
	}
	return "Lesson " + l.ID.String()
}

// Material carries lesson content exactly as the backend sent it. The
// content payload is left raw because it may be a string, an object with
// type/body/resources, or something else entirely.
type Material struct {
	ID          ID              `json:"id"`
	OrderIndex  int             `json:"order_index"`
	Type        string          `json:"type,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	ResourceURL string          `json:"resource_url,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	Text        json.RawMessage `json:"text,omitempty"`
	Resources   json.RawMessage `json:"resources,omitempty"`
}

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = ""
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// ProgressEntry is the normalized form of one journey map row. Legacy
// journey_status values are already folded into Status by the adapter.
type ProgressEntry struct {
	ID      ID
	LevelID ID
	Status  ProgressStatus
	// MarkedCurrent records a legacy journey_status of "current".
	MarkedCurrent bool
	// Unlocked is nil when the backend predates the is_unlocked contract.
	Unlocked *bool
	Title    string
	Score    int
}

// Matches reports whether this entry describes the given level.
func (e ProgressEntry) Matches(levelID ID) bool {
	if levelID == "" {
		return false
	}
	return e.ID == levelID || e.LevelID == levelID
}

// Key is the level reference used by aggregate reasoning.
func (e ProgressEntry) Key() ID {
	if e.ID != "" {
		return e.ID
	}
	return e.LevelID
}

type Status string

const (
	StatusLocked    Status = "locked"
	StatusCurrent   Status = "current"
	StatusCompleted Status = "completed"
)

// Accessible reports whether a learner may open the level.
func (s Status) Accessible() bool {
	return s == StatusCurrent || s == StatusCompleted
}
