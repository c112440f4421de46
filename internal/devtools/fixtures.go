package devtools

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"edujourney/internal/journey"

	"gopkg.in/yaml.v3"
)

const (
	FixtureKind            = "fixture"
	SupportedSchemaVersion = 1
	DefaultOTPCode         = "123456"
	DemoEmail              = "demo@edujourney.test"
)

//go:embed fixtures/default.yaml
var defaultFixture []byte

// Pack is a complete mock backend: accounts, curriculum, seeded progress
// and the social data the client reads.
type Pack struct {
	Kind          string              `yaml:"kind"`
	SchemaVersion int                 `yaml:"schema_version"`
	Name          string              `yaml:"name"`
	OTPCode       string              `yaml:"otp_code"`
	Users         []FixtureUser       `yaml:"users"`
	Subjects      []FixtureSubject    `yaml:"subjects"`
	SubjectLevels []FixtureSubjectLvl `yaml:"subject_levels"`
	Levels        []FixtureLevel      `yaml:"levels"`
	Progress      []FixtureProgress   `yaml:"progress"`
	Leaderboard   []FixturePlayer     `yaml:"leaderboard"`
	Achievements  []FixtureAchieve    `yaml:"achievements"`
	Notifications []FixtureNotice     `yaml:"notifications"`
	ChatReplies   []string            `yaml:"chat_replies"`
}

type FixtureUser struct {
	ID       int             `yaml:"id"`
	Email    string          `yaml:"email"`
	Username string          `yaml:"username"`
	Password string          `yaml:"password"`
	Verified bool            `yaml:"verified"`
	Points   int             `yaml:"points"`
	Streak   int             `yaml:"streak"`
	Profile  *FixtureProfile `yaml:"profile"`
}

type FixtureProfile struct {
	FullName     string   `yaml:"full_name"`
	Gender       string   `yaml:"gender"`
	GradeLevelID int      `yaml:"grade_level_id"`
	ClassID      int      `yaml:"class_id"`
	SubjectIDs   []string `yaml:"subject_ids"`
	AvatarURL    string   `yaml:"avatar_url"`
}

type FixtureSubject struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type FixtureSubjectLvl struct {
	ID        string `yaml:"id"`
	SubjectID string `yaml:"subject_id"`
	ClassID   int    `yaml:"class_id"`
}

type FixtureLevel struct {
	ID               string            `yaml:"id"`
	SubjectLevelID   string            `yaml:"subject_level_id"`
	LevelIndex       int               `yaml:"level_index"`
	Title            string            `yaml:"title"`
	Description      string            `yaml:"description"`
	PointsReward     int               `yaml:"points_reward"`
	EstimatedMinutes int               `yaml:"estimated_minutes"`
	Materials        []FixtureMaterial `yaml:"materials"`
	Questions        []FixtureQuestion `yaml:"questions"`
}

// FixtureMaterial is written as plain text, HTML, or a video link. Bodies
// with resources are served in the structured content shape.
type FixtureMaterial struct {
	ID          string            `yaml:"id"`
	OrderIndex  int               `yaml:"order_index"`
	Type        string            `yaml:"type"`
	Content     string            `yaml:"content"`
	ResourceURL string            `yaml:"resource_url"`
	Resources   []FixtureResource `yaml:"resources"`
}

type FixtureResource struct {
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
}

type FixtureQuestion struct {
	ID       string   `yaml:"id"`
	Question string   `yaml:"question"`
	Options  []string `yaml:"options"`
	Answer   string   `yaml:"answer"`
	Points   int      `yaml:"points"`
}

type FixtureProgress struct {
	UserID  int    `yaml:"user_id"`
	LevelID string `yaml:"level_id"`
	Status  string `yaml:"status"`
	Score   int    `yaml:"score"`
}

type FixturePlayer struct {
	Username  string `yaml:"username"`
	FullName  string `yaml:"full_name"`
	Points    int    `yaml:"points"`
	AvatarURL string `yaml:"avatar_url"`
}

// FixtureAchieve unlocks once the learner reaches Completions finished
// lessons or a Streak of that many days. Zero thresholds never fire.
type FixtureAchieve struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	IconURL      string `yaml:"icon_url"`
	PointsReward int    `yaml:"points_reward"`
	Completions  int    `yaml:"completions"`
	Streak       int    `yaml:"streak"`
}

type FixtureNotice struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
	Type    string `yaml:"type"`
}

// DefaultPack returns the built-in fixture.
func DefaultPack() (Pack, error) {
	return ParsePack(defaultFixture)
}

// LoadPack reads a fixture file. An empty path selects the built-in one.
func LoadPack(path string) (Pack, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPack()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, err
	}
	pack, err := ParsePack(b)
	if err != nil {
		return Pack{}, fmt.Errorf("load fixture %s: %w", path, err)
	}
	return pack, nil
}

func ParsePack(b []byte) (Pack, error) {
	var pack Pack
	if err := yaml.Unmarshal(b, &pack); err != nil {
		return pack, err
	}
	applyPackDefaults(&pack)
	if err := pack.Validate(); err != nil {
		return pack, err
	}
	for i := range pack.Levels {
		sort.SliceStable(pack.Levels[i].Materials, func(a, b int) bool {
			return pack.Levels[i].Materials[a].OrderIndex < pack.Levels[i].Materials[b].OrderIndex
		})
	}
	return pack, nil
}

func applyPackDefaults(pack *Pack) {
	if pack.OTPCode == "" {
		pack.OTPCode = DefaultOTPCode
	}
	if len(pack.ChatReplies) == 0 {
		pack.ChatReplies = []string{"Let's work through it together. Which part is unclear?"}
	}
	for i := range pack.Levels {
		if pack.Levels[i].PointsReward <= 0 {
			pack.Levels[i].PointsReward = 10
		}
	}
}

func (p Pack) Validate() error {
	if p.Kind != FixtureKind {
		return fmt.Errorf("kind must be %q", FixtureKind)
	}
	if p.SchemaVersion != SupportedSchemaVersion {
		return fmt.Errorf("unsupported schema_version %d", p.SchemaVersion)
	}
	if len(p.OTPCode) != 6 {
		return fmt.Errorf("otp_code must have 6 digits")
	}
	subjects := map[string]bool{}
	for _, s := range p.Subjects {
		if s.ID == "" {
			return fmt.Errorf("subject %q has no id", s.Name)
		}
		subjects[s.ID] = true
	}
	subjectLevels := map[string]bool{}
	for _, sl := range p.SubjectLevels {
		if !subjects[sl.SubjectID] {
			return fmt.Errorf("subject level %s references unknown subject %s", sl.ID, sl.SubjectID)
		}
		subjectLevels[sl.ID] = true
	}
	levels := map[string]bool{}
	for _, l := range p.Levels {
		if l.ID == "" {
			return fmt.Errorf("level %q has no id", l.Title)
		}
		if levels[l.ID] {
			return fmt.Errorf("duplicate level id %s", l.ID)
		}
		if !subjectLevels[l.SubjectLevelID] {
			return fmt.Errorf("level %s references unknown subject level %s", l.ID, l.SubjectLevelID)
		}
		levels[l.ID] = true
	}
	for _, pr := range p.Progress {
		if !levels[pr.LevelID] {
			return fmt.Errorf("progress references unknown level %s", pr.LevelID)
		}
	}
	emails := map[string]bool{}
	for _, u := range p.Users {
		key := strings.ToLower(u.Email)
		if key == "" || emails[key] {
			return fmt.Errorf("user %d needs a unique email", u.ID)
		}
		emails[key] = true
	}
	return nil
}

// LevelsFor lists a subject level's lessons in level_index order.
func (p Pack) LevelsFor(subjectLevelID string) []FixtureLevel {
	out := make([]FixtureLevel, 0)
	for _, l := range p.Levels {
		if l.SubjectLevelID == subjectLevelID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LevelIndex < out[j].LevelIndex })
	return out
}

func (p Pack) Level(id string) (FixtureLevel, bool) {
	for _, l := range p.Levels {
		if l.ID == id {
			return l, true
		}
	}
	return FixtureLevel{}, false
}

func (p Pack) Subject(id string) (FixtureSubject, bool) {
	for _, s := range p.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return FixtureSubject{}, false
}

// JourneyLevel converts a fixture lesson into the wire level, without
// materials.
func (l FixtureLevel) JourneyLevel() journey.Level {
	return journey.Level{
		ID:               journey.ID(l.ID),
		LevelIndex:       l.LevelIndex,
		Title:            l.Title,
		Description:      l.Description,
		PointsReward:     l.PointsReward,
		EstimatedMinutes: l.EstimatedMinutes,
	}
}

// WireMaterials renders the fixture materials in the shapes real backends
// send: a bare string for text and html, a structured object when the body
// carries resources, and a type/body object for videos.
func (l FixtureLevel) WireMaterials() []journey.Material {
	out := make([]journey.Material, 0, len(l.Materials))
	for i, m := range l.Materials {
		id := m.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", l.ID, i+1)
		}
		wm := journey.Material{
			ID:          journey.ID(id),
			OrderIndex:  m.OrderIndex,
			ResourceURL: m.ResourceURL,
		}
		switch {
		case m.Type == "video":
			wm.Content = mustJSON(map[string]any{"type": "video", "body": m.Content})
		case len(m.Resources) > 0:
			wm.Content = mustJSON(map[string]any{"type": firstNonEmpty(m.Type, "text"), "body": m.Content, "resources": m.Resources})
		default:
			wm.Content = mustJSON(m.Content)
			wm.ContentType = firstNonEmpty(m.Type, "text")
		}
		out = append(out, wm)
	}
	return out
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
