package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/pacing"

	"github.com/stretchr/testify/require"
)

func TestValidateFillsDefaults(t *testing.T) {
	cfg := Config{APIBaseURL: "  https://learn.example.com/api/  ", DataDir: t.TempDir()}
	require.NoError(t, cfg.Validate())
	require.Equal(t, "https://learn.example.com/api", cfg.APIBaseURL)
	require.Equal(t, 15*time.Second, cfg.Timeout)
	require.Equal(t, pacing.DefaultCooldown, cfg.PacingCooldown)
	require.Equal(t, api.LeaderboardTotal, cfg.Leaderboard.Type)
	require.Equal(t, 10, cfg.Leaderboard.Limit)
	require.Equal(t, "modern_arcade", cfg.UI.StyleVariant)
	require.Equal(t, "full", cfg.UI.MotionLevel)
	require.Equal(t, "scoped", cfg.UI.MouseScope)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"scheme":      func(c *Config) { c.APIBaseURL = "ftp://example.com" },
		"cooldown":    func(c *Config) { c.PacingCooldown = 200 * time.Millisecond },
		"leaderboard": func(c *Config) { c.Leaderboard.Type = "monthly" },
		"style":       func(c *Config) { c.UI.StyleVariant = "neon" },
		"motion":      func(c *Config) { c.UI.MotionLevel = "wild" },
		"mouse":       func(c *Config) { c.UI.MouseScope = "always" },
		"rate":        func(c *Config) { c.RatePerSecond = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edujourney.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: http://localhost:9000/api
pacing_cooldown: 5s
leaderboard:
  type: weekly
  limit: 5
ui:
  ascii_only: true
`), 0o644))
	t.Setenv("EDUJOURNEY_LEADERBOARD_LIMIT", "7")
	t.Setenv("EDUJOURNEY_MOCK", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/api", cfg.APIBaseURL)
	require.Equal(t, 5*time.Second, cfg.PacingCooldown)
	require.Equal(t, api.LeaderboardWeekly, cfg.Leaderboard.Type)
	require.Equal(t, 7, cfg.Leaderboard.Limit)
	require.True(t, cfg.UI.ASCIIOnly)
	require.True(t, cfg.Mock)
	require.Equal(t, "modern_arcade", cfg.UI.StyleVariant)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
