package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/pacing"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Config controls runtime behavior for the TUI app and the CLI commands.
type Config struct {
	APIBaseURL    string        `mapstructure:"api_base_url" env:"API_BASE_URL"`
	Timeout       time.Duration `mapstructure:"timeout" env:"TIMEOUT"`
	RatePerSecond float64       `mapstructure:"rate_per_second" env:"RATE_PER_SECOND"`
	DataDir       string        `mapstructure:"data_dir" env:"DATA_DIR"`
	LogPath       string        `mapstructure:"log_path" env:"LOG_PATH"`
	Debug         bool          `mapstructure:"debug" env:"DEBUG"`
	DebugLayout   bool          `mapstructure:"debug_layout" env:"DEBUG_LAYOUT"`
	Mock          bool          `mapstructure:"mock" env:"MOCK"`
	FixturesPath  string        `mapstructure:"fixtures" env:"FIXTURES"`
	MockLatency   time.Duration `mapstructure:"mock_latency" env:"MOCK_LATENCY"`
	Dev           bool          `mapstructure:"dev" env:"DEV"`
	DevHTTP       string        `mapstructure:"dev_http" env:"DEV_HTTP"`
	DemoScenario  string        `mapstructure:"demo" env:"DEMO"`
	// DevStateDir receives dev_state.json; empty means ~/.cache/edujourney.
	DevStateDir    string        `mapstructure:"dev_state_dir" env:"DEV_STATE_DIR"`
	ParityMode     bool          `mapstructure:"parity_mode" env:"PARITY_MODE"`
	PacingCooldown time.Duration `mapstructure:"pacing_cooldown" env:"PACING_COOLDOWN"`

	Leaderboard LeaderboardConfig `mapstructure:"leaderboard" envPrefix:"LEADERBOARD_"`
	UI          UIConfig          `mapstructure:"ui" envPrefix:"UI_"`
}

type LeaderboardConfig struct {
	Type  string `mapstructure:"type" env:"TYPE"`
	Limit int    `mapstructure:"limit" env:"LIMIT"`
}

type UIConfig struct {
	StyleVariant string `mapstructure:"style_variant" env:"STYLE_VARIANT"`
	MotionLevel  string `mapstructure:"motion_level" env:"MOTION_LEVEL"`
	MouseScope   string `mapstructure:"mouse_scope" env:"MOUSE_SCOPE"`
	ASCIIOnly    bool   `mapstructure:"ascii_only" env:"ASCII_ONLY"`
}

const envPrefix = "EDUJOURNEY_"

func DefaultConfig() Config {
	return Config{
		APIBaseURL:     api.DefaultBaseURL,
		Timeout:        15 * time.Second,
		RatePerSecond:  10,
		DevHTTP:        "127.0.0.1:17321",
		PacingCooldown: pacing.DefaultCooldown,
		Leaderboard: LeaderboardConfig{
			Type:  api.LeaderboardTotal,
			Limit: 10,
		},
		UI: UIConfig{
			StyleVariant: "modern_arcade",
			MotionLevel:  "full",
			MouseScope:   "scoped",
		},
	}
}

// LoadConfig layers defaults, an optional YAML file and EDUJOURNEY_*
// environment variables. An empty path searches ./edujourney.yaml and
// ~/.config/edujourney/config.yaml and tolerates neither existing.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("edujourney")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "edujourney"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return cfg, fmt.Errorf("config env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = api.DefaultBaseURL
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("invalid api base url %q", c.APIBaseURL)
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("invalid rate limit %v", c.RatePerSecond)
	}
	if c.PacingCooldown <= 0 {
		c.PacingCooldown = pacing.DefaultCooldown
	}
	if c.PacingCooldown < time.Second {
		return fmt.Errorf("pacing cooldown %v is shorter than one second", c.PacingCooldown)
	}

	switch c.Leaderboard.Type {
	case "":
		c.Leaderboard.Type = api.LeaderboardTotal
	case api.LeaderboardTotal, api.LeaderboardWeekly:
	default:
		return fmt.Errorf("invalid leaderboard type %q", c.Leaderboard.Type)
	}
	if c.Leaderboard.Limit <= 0 {
		c.Leaderboard.Limit = 10
	}

	switch c.UI.StyleVariant {
	case "", "modern_arcade", "cozy_clean", "retro_terminal":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "modern_arcade"
	}
	switch c.UI.MotionLevel {
	case "", "off", "reduced", "full":
	default:
		return fmt.Errorf("invalid ui motion level %q", c.UI.MotionLevel)
	}
	if c.UI.MotionLevel == "" {
		c.UI.MotionLevel = "full"
	}
	switch c.UI.MouseScope {
	case "", "off", "scoped", "full":
	default:
		return fmt.Errorf("invalid ui mouse scope %q", c.UI.MouseScope)
	}
	if c.UI.MouseScope == "" {
		c.UI.MouseScope = "scoped"
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "edujourney")
	}
	return nil
}
