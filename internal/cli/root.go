// Package cli implements the edujourney commands: the interactive journey
// TUI plus one-shot commands for scripts.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/app"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	apiURL      string
	mockFlag    bool
	fixtures    string
	dataDir     string
	logPath     string
	debugFlag   bool
	formatFlag  string
	devFlag     bool
	devHTTP     string
	demoFlag    string
	asciiFlag   bool
	debugLayout bool
	parityFlag  bool
	cooldown    time.Duration
	styleFlag   string
	motionFlag  string
	mouseFlag   string
	mockLatency time.Duration
)

// RootCmd starts the TUI when run without a subcommand.
var RootCmd = &cobra.Command{
	Use:          "edujourney",
	Short:        "Walk your learning journey from the terminal",
	Long:         "A terminal client for the learning platform: follow the level map, read lessons, earn points and streaks.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if formatFlag != "text" && formatFlag != "json" {
			return fmt.Errorf("unknown format %q: want text or json", formatFlag)
		}
		return nil
	},
	RunE: runTUI,
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default: ./edujourney.yaml or ~/.config/edujourney/edujourney.yaml)")
	pf.StringVar(&apiURL, "api", "", "Backend base URL")
	pf.BoolVar(&mockFlag, "mock", false, "Use the built-in fixture backend")
	pf.StringVar(&fixtures, "fixtures", "", "Fixture pack for --mock (default: embedded demo school)")
	pf.DurationVar(&mockLatency, "mock-latency", 0, "Delay added to every fixture backend request")
	pf.StringVar(&dataDir, "data-dir", "", "Directory for the local state database")
	pf.StringVar(&logPath, "log", "", "Write structured logs to this file")
	pf.BoolVar(&debugFlag, "debug", false, "Log at debug level")
	pf.StringVarP(&formatFlag, "format", "f", "text", "Output format for one-shot commands: text or json")

	f := RootCmd.Flags()
	f.BoolVar(&devFlag, "dev", false, "Serve the /__dev endpoints for scripted screenshots")
	f.StringVar(&devHTTP, "dev-http", "", "Listen address for the /__dev endpoints")
	f.StringVar(&demoFlag, "demo", "", "Open a demo scenario on start (implies --dev)")
	f.BoolVar(&asciiFlag, "ascii", false, "Draw with ASCII only")
	f.BoolVar(&debugLayout, "debug-layout", false, "Show layout diagnostics and log view warnings at debug level")
	f.BoolVar(&parityFlag, "parity", false, "Unlock the level after an in-progress one, like the web client")
	f.DurationVar(&cooldown, "cooldown", 0, "Reading time enforced between lesson pages")
	f.StringVar(&styleFlag, "style", "", "Style variant: modern_arcade, cozy_clean or retro_terminal")
	f.StringVar(&motionFlag, "motion", "", "Motion level: off, reduced or full")
	f.StringVar(&mouseFlag, "mouse", "", "Mouse scope: off, scoped or full")
}

// loadConfig layers command-line flags over the config file and
// environment. Only flags the user set override.
func loadConfig(cmd *cobra.Command) (app.Config, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("api") {
		cfg.APIBaseURL = apiURL
	}
	if flags.Changed("mock") {
		cfg.Mock = mockFlag
	}
	if flags.Changed("fixtures") {
		cfg.FixturesPath = fixtures
		cfg.Mock = true
	}
	if flags.Changed("mock-latency") {
		cfg.MockLatency = mockLatency
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log") {
		cfg.LogPath = logPath
	}
	if flags.Changed("debug") {
		cfg.Debug = debugFlag
	}
	if flags.Lookup("dev") == nil {
		return cfg, nil
	}
	if flags.Changed("dev") {
		cfg.Dev = devFlag
	}
	if flags.Changed("dev-http") {
		cfg.DevHTTP = devHTTP
	}
	if flags.Changed("demo") {
		cfg.DemoScenario = demoFlag
		cfg.Dev = true
	}
	if flags.Changed("debug-layout") {
		cfg.DebugLayout = debugLayout
	}
	if flags.Changed("ascii") {
		cfg.UI.ASCIIOnly = asciiFlag
	}
	if flags.Changed("parity") {
		cfg.ParityMode = parityFlag
	}
	if flags.Changed("cooldown") {
		cfg.PacingCooldown = cooldown
	}
	if flags.Changed("style") {
		cfg.UI.StyleVariant = styleFlag
	}
	if flags.Changed("motion") {
		cfg.UI.MotionLevel = motionFlag
	}
	if flags.Changed("mouse") {
		cfg.UI.MouseScope = mouseFlag
	}
	return cfg, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}

// withHeadless opens the backend and session store for a one-shot command.
func withHeadless(cmd *cobra.Command, fn func(ctx context.Context, h *app.Headless) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	h, err := app.OpenHeadless(cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 4*h.Config().Timeout)
	defer cancel()
	return fn(ctx, h)
}

func jsonOutput() bool { return formatFlag == "json" }

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// commandError keeps sentinel errors intact and shows the backend's own
// message for API failures.
func commandError(op string, err error, fallback string) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", op, api.ErrorMessage(err, fallback))
	}
	return fmt.Errorf("%s: %w", op, err)
}
