package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"edujourney/internal/devtools"
	"edujourney/internal/telemetry"

	clog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Serve the fixture backend over HTTP",
		Long:  "Serve the fixture backend over HTTP so other clients, or the TUI with --api, can run against it.",
		RunE:  runServeMock,
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")

	RootCmd.AddCommand(cmd)
}

func runServeMock(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pack, err := devtools.DefaultPack()
	if cfg.FixturesPath != "" {
		pack, err = devtools.LoadPack(cfg.FixturesPath)
	}
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}
	logger, err := telemetry.NewLogger(telemetry.Options{Path: cfg.LogPath, Debug: cfg.Debug})
	if err != nil {
		return err
	}
	defer logger.Close()

	console := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "edujourney-mock", ReportTimestamp: true})
	console.Info("serving fixtures", "pack", pack.Name, "addr", "http://"+addr, "otp", pack.OTPCode)
	for _, u := range pack.Users {
		console.Info("fixture user", "email", u.Email, "password", u.Password)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	srv := devtools.NewServer(pack, devtools.ServerOptions{Logger: logger, Latency: cfg.MockLatency})
	if err := srv.Serve(ctx, addr); err != nil {
		return err
	}
	console.Info("stopped")
	return nil
}
