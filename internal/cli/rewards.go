package cli

import (
	"context"
	"fmt"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/app"
	"edujourney/internal/rewards"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	board := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top learners and your rank",
		RunE:  runLeaderboard,
	}
	board.Flags().Bool("weekly", false, "Rank by this week's points instead of all time")

	achievements := &cobra.Command{
		Use:   "achievements",
		Short: "List achievements and which ones you have earned",
		RunE:  runAchievements,
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show points, streak and local lesson history",
		RunE:  runStats,
	}

	RootCmd.AddCommand(board, achievements, stats)
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	weekly, _ := cmd.Flags().GetBool("weekly")
	kind := ""
	if weekly {
		kind = api.LeaderboardWeekly
	}
	return withHeadless(cmd, func(ctx context.Context, h *app.Headless) error {
		players, rank, err := h.Leaderboard(ctx, kind)
		if err != nil {
			return commandError("leaderboard", err, "Failed to load leaderboard")
		}
		if jsonOutput() {
			return printJSON(cmd.OutOrStdout(), map[string]any{"players": players, "me": rank})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Rank", "Learner", "Points")
		for _, p := range players {
			t.Row(fmt.Sprint(p.Rank), p.Name(false), rewards.FormatScore(p.Points))
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Your rank %s · %s pts\n", rank.Label(), rewards.FormatScore(rank.Points))
		return err
	})
}

func runAchievements(cmd *cobra.Command, args []string) error {
	return withHeadless(cmd, func(ctx context.Context, h *app.Headless) error {
		items, err := h.Achievements(ctx)
		if err != nil {
			return commandError("achievements", err, "Failed to load achievements")
		}
		if jsonOutput() {
			return printJSON(cmd.OutOrStdout(), items)
		}
		now := time.Now()
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("", "Achievement", "Reward", "Earned")
		for _, a := range items {
			mark := "-"
			if a.Completed {
				mark = "*"
			}
			t.Row(mark, a.Title, fmt.Sprintf("%d pts", a.PointsReward), a.AwardedText(now))
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return err
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	return withHeadless(cmd, func(ctx context.Context, h *app.Headless) error {
		stats, history, err := h.Stats(ctx)
		if err != nil {
			return commandError("stats", err, "Failed to load stats")
		}
		if jsonOutput() {
			out := map[string]any{
				"points":            stats.TotalPoints(),
				"streak":            stats.CurrentStreak(),
				"completed_levels":  stats.CompletedLevels,
				"in_progress":       stats.InProgress,
				"achievements":      stats.Achievements,
				"local_visits":      history.Visits,
				"local_completions": history.Completed,
			}
			if history.Last != nil {
				out["last_level"] = history.Last.LevelID
			}
			return printJSON(cmd.OutOrStdout(), out)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Points        %s\n", rewards.FormatScore(stats.TotalPoints()))
		fmt.Fprintf(w, "Streak        %d days\n", stats.CurrentStreak())
		fmt.Fprintf(w, "Completed     %d lessons (%d in progress)\n", stats.CompletedLevels, stats.InProgress)
		fmt.Fprintf(w, "Achievements  %d\n", stats.Achievements)
		_, err = fmt.Fprintf(w, "This device   %d lesson visits, %d completed\n", history.Visits, history.Completed)
		if err != nil || history.Last == nil {
			return err
		}
		_, err = fmt.Fprintf(w, "Last lesson   level %s, %s\n", history.Last.LevelID, humanize.Time(history.Last.StartTS))
		return err
	})
}
