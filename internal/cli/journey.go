package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"edujourney/internal/api"
	"edujourney/internal/app"
	"edujourney/internal/journey"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "journey",
		Short: "Print the level map of a subject",
		RunE:  runJourney,
	}
	cmd.Flags().IntP("subject", "s", -1, "Subject index, in the order the backend lists them (default: the one last opened)")

	RootCmd.AddCommand(cmd)
}

type journeyNode struct {
	Index  int            `json:"index"`
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Status journey.Status `json:"status"`
	Points int            `json:"points_reward"`
}

type journeyReport struct {
	Subjects  []string      `json:"subjects"`
	Subject   int           `json:"subject"`
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
	Percent   float64       `json:"percent"`
	Current   string        `json:"current,omitempty"`
	Points    int           `json:"points"`
	Streak    int           `json:"streak"`
	Rank      string        `json:"rank"`
	Nodes     []journeyNode `json:"nodes"`
}

func newJourneyReport(j app.Journey) journeyReport {
	r := journeyReport{
		Subjects:  j.SubjectNames(),
		Subject:   j.SubjectIndex,
		Completed: j.Map.Completed,
		Total:     j.Map.Total,
		Percent:   j.Map.Percent,
		Points:    j.Stats.TotalPoints(),
		Streak:    j.Stats.CurrentStreak(),
		Rank:      j.Rank.Label(),
		Nodes:     make([]journeyNode, 0, len(j.Map.Nodes)),
	}
	if cur, ok := j.Map.Current(); ok {
		r.Current = cur.Level.ID.String()
	}
	for _, n := range j.Map.Nodes {
		r.Nodes = append(r.Nodes, journeyNode{
			Index:  n.Index,
			ID:     n.Level.ID.String(),
			Title:  n.Level.Title,
			Status: n.Status,
			Points: n.Level.PointsReward,
		})
	}
	return r
}

func runJourney(cmd *cobra.Command, args []string) error {
	subject, _ := cmd.Flags().GetInt("subject")
	return withHeadless(cmd, func(ctx context.Context, h *app.Headless) error {
		j, err := h.Journey(ctx, subject)
		if err != nil && !errors.Is(err, api.ErrNoLevels) {
			return commandError("journey", err, "Could not load your journey")
		}
		report := newJourneyReport(j)
		if jsonOutput() {
			return printJSON(cmd.OutOrStdout(), report)
		}
		return writeJourney(cmd.OutOrStdout(), report)
	})
}

func writeJourney(w io.Writer, r journeyReport) error {
	name := ""
	if r.Subject < len(r.Subjects) {
		name = r.Subjects[r.Subject]
	}
	fmt.Fprintf(w, "%s  %d/%d lessons (%.0f%%)  %d pts  %d day streak  rank %s\n",
		name, r.Completed, r.Total, r.Percent, r.Points, r.Streak, r.Rank)
	if len(r.Nodes) == 0 {
		_, err := fmt.Fprintln(w, api.ErrNoLevels.Error())
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Lesson", "Status", "Reward")
	for _, n := range r.Nodes {
		status := string(n.Status)
		if n.ID == r.Current {
			status += " <- you are here"
		}
		t.Row(fmt.Sprint(n.Index+1), n.Title, status, fmt.Sprintf("%d pts", n.Points))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
