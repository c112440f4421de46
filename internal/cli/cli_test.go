package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"edujourney/internal/app"
	"edujourney/internal/devtools"

	"github.com/stretchr/testify/require"
)

// execute runs the root command. Flag values stick between runs, so every
// test spells out the flags it depends on.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func TestJourneyJSONAgainstFixtures(t *testing.T) {
	out, err := execute(t, "", "journey", "--mock=true", "--data-dir", t.TempDir(), "--format", "json", "--subject", "0")
	require.NoError(t, err)

	var report journeyReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, []string{"Mathematics", "Science"}, report.Subjects)
	require.Equal(t, 1, report.Completed)
	require.Equal(t, "102", report.Current)
	require.Len(t, report.Nodes, 4)
	require.EqualValues(t, "locked", report.Nodes[2].Status)
}

func TestJourneyTextMarksCurrentLesson(t *testing.T) {
	out, err := execute(t, "", "journey", "--mock=true", "--data-dir", t.TempDir(), "--format", "text", "--subject", "0")
	require.NoError(t, err)
	require.Contains(t, out, "Mathematics")
	require.Contains(t, out, "Fractions")
	require.Contains(t, out, "<- you are here")
}

func TestStatsReportsLocalHistory(t *testing.T) {
	out, err := execute(t, "", "stats", "--mock=true", "--data-dir", t.TempDir(), "--format", "text")
	require.NoError(t, err)
	require.Contains(t, out, "Points")
	require.Contains(t, out, "0 lesson visits")
	require.NotContains(t, out, "Last lesson")
}

func TestLeaderboardJSON(t *testing.T) {
	out, err := execute(t, "", "leaderboard", "--mock=true", "--data-dir", t.TempDir(), "--format", "json", "--weekly=false")
	require.NoError(t, err)

	var body struct {
		Players []struct {
			Rank     int    `json:"rank"`
			Username string `json:"username"`
		} `json:"players"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.NotEmpty(t, body.Players)
	require.Equal(t, 1, body.Players[0].Rank)
	require.Equal(t, "rina", body.Players[0].Username)
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	out, err := execute(t, "Secret#123\n", "login", "--mock=true", "--data-dir", t.TempDir(), "--format", "text",
		"--email", devtools.DemoEmail, "--password", "")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, err := execute(t, "", "login", "--mock=true", "--data-dir", t.TempDir(), "--format", "text",
		"--email", devtools.DemoEmail, "--password", "nope")
	require.ErrorContains(t, err, "Invalid email or password")
}

func TestStatsNeedsSavedSession(t *testing.T) {
	_, err := execute(t, "", "stats", "--mock=false", "--api", "http://127.0.0.1:1", "--data-dir", t.TempDir(), "--format", "text")
	require.ErrorIs(t, err, app.ErrNotSignedIn)
}

func TestUnknownFormatIsRejected(t *testing.T) {
	_, err := execute(t, "", "stats", "--format", "yaml")
	require.ErrorContains(t, err, "unknown format")
	formatFlag = "text"
}
