package rewards

import (
	"bytes"
	"encoding/json"

	"github.com/dustin/go-humanize"
)

// Player is one normalized leaderboard row.
type Player struct {
	Rank      int    `json:"rank"`
	Username  string `json:"username"`
	FullName  string `json:"full_name,omitempty"`
	Points    int    `json:"points"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Name is the label shown for the row. Podium rows show the username only.
func (p Player) Name(podium bool) string {
	if !podium && p.FullName != "" {
		return p.FullName
	}
	if p.Username != "" {
		return p.Username
	}
	return "Anonymous"
}

type Board struct {
	Podium []Player
	// Rows holds ranks four through ten.
	Rows []Player
}

type rawPlayer struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	Points      int    `json:"points"`
	TotalPoints int    `json:"total_points"`
	AvatarURL   string `json:"avatar_url"`
	Profile     *struct {
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	} `json:"profile"`
}

// NormalizeLeaderboard folds the leaderboard payload into ranked players. It
// accepts a bare array or {leaderboard: [...]}. Missing ranks fall back to
// the row position.
func NormalizeLeaderboard(data json.RawMessage) []Player {
	rows := leaderboardRows(data)
	out := make([]Player, 0, len(rows))
	for i, row := range rows {
		var rp rawPlayer
		if err := json.Unmarshal(row, &rp); err != nil {
			continue
		}
		p := Player{
			Rank:      rp.Rank,
			Username:  rp.Username,
			FullName:  rp.FullName,
			Points:    rp.Points,
			AvatarURL: rp.AvatarURL,
		}
		if p.Rank == 0 {
			p.Rank = i + 1
		}
		if p.Points == 0 {
			p.Points = rp.TotalPoints
		}
		if rp.Profile != nil {
			if p.AvatarURL == "" {
				p.AvatarURL = rp.Profile.AvatarURL
			}
			if p.FullName == "" {
				p.FullName = rp.Profile.FullName
			}
		}
		out = append(out, p)
	}
	return out
}

func leaderboardRows(data json.RawMessage) []json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	var rows []json.RawMessage
	if data[0] == '[' {
		if json.Unmarshal(data, &rows) != nil {
			return nil
		}
		return rows
	}
	var wrapped struct {
		Leaderboard []json.RawMessage `json:"leaderboard"`
	}
	if json.Unmarshal(data, &wrapped) != nil {
		return nil
	}
	return wrapped.Leaderboard
}

// Split arranges players into the top-three podium and the next seven rows.
func Split(players []Player) Board {
	var b Board
	for i, p := range players {
		switch {
		case i < 3:
			b.Podium = append(b.Podium, p)
		case i < 10:
			b.Rows = append(b.Rows, p)
		}
	}
	return b
}

type Rank struct {
	Rank   int `json:"rank"`
	Points int `json:"points"`
}

// NormalizeRank reads the my-rank payload. Rank zero means unranked.
func NormalizeRank(data json.RawMessage) (Rank, bool) {
	var raw struct {
		Rank        int `json:"rank"`
		Points      int `json:"points"`
		TotalPoints int `json:"total_points"`
	}
	if len(bytes.TrimSpace(data)) == 0 || json.Unmarshal(data, &raw) != nil {
		return Rank{}, false
	}
	r := Rank{Rank: raw.Rank, Points: raw.Points}
	if r.Points == 0 {
		r.Points = raw.TotalPoints
	}
	return r, true
}

// Label renders "#3", or "#-" when unranked.
func (r Rank) Label() string {
	if r.Rank <= 0 {
		return "#-"
	}
	return "#" + humanize.Comma(int64(r.Rank))
}

// FormatScore groups thousands, for example 12,500.
func FormatScore(points int) string {
	if points < 0 {
		points = 0
	}
	return humanize.Comma(int64(points))
}
