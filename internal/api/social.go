package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"edujourney/internal/journey"
)

// Leaderboard kinds accepted by the backend.
const (
	LeaderboardTotal   = "total"
	LeaderboardWeekly  = "weekly"
	LeaderboardMonthly = "monthly"
)

// Leaderboard returns the raw leaderboard payload. Backends send either a
// bare array or {type, leaderboard: [...]}; the rewards package folds both.
func (c *Client) Leaderboard(ctx context.Context, kind string, limit int) (json.RawMessage, error) {
	if kind == "" {
		kind = LeaderboardTotal
	}
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("type", kind)
	q.Set("limit", strconv.Itoa(limit))
	env, err := c.get(ctx, "/api/leaderboard?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) MyRank(ctx context.Context, kind string) (json.RawMessage, error) {
	if kind == "" {
		kind = LeaderboardTotal
	}
	env, err := c.get(ctx, "/api/leaderboard/my-rank?type="+url.QueryEscape(kind), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) Achievements(ctx context.Context) (json.RawMessage, error) {
	env, err := c.get(ctx, "/api/achievements", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) MyAchievements(ctx context.Context) (json.RawMessage, error) {
	env, err := c.get(ctx, "/api/achievements/my-achievements", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) Notifications(ctx context.Context, unreadOnly bool, limit int) ([]Notification, error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("unread_only", "true")
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/notifications"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []Notification
	_, err := c.get(ctx, path, &out)
	return out, err
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	env, err := c.get(ctx, "/api/notifications/unread-count", nil)
	if err != nil {
		return 0, err
	}
	var n int
	if json.Unmarshal(env.Data, &n) == nil {
		return n, nil
	}
	var wrapped struct {
		Count       *int `json:"count"`
		UnreadCount *int `json:"unread_count"`
	}
	if err := json.Unmarshal(env.Data, &wrapped); err != nil {
		return 0, err
	}
	switch {
	case wrapped.UnreadCount != nil:
		return *wrapped.UnreadCount, nil
	case wrapped.Count != nil:
		return *wrapped.Count, nil
	}
	return 0, nil
}

func (c *Client) MarkRead(ctx context.Context, id journey.ID) error {
	_, err := c.do(ctx, http.MethodPut, "/api/notifications/"+id.String()+"/read", nil, nil)
	return err
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPut, "/api/notifications/read-all", nil, nil)
	return err
}

// CreateChatSession opens an AI chat scoped to a subject and level. Empty
// ids are sent as null.
func (c *Client) CreateChatSession(ctx context.Context, subjectID, levelID journey.ID) (ChatSession, error) {
	var out ChatSession
	_, err := c.do(ctx, http.MethodPost, "/api/ai-chat/sessions", map[string]journey.ID{
		"subject_id": subjectID,
		"level_id":   levelID,
	}, &out)
	return out, err
}

func (c *Client) ChatSessions(ctx context.Context) ([]ChatSession, error) {
	var out []ChatSession
	_, err := c.get(ctx, "/api/ai-chat/sessions", &out)
	return out, err
}

func (c *Client) ChatMessages(ctx context.Context, sessionID journey.ID) ([]ChatMessage, error) {
	env, err := c.get(ctx, "/api/ai-chat/sessions/"+sessionID.String()+"/messages", nil)
	if err != nil {
		return nil, err
	}
	var out []ChatMessage
	if json.Unmarshal(env.Data, &out) != nil {
		return []ChatMessage{}, nil
	}
	return out, nil
}

func (c *Client) SendChatMessage(ctx context.Context, sessionID journey.ID, message string) (ChatReply, error) {
	var out ChatReply
	_, err := c.do(ctx, http.MethodPost, "/api/ai-chat/sessions/"+sessionID.String()+"/messages", map[string]string{"message": message}, &out)
	return out, err
}
