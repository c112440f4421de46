package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"edujourney/internal/journey"
)

func (c *Client) StartLevel(ctx context.Context, levelID journey.ID) (LevelProgress, error) {
	var out LevelProgress
	_, err := c.do(ctx, http.MethodPost, "/api/progress/levels/"+levelID.String()+"/start", nil, &out)
	return out, err
}

func (c *Client) LevelProgress(ctx context.Context, levelID journey.ID) (LevelProgress, error) {
	var out LevelProgress
	_, err := c.get(ctx, "/api/progress/levels/"+levelID.String(), &out)
	return out, err
}

func (c *Client) UpdateLevelProgress(ctx context.Context, levelID journey.ID, fields map[string]any) (LevelProgress, error) {
	var out LevelProgress
	_, err := c.do(ctx, http.MethodPut, "/api/progress/levels/"+levelID.String(), fields, &out)
	return out, err
}

// CompleteLevel reports a finished lesson. The backend expects an empty JSON
// object as the body.
func (c *Client) CompleteLevel(ctx context.Context, levelID journey.ID) (Completion, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/progress/levels/"+levelID.String()+"/complete", struct{}{}, nil)
	if err != nil {
		return Completion{}, err
	}
	var out Completion
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &out)
	}
	out.Message = env.Message
	if out.Message == "" {
		out.Message = "Level completed successfully"
	}
	return out, nil
}

// MyProgress lists the caller's level progress, optionally filtered by
// status.
func (c *Client) MyProgress(ctx context.Context, status string) ([]journey.ProgressEntry, error) {
	path := "/api/progress/my-progress"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	env, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return journey.DecodeJourneyMap(env.Data), nil
}

// JourneyMap loads the progress rows for a subject level. Both the bare
// array and the {levels: [...]} shapes are accepted.
func (c *Client) JourneyMap(ctx context.Context, subjectLevelID journey.ID) ([]journey.ProgressEntry, error) {
	env, err := c.get(ctx, "/api/progress/journey-map/"+subjectLevelID.String(), nil)
	if err != nil {
		return nil, err
	}
	return journey.DecodeJourneyMap(env.Data), nil
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	if _, err := c.get(ctx, "/api/progress/stats", &out); err != nil {
		return Stats{}, err
	}
	return out, nil
}

// Questions prefers the quiz route and falls back to the question bank.
func (c *Client) Questions(ctx context.Context, levelID journey.ID) ([]Question, error) {
	var out []Question
	if _, err := c.get(ctx, "/api/quiz/levels/"+levelID.String()+"/questions", &out); err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		out = nil
		if _, err := c.get(ctx, "/api/questions/level/"+levelID.String(), &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Client) SubmitAnswers(ctx context.Context, levelID journey.ID, answers []Answer) (SubmitResult, error) {
	var out SubmitResult
	_, err := c.do(ctx, http.MethodPost, "/api/quiz/levels/"+levelID.String()+"/submit", map[string]any{"answers": answers}, &out)
	return out, err
}
