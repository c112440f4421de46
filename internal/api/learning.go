package api

import (
	"context"
	"encoding/json"
	"fmt"

	"edujourney/internal/journey"
)

// Subjects lists all subjects, falling back to the learning namespace when
// the short route fails. The original error wins if both fail.
func (c *Client) Subjects(ctx context.Context) ([]Subject, error) {
	var out []Subject
	if _, err := c.get(ctx, "/api/subjects", &out); err != nil {
		c.logger.Warn("api.fallback", map[string]any{"from": "/api/subjects", "error": err})
		out = nil
		if _, ferr := c.get(ctx, "/api/learning/subjects", &out); ferr != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Client) Subject(ctx context.Context, id journey.ID) (Subject, error) {
	var out Subject
	_, err := c.get(ctx, "/api/learning/subjects/"+id.String(), &out)
	return out, err
}

func (c *Client) SubjectLevels(ctx context.Context, subjectID journey.ID) ([]SubjectLevel, error) {
	var out []SubjectLevel
	_, err := c.get(ctx, "/api/learning/subjects/"+subjectID.String()+"/subject-levels", &out)
	return out, err
}

// SubjectLevelsByClass lists the subjects taught to a class, with the same
// fallback rule as Subjects.
func (c *Client) SubjectLevelsByClass(ctx context.Context, classID int) ([]SubjectLevel, error) {
	primary := fmt.Sprintf("/api/subjects/class/%d", classID)
	var out []SubjectLevel
	if _, err := c.get(ctx, primary, &out); err != nil {
		c.logger.Warn("api.fallback", map[string]any{"from": primary, "error": err})
		out = nil
		if _, ferr := c.get(ctx, fmt.Sprintf("/api/learning/classes/%d/subjects", classID), &out); ferr != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Client) LevelsBySubject(ctx context.Context, subjectID journey.ID) ([]journey.Level, error) {
	env, err := c.get(ctx, "/api/learning/subjects/"+subjectID.String()+"/levels", nil)
	if err != nil {
		return nil, err
	}
	return journey.DecodeLevels(env.Data), nil
}

// LevelsBySubjectLevel lists the lessons of one subject level in journey
// order. Only a 404 on the primary route triggers the learning fallback.
func (c *Client) LevelsBySubjectLevel(ctx context.Context, subjectLevelID journey.ID) ([]journey.Level, error) {
	primary := "/api/levels/subject-level/" + subjectLevelID.String()
	env, err := c.get(ctx, primary, nil)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		c.logger.Warn("api.fallback", map[string]any{"from": primary, "error": err})
		env, err = c.get(ctx, "/api/learning/subject-levels/"+subjectLevelID.String()+"/levels", nil)
		if err != nil {
			return nil, fmt.Errorf("levels endpoint unavailable and the database may be empty: %w", err)
		}
	}
	return journey.DecodeLevels(env.Data), nil
}

// Level loads one lesson with its materials ordered by order_index.
func (c *Client) Level(ctx context.Context, id journey.ID) (journey.Level, error) {
	var out journey.Level
	if _, err := c.get(ctx, "/api/learning/levels/"+id.String(), &out); err != nil {
		return journey.Level{}, err
	}
	out.Materials = journey.SortMaterials(out.Materials)
	return out, nil
}

func (c *Client) Materials(ctx context.Context, levelID journey.ID) ([]journey.Material, error) {
	env, err := c.get(ctx, "/api/learning/levels/"+levelID.String()+"/materials", nil)
	if err != nil {
		return nil, err
	}
	var rows []journey.Material
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		var wrapped struct {
			Materials []journey.Material `json:"materials"`
		}
		if json.Unmarshal(env.Data, &wrapped) != nil {
			return nil, nil
		}
		rows = wrapped.Materials
	}
	return journey.SortMaterials(rows), nil
}
