package quiz

import (
	"context"

	"edujourney/internal/api"
	"edujourney/internal/journey"
)

// Backend loads questions and grades answer sheets. Grading happens on the
// server; the client only collects answers.
type Backend interface {
	Questions(ctx context.Context, levelID journey.ID) ([]api.Question, error)
	SubmitAnswers(ctx context.Context, levelID journey.ID, answers []api.Answer) (api.SubmitResult, error)
}

var _ Backend = (*api.Client)(nil)
