package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/journey"
)

var ErrIncomplete = errors.New("quiz: every question needs an answer")

// Sheet is one attempt at a level's quiz.
type Sheet struct {
	LevelID   journey.ID
	Questions []api.Question
	StartedAt time.Time

	answers map[journey.ID]int
}

// Load fetches the questions for a level and opens a blank sheet.
func Load(ctx context.Context, b Backend, levelID journey.ID, now time.Time) (*Sheet, error) {
	qs, err := b.Questions(ctx, levelID)
	if err != nil {
		return nil, err
	}
	return &Sheet{LevelID: levelID, Questions: qs, StartedAt: now, answers: map[journey.ID]int{}}, nil
}

// Choose records option index choice for question i. Out of range values
// are rejected.
func (s *Sheet) Choose(i, choice int) error {
	if i < 0 || i >= len(s.Questions) {
		return fmt.Errorf("quiz: question %d out of range", i)
	}
	q := s.Questions[i]
	if choice < 0 || choice >= len(q.Options) {
		return fmt.Errorf("quiz: option %d out of range for question %s", choice, q.ID)
	}
	if s.answers == nil {
		s.answers = map[journey.ID]int{}
	}
	s.answers[q.ID] = choice
	return nil
}

// Choice returns the selected option for question i, or -1.
func (s *Sheet) Choice(i int) int {
	if i < 0 || i >= len(s.Questions) {
		return -1
	}
	if c, ok := s.answers[s.Questions[i].ID]; ok {
		return c
	}
	return -1
}

func (s *Sheet) Answered() int { return len(s.answers) }

func (s *Sheet) Unanswered() []int {
	var out []int
	for i := range s.Questions {
		if s.Choice(i) < 0 {
			out = append(out, i)
		}
	}
	return out
}

// Answers lists the sheet in question order, sending the option text.
func (s *Sheet) Answers() []api.Answer {
	out := make([]api.Answer, 0, len(s.answers))
	for i, q := range s.Questions {
		c := s.Choice(i)
		if c < 0 {
			continue
		}
		out = append(out, api.Answer{QuestionID: q.ID, Answer: q.Options[c]})
	}
	return out
}

// Result is the graded attempt.
type Result struct {
	LevelID    journey.ID
	Passed     bool
	Score      int
	Correct    int
	Total      int
	Points     int
	DurationMS int64
}

func (r Result) Summary() string {
	verdict := "not passed"
	if r.Passed {
		verdict = "passed"
	}
	return fmt.Sprintf("%d/%d correct, score %d (%s)", r.Correct, r.Total, r.Score, verdict)
}

// Submit sends the sheet for grading. Every question must be answered.
func (s *Sheet) Submit(ctx context.Context, b Backend, now time.Time) (Result, error) {
	if len(s.Unanswered()) > 0 {
		return Result{}, ErrIncomplete
	}
	res, err := b.SubmitAnswers(ctx, s.LevelID, s.Answers())
	if err != nil {
		return Result{}, err
	}
	total := res.TotalQuestions
	if total == 0 {
		total = len(s.Questions)
	}
	return Result{
		LevelID:    s.LevelID,
		Passed:     res.Passed,
		Score:      res.Score,
		Correct:    res.CorrectAnswers,
		Total:      total,
		Points:     res.PointsEarned,
		DurationMS: max(0, now.Sub(s.StartedAt).Milliseconds()),
	}, nil
}
