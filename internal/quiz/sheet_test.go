package quiz

import (
	"context"
	"errors"
	"testing"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/journey"
)

type fakeBackend struct {
	questions []api.Question
	got       []api.Answer
	result    api.SubmitResult
}

func (f *fakeBackend) Questions(context.Context, journey.ID) ([]api.Question, error) {
	return f.questions, nil
}

func (f *fakeBackend) SubmitAnswers(_ context.Context, _ journey.ID, answers []api.Answer) (api.SubmitResult, error) {
	f.got = answers
	return f.result, nil
}

func TestSheetSubmit(t *testing.T) {
	b := &fakeBackend{
		questions: []api.Question{
			{ID: "q1", Question: "2+2", Options: []string{"3", "4"}},
			{ID: "q2", Question: "3*3", Options: []string{"9", "6"}},
		},
		result: api.SubmitResult{Score: 100, CorrectAnswers: 2, Passed: true, PointsEarned: 20},
	}
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	s, err := Load(context.Background(), b, "7", start)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Choose(0, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background(), b, start); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected incomplete error, got %v", err)
	}
	if err := s.Choose(1, 5); err == nil {
		t.Fatalf("expected out of range option to fail")
	}
	if err := s.Choose(1, 0); err != nil {
		t.Fatal(err)
	}
	res, err := s.Submit(context.Background(), b, start.Add(90*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(b.got) != 2 || b.got[0].Answer != "4" || b.got[1].Answer != "9" {
		t.Fatalf("unexpected answers sent %#v", b.got)
	}
	if !res.Passed || res.Total != 2 || res.DurationMS != 90000 {
		t.Fatalf("unexpected result %#v", res)
	}
	if res.Summary() != "2/2 correct, score 100 (passed)" {
		t.Fatalf("unexpected summary %q", res.Summary())
	}
}

func TestChoiceDefaults(t *testing.T) {
	s := &Sheet{Questions: []api.Question{{ID: "a", Options: []string{"x"}}}}
	if s.Choice(0) != -1 || s.Choice(3) != -1 {
		t.Fatalf("unanswered questions should report -1")
	}
	if err := s.Choose(0, 0); err != nil || s.Answered() != 1 {
		t.Fatalf("expected lazily initialised answers, err=%v", err)
	}
}
