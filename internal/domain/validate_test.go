package domain

import (
	"errors"
	"testing"
)

func TestQuizValidate(t *testing.T) {
	valid := Quiz{
		Title: "Arithmetic",
		Questions: []Question{
			{Prompt: "2 + 2?", Options: []string{"3", "4"}, CorrectOptionIndex: 1},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid quiz, got %v", err)
	}

	noQuestions := Quiz{Title: "Empty"}
	if err := noQuestions.Validate(); !errors.Is(err, ErrInvalidQuiz) {
		t.Fatalf("expected ErrInvalidQuiz, got %v", err)
	}

	badIndex := valid
	badIndex.Questions = []Question{{Prompt: "?", Options: []string{"a"}, CorrectOptionIndex: 1}}
	if err := badIndex.Validate(); !errors.Is(err, ErrInvalidQuiz) {
		t.Fatalf("expected ErrInvalidQuiz for out-of-range correct option, got %v", err)
	}
}

func TestParticipantCloneIsIndependent(t *testing.T) {
	p := Participant{ID: "u1", Answers: map[int]int{0: 2}}
	c := p.Clone()
	c.Answers[1] = 3

	if _, ok := p.Answer(1); ok {
		t.Fatalf("clone mutation leaked into original")
	}
	if got, ok := c.Answer(0); !ok || got != 2 {
		t.Fatalf("expected cloned answer 2, got %d (ok=%v)", got, ok)
	}
}
