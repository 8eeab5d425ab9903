package scoring

import (
	"math"
	"reflect"
	"testing"

	"quizwhiz-service/internal/domain"
)

func fourOptionQuestion() domain.Question {
	return domain.Question{
		Prompt:             "Largest planet?",
		Options:            []string{"Mars", "Jupiter", "Venus", "Earth"},
		CorrectOptionIndex: 1,
	}
}

func voter(id string, answers map[int]int) domain.Participant {
	return domain.Participant{ID: id, Name: id, Answers: answers}
}

func TestComputeTallyCountsValidAnswersOnly(t *testing.T) {
	participants := []domain.Participant{
		voter("a", map[int]int{0: 1}),
		voter("b", map[int]int{0: 1}),
		voter("c", map[int]int{0: 3}),
		voter("d", map[int]int{1: 0}),  // answered another round
		voter("e", map[int]int{0: 4}),  // out of range
		voter("f", map[int]int{0: -1}), // corrupt
		voter("g", nil),
	}

	tally := ComputeTally(fourOptionQuestion(), participants, 0)

	if !reflect.DeepEqual(tally.Counts, []int{0, 2, 0, 1}) {
		t.Fatalf("unexpected counts %v", tally.Counts)
	}
	if tally.Total != 3 {
		t.Fatalf("expected total 3, got %d", tally.Total)
	}
	sum := 0
	for _, c := range tally.Counts {
		sum += c
	}
	if sum != tally.Total {
		t.Fatalf("sum of counts %d does not match total %d", sum, tally.Total)
	}
}

func TestComputeTallyIsDeterministic(t *testing.T) {
	participants := []domain.Participant{
		voter("a", map[int]int{2: 0}),
		voter("b", map[int]int{2: 2}),
	}
	first := ComputeTally(fourOptionQuestion(), participants, 2)
	second := ComputeTally(fourOptionQuestion(), participants, 2)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical tallies, got %+v and %+v", first, second)
	}
}

func TestComputeTallyZeroVotes(t *testing.T) {
	tally := ComputeTally(fourOptionQuestion(), []domain.Participant{voter("a", nil)}, 0)

	if !reflect.DeepEqual(tally.Counts, []int{0, 0, 0, 0}) || tally.Total != 0 {
		t.Fatalf("expected empty tally, got %+v", tally)
	}
	for i, pct := range Percentages(tally) {
		if pct != 0 {
			t.Fatalf("expected 0%% for option %d, got %v", i, pct)
		}
	}
}

func TestComputeTallyNoOptions(t *testing.T) {
	tally := ComputeTally(domain.Question{}, []domain.Participant{voter("a", map[int]int{0: 0})}, 0)
	if len(tally.Counts) != 0 || tally.Total != 0 {
		t.Fatalf("expected empty tally for question without options, got %+v", tally)
	}
}

func TestPercentagesBounds(t *testing.T) {
	cases := []domain.Tally{
		{Counts: []int{1, 1, 1}, Total: 3},
		{Counts: []int{2, 1}, Total: 3},
		{Counts: []int{1, 1, 1, 1, 1, 1}, Total: 6},
		{Counts: []int{7, 0, 0, 0}, Total: 7},
	}
	for _, tally := range cases {
		pcts := Percentages(tally)
		sum := 0.0
		for _, p := range pcts {
			if p < 0 || p > 100 {
				t.Fatalf("percentage %v out of bounds for %v", p, tally.Counts)
			}
			sum += p
		}
		if math.Abs(sum-100) > 1e-9 {
			t.Fatalf("expected percentages to sum to 100 for %v, got %v", tally.Counts, sum)
		}
	}
}

func TestPercentagesGiveLeftoverToLargestRemainders(t *testing.T) {
	six := Percentages(domain.Tally{Counts: []int{1, 1, 1, 1, 1, 1}, Total: 6})
	want := []float64{16.67, 16.67, 16.67, 16.67, 16.66, 16.66}
	for i := range want {
		if six[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, six)
		}
	}

	thirds := Percentages(domain.Tally{Counts: []int{1, 2, 0}, Total: 3})
	if thirds[0] != 33.33 || thirds[1] != 66.67 || thirds[2] != 0 {
		t.Fatalf("expected [33.33 66.67 0], got %v", thirds)
	}
}

func TestSummarizeMarksCorrectOptionByIndex(t *testing.T) {
	question := fourOptionQuestion()
	tally := domain.Tally{Counts: []int{1, 3, 0, 0}, Total: 4}

	summary := Summarize("quiz-1", 0, question, tally)

	if summary.TotalVotes != 4 || len(summary.Options) != 4 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, opt := range summary.Options {
		if opt.Correct != (opt.Index == 1) {
			t.Fatalf("option %d correct=%v", opt.Index, opt.Correct)
		}
	}
	if summary.Options[1].Percentage != 75 || summary.Options[0].Percentage != 25 {
		t.Fatalf("unexpected percentages %+v", summary.Options)
	}
	if summary.Options[0].Label != "A" || summary.Options[3].Label != "D" {
		t.Fatalf("unexpected labels %+v", summary.Options)
	}
}

func TestOptionLabelFallsBackToNumber(t *testing.T) {
	if got := OptionLabel(5); got != "F" {
		t.Fatalf("expected F, got %s", got)
	}
	if got := OptionLabel(6); got != "7" {
		t.Fatalf("expected 7, got %s", got)
	}
}
