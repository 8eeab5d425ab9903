// Package scoring turns a participant snapshot into vote tallies and rankings.
// Every function here is pure; callers pass a snapshot they will not mutate during the call.
package scoring

import (
	"sort"
	"strconv"

	"quizwhiz-service/internal/domain"

	"github.com/shopspring/decimal"
)

var tenThousand = decimal.NewFromInt(10000)

// optionLabels are the display letters for the first six options.
var optionLabels = []string{"A", "B", "C", "D", "E", "F"}

// ComputeTally counts the votes for each option of question in round questionIndex.
// Missing or out-of-range answers are skipped.
func ComputeTally(question domain.Question, participants []domain.Participant, questionIndex int) domain.Tally {
	counts := make([]int, len(question.Options))
	total := 0
	for _, p := range participants {
		selected, ok := p.Answer(questionIndex)
		if !ok || selected < 0 || selected >= len(counts) {
			continue
		}
		counts[selected]++
		total++
	}
	return domain.Tally{Counts: counts, Total: total}
}

// Percentages returns each option's share of the vote with two decimals. Shares are floored
// to hundredths and the leftover hundredths go to the largest remainders (lowest index first on
// equal remainders), so a complete tally sums to exactly 100. All values are zero when nobody voted.
func Percentages(tally domain.Tally) []float64 {
	out := make([]float64, len(tally.Counts))
	if tally.Total <= 0 {
		return out
	}
	total := decimal.NewFromInt(int64(tally.Total))
	hundredths := make([]int64, len(tally.Counts))
	remainders := make([]decimal.Decimal, len(tally.Counts))
	left := int64(10000)
	for i, count := range tally.Counts {
		exact := decimal.NewFromInt(int64(count)).Mul(tenThousand).Div(total)
		floor := exact.Floor()
		hundredths[i] = floor.IntPart()
		remainders[i] = exact.Sub(floor)
		left -= hundredths[i]
	}

	order := make([]int, len(hundredths))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})
	for _, i := range order {
		if left <= 0 || remainders[i].IsZero() {
			break
		}
		hundredths[i]++
		left--
	}

	for i, h := range hundredths {
		out[i] = decimal.New(h, -2).InexactFloat64()
	}
	return out
}

// OptionLabel returns the letter shown next to an option, or its 1-based number past F.
func OptionLabel(index int) string {
	if index >= 0 && index < len(optionLabels) {
		return optionLabels[index]
	}
	return strconv.Itoa(index + 1)
}

// Summarize builds the per-option rows for a tally. The correct option is the one whose
// index matches question.CorrectOptionIndex.
func Summarize(quizID string, questionIndex int, question domain.Question, tally domain.Tally) domain.RoundSummary {
	percentages := Percentages(tally)
	options := make([]domain.OptionResult, len(question.Options))
	for i, text := range question.Options {
		count := 0
		if i < len(tally.Counts) {
			count = tally.Counts[i]
		}
		pct := 0.0
		if i < len(percentages) {
			pct = percentages[i]
		}
		options[i] = domain.OptionResult{
			Index:      i,
			Label:      OptionLabel(i),
			Text:       text,
			Count:      count,
			Percentage: pct,
			Correct:    i == question.CorrectOptionIndex,
		}
	}
	return domain.RoundSummary{
		QuizID:             quizID,
		QuestionIndex:      questionIndex,
		Prompt:             question.Prompt,
		CorrectOptionIndex: question.CorrectOptionIndex,
		Options:            options,
		TotalVotes:         tally.Total,
	}
}
