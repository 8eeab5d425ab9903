package scoring

import (
	"errors"
	"fmt"
	"sort"

	"quizwhiz-service/internal/domain"
)

// ErrNegativeScore flags a participant whose total dropped below zero.
var ErrNegativeScore = errors.New("negative participant score")

var podiumLabels = [3]string{"Winner", "2nd Place", "3rd Place"}

// Rank returns a copy of participants ordered by TotalScore descending.
// Equal scores keep their input order; there is no secondary key.
func Rank(participants []domain.Participant) []domain.Participant {
	ordered := make([]domain.Participant, len(participants))
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TotalScore > ordered[j].TotalScore
	})
	return ordered
}

// Standings numbers an ordered list from 1.
func Standings(ordered []domain.Participant) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, len(ordered))
	for i, p := range ordered {
		entries[i] = entryAt(p, i)
	}
	return entries
}

// BuildPodium places the first three of an ordered list into center, left and right slots.
// Missing positions stay nil; the remainder keeps its order with ranks from 4.
func BuildPodium(ordered []domain.Participant) domain.Podium {
	podium := domain.Podium{Rest: []domain.LeaderboardEntry{}}
	for i, p := range ordered {
		if i >= len(podiumLabels) {
			podium.Rest = append(podium.Rest, entryAt(p, i))
			continue
		}
		slot := &domain.PodiumSlot{LeaderboardEntry: entryAt(p, i), Label: podiumLabels[i]}
		switch i {
		case 0:
			podium.Center = slot
		case 1:
			podium.Left = slot
		case 2:
			podium.Right = slot
		}
	}
	return podium
}

// Validate rejects snapshots the ranker is not defined for.
func Validate(participants []domain.Participant) error {
	for _, p := range participants {
		if p.TotalScore < 0 {
			return fmt.Errorf("%w: %s has %d", ErrNegativeScore, p.ID, p.TotalScore)
		}
	}
	return nil
}

func entryAt(p domain.Participant, position int) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		Rank:        position + 1,
		UserID:      p.ID,
		DisplayName: p.Name,
		Score:       p.TotalScore,
	}
}
