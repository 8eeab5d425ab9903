package postgres

import (
	"context"
	"fmt"
	"time"

	"quizwhiz-service/internal/domain"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type gameResultRow struct {
	bun.BaseModel `bun:"table:game_results"`

	ID         uuid.UUID                 `bun:"id,pk,type:uuid"`
	QuizID     string                    `bun:"quiz_id,notnull"`
	Standings  []domain.LeaderboardEntry `bun:"standings,type:jsonb,notnull"`
	FinishedAt time.Time                 `bun:"finished_at,notnull"`
}

// ResultStore persists final standings of finished games.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.GameResult) error {
	id, err := uuid.Parse(result.ID)
	if err != nil {
		return fmt.Errorf("result id: %w", err)
	}
	row := &gameResultRow{
		ID:         id,
		QuizID:     result.QuizID,
		Standings:  result.Standings,
		FinishedAt: result.FinishedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

// ListResults returns the finished games of a quiz, newest first.
func (s *ResultStore) ListResults(ctx context.Context, quizID string, limit int) ([]domain.GameResult, error) {
	var rows []gameResultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		Order("finished_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list game results: %w", err)
	}
	out := make([]domain.GameResult, len(rows))
	for i, row := range rows {
		out[i] = domain.GameResult{
			ID:         row.ID.String(),
			QuizID:     row.QuizID,
			Standings:  row.Standings,
			FinishedAt: row.FinishedAt,
		}
	}
	return out, nil
}
