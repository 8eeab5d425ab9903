package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions still live in a local map so broadcasts stay in process; Redis holds a liveness
// marker and the latest snapshot of each session so another instance or an operator can read it.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(quizID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[quizID]; ok {
		return session
	}
	session := s.restore(quizID)
	s.sessions[quizID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(quizID), "1", s.ttl).Err()
	return session
}

func (s *SessionStore) Get(quizID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[quizID]
	return session, ok
}

func (s *SessionStore) DeleteIfEmpty(quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[quizID]
	if !ok || !session.IsEmpty() {
		return
	}
	delete(s.sessions, quizID)
	_ = s.client.Del(context.Background(), s.key(quizID), s.snapshotKey(quizID)).Err()
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SaveSnapshot stores the session state and refreshes the liveness marker.
func (s *SessionStore) SaveSnapshot(ctx context.Context, snapshot domain.SessionSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.snapshotKey(snapshot.QuizID), data, s.ttl)
	pipe.Set(ctx, s.key(snapshot.QuizID), "1", s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the last stored snapshot of a session.
func (s *SessionStore) LoadSnapshot(ctx context.Context, quizID string) (domain.SessionSnapshot, error) {
	data, err := s.client.Get(ctx, s.snapshotKey(quizID)).Bytes()
	if err == redis.Nil {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snapshot domain.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}

// restore resumes an unfinished session left behind by a previous process.
func (s *SessionStore) restore(quizID string) *app.Session {
	snapshot, err := s.LoadSnapshot(context.Background(), quizID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			log.Printf("restore session %s: %v", quizID, err)
		}
		return app.NewSession(quizID)
	}
	if snapshot.Phase == domain.PhaseFinished {
		return app.NewSession(quizID)
	}
	session, err := app.RestoreSession(snapshot)
	if err != nil {
		log.Printf("discard snapshot of quiz %s: %v", quizID, err)
		return app.NewSession(quizID)
	}
	return session
}

func (s *SessionStore) key(quizID string) string {
	return "quiz:session:" + quizID
}

func (s *SessionStore) snapshotKey(quizID string) string {
	return "quiz:session:" + quizID + ":snapshot"
}
