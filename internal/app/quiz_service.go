package app

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/metrics"
	"quizwhiz-service/internal/scoring"

	"github.com/google/uuid"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(quizID string) *Session
	Get(quizID string) (*Session, bool)
	DeleteIfEmpty(quizID string)
	Len() int
}

// SnapshotStore is implemented by session repositories that persist session state.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot domain.SessionSnapshot) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultStore keeps final standings of finished games.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.GameResult) error
}

// EventPublisher fans quiz lifecycle events out to other services.
type EventPublisher interface {
	PublishRoundRevealed(ctx context.Context, summary domain.RoundSummary) error
	PublishGameFinished(ctx context.Context, result domain.GameResult) error
}

// Option configures optional collaborators of QuizService.
type Option func(*QuizService)

func WithResultStore(store ResultStore) Option {
	return func(s *QuizService) { s.results = store }
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *QuizService) { s.events = publisher }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	results  ResultStore
	events   EventPublisher
	now      func() time.Time
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, opts ...Option) *QuizService {
	s := &QuizService{sessions: store, quizzes: quizzes, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string) *Session {
	return newSession(id)
}

// RestoreSession rebuilds a session from a persisted snapshot. The quiz is bound again on the
// next join or host action and every participant starts out disconnected.
func RestoreSession(snapshot domain.SessionSnapshot) (*Session, error) {
	if err := scoring.Validate(snapshot.Participants); err != nil {
		return nil, err
	}
	return restoreSession(snapshot, time.Now), nil
}

// Join registers or refreshes a participant in a quiz session and returns the participant ID.
// An empty userID is replaced with a generated one.
func (s *QuizService) Join(ctx context.Context, quizID, userID, displayName string) (string, domain.SessionState, error) {
	// users cannot join unknown quizzes
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", domain.SessionState{}, err
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	session := s.sessions.GetOrCreate(quizID)
	state := session.join(quiz, userID, displayName)
	metrics.Joins.Inc()
	metrics.LiveSessions.Set(float64(s.sessions.Len()))
	s.persist(ctx, session)
	return userID, state, nil
}

// Open prepares a session for its host before any player joins.
func (s *QuizService) Open(ctx context.Context, quizID string) (domain.SessionState, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionState{}, err
	}
	state := s.sessions.GetOrCreate(quizID).open(quiz)
	metrics.LiveSessions.Set(float64(s.sessions.Len()))
	return state, nil
}

// Start opens the first question of a session.
func (s *QuizService) Start(ctx context.Context, quizID string) (domain.SessionState, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionState{}, err
	}
	session := s.sessions.GetOrCreate(quizID)
	state, err := session.start(quiz)
	if err != nil {
		return domain.SessionState{}, err
	}
	s.persist(ctx, session)
	return state, nil
}

// NextQuestion opens the question after the current one.
func (s *QuizService) NextQuestion(ctx context.Context, quizID string) (domain.SessionState, error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.SessionState{}, domain.ErrSessionNotFound
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionState{}, err
	}
	state, err := session.next(quiz)
	if err != nil {
		return domain.SessionState{}, err
	}
	s.persist(ctx, session)
	return state, nil
}

// SubmitAnswer records an answer for the open question and scores it.
func (s *QuizService) SubmitAnswer(ctx context.Context, quizID, userID string, submission domain.AnswerSubmission) (domain.AnswerResult, error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrSessionNotFound
	}

	result, _, err := session.answer(userID, submission)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	metrics.Answers.WithLabelValues(strconv.FormatBool(result.Correct)).Inc()
	s.persist(ctx, session)
	return result, nil
}

// Reveal closes the open question and returns its response distribution.
func (s *QuizService) Reveal(ctx context.Context, quizID string) (domain.RoundSummary, error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.RoundSummary{}, domain.ErrSessionNotFound
	}
	if err := s.ensureBound(ctx, session); err != nil {
		return domain.RoundSummary{}, err
	}

	quiz, questionIndex, participants, err := session.reveal()
	if err != nil {
		return domain.RoundSummary{}, err
	}
	summary, err := summarize(quiz, participants, questionIndex)
	if err != nil {
		return domain.RoundSummary{}, err
	}

	metrics.Reveals.Inc()
	s.persist(ctx, session)
	if s.events != nil {
		if err := s.events.PublishRoundRevealed(ctx, summary); err != nil {
			log.Printf("publish round revealed for quiz %s: %v", quizID, err)
		}
	}
	return summary, nil
}

// Results returns the response distribution for any question of a live session.
func (s *QuizService) Results(ctx context.Context, quizID string, questionIndex int) (domain.RoundSummary, error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.RoundSummary{}, domain.ErrSessionNotFound
	}
	if err := s.ensureBound(ctx, session); err != nil {
		return domain.RoundSummary{}, err
	}
	quiz, participants := session.round()
	return summarize(quiz, participants, questionIndex)
}

// Leaderboard ranks the current participants.
func (s *QuizService) Leaderboard(_ context.Context, quizID string) (domain.Leaderboard, error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.Leaderboard{}, domain.ErrSessionNotFound
	}
	return leaderboardOf(quizID, session.Participants(), s.now()), nil
}

// Podium groups the current top three into display slots.
func (s *QuizService) Podium(_ context.Context, quizID string) (domain.Podium, error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.Podium{}, domain.ErrSessionNotFound
	}
	return scoring.BuildPodium(scoring.Rank(session.Participants())), nil
}

// Finish ends the game, stores the final standings and returns the podium.
// When storing fails the game stays finished and Finish can be called again.
func (s *QuizService) Finish(ctx context.Context, quizID string) (domain.Podium, error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.Podium{}, domain.ErrSessionNotFound
	}
	resultID, participants, err := session.finish(uuid.NewString())
	if err != nil {
		return domain.Podium{}, err
	}
	s.persist(ctx, session)

	if err := scoring.Validate(participants); err != nil {
		session.settle(false)
		return domain.Podium{}, err
	}
	ordered := scoring.Rank(participants)
	result := domain.GameResult{
		ID:         resultID,
		QuizID:     quizID,
		Standings:  scoring.Standings(ordered),
		FinishedAt: s.now(),
	}
	if s.results != nil {
		if err := s.results.SaveResult(ctx, result); err != nil {
			session.settle(false)
			return domain.Podium{}, fmt.Errorf("save result of quiz %s: %w", quizID, err)
		}
	}
	session.settle(true)
	metrics.GamesFinished.Inc()

	if s.events != nil {
		if err := s.events.PublishGameFinished(ctx, result); err != nil {
			log.Printf("publish game finished for quiz %s: %v", quizID, err)
		}
	}
	return scoring.BuildPodium(ordered), nil
}

// Restart takes a session back to the lobby for another game with the same players.
// The latest quiz content is loaded so a republished quiz takes effect here.
func (s *QuizService) Restart(ctx context.Context, quizID string) (domain.SessionState, error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return domain.SessionState{}, domain.ErrSessionNotFound
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionState{}, err
	}
	state, err := session.restart(quiz)
	if err != nil {
		return domain.SessionState{}, err
	}
	metrics.Restarts.Inc()
	s.persist(ctx, session)
	return state, nil
}

// Subscribe returns a channel that receives state updates for a quiz.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, quizID string) (<-chan domain.SessionState, func(), error) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, unsubscribe := session.subscribe()
	cancel := func() {
		unsubscribe()
		if session.isEmpty() {
			s.sessions.DeleteIfEmpty(quizID)
			metrics.LiveSessions.Set(float64(s.sessions.Len()))
		}
	}
	return ch, cancel, nil
}

// Disconnect marks a participant offline; their score stays in the game. A session nobody is
// connected to or watching ends and is dropped.
func (s *QuizService) Disconnect(ctx context.Context, quizID, userID string) {
	session, ok := s.sessions.Get(quizID)
	if !ok {
		return
	}
	session.disconnect(userID)
	if session.isEmpty() {
		s.sessions.DeleteIfEmpty(quizID)
	} else {
		s.persist(ctx, session)
	}
	metrics.LiveSessions.Set(float64(s.sessions.Len()))
}

// ensureBound loads the quiz into a session restored without one.
func (s *QuizService) ensureBound(ctx context.Context, session *Session) error {
	if session.boundQuiz().ID != "" {
		return nil
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.ID())
	if err != nil {
		return err
	}
	session.bind(quiz)
	return nil
}

// persist saves the session snapshot when the repository supports it. Failures are logged only.
func (s *QuizService) persist(ctx context.Context, session *Session) {
	store, ok := s.sessions.(SnapshotStore)
	if !ok {
		return
	}
	if err := store.SaveSnapshot(ctx, session.Snapshot()); err != nil {
		log.Printf("save snapshot for quiz %s: %v", session.ID(), err)
	}
}

// summarize tallies one round from a participant snapshot.
func summarize(quiz domain.Quiz, participants []domain.Participant, questionIndex int) (domain.RoundSummary, error) {
	if questionIndex < 0 || questionIndex >= len(quiz.Questions) {
		return domain.RoundSummary{}, domain.ErrQuestionNotFound
	}
	question := quiz.Questions[questionIndex]

	start := time.Now()
	tally := scoring.ComputeTally(question, participants, questionIndex)
	metrics.TallyDuration.Observe(time.Since(start).Seconds())

	return scoring.Summarize(quiz.ID, questionIndex, question, tally), nil
}
