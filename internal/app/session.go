package app

import (
	"sync"
	"time"

	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/scoring"
)

// Session is an in-memory representation of a live quiz.
type Session struct {
	id        string
	createdAt time.Time
	now       func() time.Time

	mu            sync.RWMutex
	quiz          domain.Quiz
	phase         domain.Phase
	questionIndex int
	participants  map[string]*domain.Participant
	order         []string       // join order; ties on the leaderboard follow it
	conns         map[string]int // open connections per participant
	subscribers   map[chan domain.SessionState]struct{}

	// final standings bookkeeping; a finished game stays retryable until its result is stored
	resultID    string
	saving      bool
	resultSaved bool
}

func newSession(id string) *Session {
	return newSessionWithClock(id, time.Now)
}

func newSessionWithClock(id string, now func() time.Time) *Session {
	return &Session{
		id:            id,
		createdAt:     now(),
		now:           now,
		phase:         domain.PhaseLobby,
		questionIndex: -1,
		participants:  make(map[string]*domain.Participant),
		conns:         make(map[string]int),
		subscribers:   make(map[chan domain.SessionState]struct{}),
	}
}

func restoreSession(snapshot domain.SessionSnapshot, now func() time.Time) *Session {
	s := newSessionWithClock(snapshot.QuizID, now)
	s.phase = snapshot.Phase
	s.questionIndex = snapshot.QuestionIndex
	for _, p := range snapshot.Participants {
		restored := p.Clone()
		restored.Connected = false
		if restored.Answers == nil {
			restored.Answers = make(map[int]int)
		}
		s.participants[p.ID] = &restored
		s.order = append(s.order, p.ID)
	}
	return s
}

// ID returns the quiz the session runs.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) join(quiz domain.Quiz, userID, displayName string) domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindLocked(quiz)
	s.conns[userID]++
	if participant, ok := s.participants[userID]; ok {
		participant.Name = displayName
		participant.Connected = true
	} else {
		s.participants[userID] = &domain.Participant{
			ID:        userID,
			Name:      displayName,
			Answers:   make(map[int]int),
			JoinedAt:  s.now(),
			Connected: true,
		}
		s.order = append(s.order, userID)
	}
	return s.broadcastLocked()
}

func (s *Session) bindLocked(quiz domain.Quiz) {
	if s.quiz.ID == "" {
		s.quiz = quiz
	}
}

func (s *Session) bind(quiz domain.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindLocked(quiz)
}

// boundQuiz returns the quiz the session plays; zero until a quiz is bound.
func (s *Session) boundQuiz() domain.Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quiz
}

func (s *Session) open(quiz domain.Quiz) domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindLocked(quiz)
	return s.stateLocked()
}

func (s *Session) start(quiz domain.Quiz) (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindLocked(quiz)
	if s.phase != domain.PhaseLobby {
		return domain.SessionState{}, domain.ErrAlreadyStarted
	}
	return s.openNextLocked()
}

func (s *Session) next(quiz domain.Quiz) (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindLocked(quiz)
	return s.openNextLocked()
}

func (s *Session) openNextLocked() (domain.SessionState, error) {
	if s.phase == domain.PhaseFinished {
		return domain.SessionState{}, domain.ErrSessionFinished
	}
	next := s.questionIndex + 1
	if next >= len(s.quiz.Questions) {
		return domain.SessionState{}, domain.ErrNoMoreQuestions
	}
	s.questionIndex = next
	s.phase = domain.PhaseQuestion
	return s.broadcastLocked(), nil
}

func (s *Session) answer(userID string, submission domain.AnswerSubmission) (domain.AnswerResult, domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[userID]
	if !ok {
		return domain.AnswerResult{}, domain.SessionState{}, domain.ErrParticipantNotFound
	}
	// a restored session has no quiz bound until someone rejoins or the host acts
	if s.phase != domain.PhaseQuestion || submission.QuestionIndex != s.questionIndex || s.questionIndex >= len(s.quiz.Questions) {
		return domain.AnswerResult{}, domain.SessionState{}, domain.ErrQuestionClosed
	}
	question := s.quiz.Questions[s.questionIndex]
	if submission.OptionIndex < 0 || submission.OptionIndex >= len(question.Options) {
		return domain.AnswerResult{}, domain.SessionState{}, domain.ErrOptionNotFound
	}
	if _, answered := participant.Answers[s.questionIndex]; answered {
		return domain.AnswerResult{}, domain.SessionState{}, domain.ErrAlreadyAnswered
	}

	participant.Answers[s.questionIndex] = submission.OptionIndex
	result := domain.AnswerResult{QuestionIndex: s.questionIndex}
	if submission.OptionIndex == question.CorrectOptionIndex {
		result.Correct = true
		result.Awarded = question.Value()
		participant.TotalScore += result.Awarded
	}
	result.TotalScore = participant.TotalScore

	return result, s.broadcastLocked(), nil
}

// reveal closes the open round. Revealing twice returns the same round again.
func (s *Session) reveal() (domain.Quiz, int, []domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseQuestion:
		s.phase = domain.PhaseReveal
		s.broadcastLocked()
	case domain.PhaseReveal:
	default:
		return domain.Quiz{}, 0, nil, domain.ErrQuestionClosed
	}
	return s.quiz, s.questionIndex, s.participantsLocked(), nil
}

// round returns the bound quiz with a participant snapshot taken under the same lock.
func (s *Session) round() (domain.Quiz, []domain.Participant) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quiz, s.participantsLocked()
}

// finish ends the game and claims the right to store its result. A game that was finished but
// whose result was not stored can be finished again; the result ID stays the same.
func (s *Session) finish(resultID string) (string, []domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.PhaseFinished && (s.resultSaved || s.saving) {
		return "", nil, domain.ErrSessionFinished
	}
	if s.resultID == "" {
		s.resultID = resultID
	}
	s.saving = true
	if s.phase != domain.PhaseFinished {
		s.phase = domain.PhaseFinished
		s.broadcastLocked()
	}
	return s.resultID, s.participantsLocked(), nil
}

// settle records whether the final result of a finished game was stored.
func (s *Session) settle(saved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	s.resultSaved = saved
}

// restart returns the session to the lobby with the connected players and zero scores.
// Disconnected players are discarded with the game that ended.
func (s *Session) restart(quiz domain.Quiz) (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving {
		return domain.SessionState{}, domain.ErrSessionFinished
	}
	s.quiz = quiz
	s.phase = domain.PhaseLobby
	s.questionIndex = -1
	s.resultID = ""
	s.resultSaved = false

	order := s.order[:0]
	for _, id := range s.order {
		p := s.participants[id]
		if !p.Connected {
			delete(s.participants, id)
			continue
		}
		p.TotalScore = 0
		p.Answers = make(map[int]int)
		order = append(order, id)
	}
	s.order = order
	return s.broadcastLocked(), nil
}

// disconnect closes one connection of a participant. With none left they are marked offline;
// their score and answers stay with the game.
func (s *Session) disconnect(userID string) domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns[userID] > 1 {
		s.conns[userID]--
		return s.stateLocked()
	}
	delete(s.conns, userID)
	if p, ok := s.participants[userID]; ok {
		p.Connected = false
	}
	return s.broadcastLocked()
}

func (s *Session) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.subscribers) > 0 {
		return false
	}
	for _, p := range s.participants {
		if p.Connected {
			return false
		}
	}
	return true
}

// IsEmpty reports whether nobody is connected to or watching the session.
func (s *Session) IsEmpty() bool {
	return s.isEmpty()
}

// Participants returns a copy of the participants in join order.
func (s *Session) Participants() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participantsLocked()
}

// Snapshot captures the persisted form of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.SessionSnapshot{
		QuizID:        s.id,
		Phase:         s.phase,
		QuestionIndex: s.questionIndex,
		Participants:  s.participantsLocked(),
		TakenAt:       s.now(),
	}
}

// State returns the current broadcast view.
func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) subscribe() (<-chan domain.SessionState, func()) {
	ch := make(chan domain.SessionState, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// sent under the lock so no broadcast can overtake it; the buffer is empty
	ch <- s.stateLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.SessionState {
	state := s.stateLocked()
	for ch := range s.subscribers {
		select {
		case ch <- state:
		default:
			// slow subscriber: drop its oldest update
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
	return state
}

func (s *Session) participantsLocked() []domain.Participant {
	out := make([]domain.Participant, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.participants[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *Session) stateLocked() domain.SessionState {
	state := domain.SessionState{
		QuizID:         s.id,
		Phase:          s.phase,
		QuestionIndex:  s.questionIndex,
		TotalQuestions: len(s.quiz.Questions),
		Leaderboard:    leaderboardOf(s.id, s.participantsLocked(), s.now()),
	}
	if (s.phase == domain.PhaseQuestion || s.phase == domain.PhaseReveal) && s.questionIndex < len(s.quiz.Questions) {
		q := s.quiz.Questions[s.questionIndex]
		state.Question = &domain.QuestionView{
			Index:   s.questionIndex,
			Prompt:  q.Prompt,
			Options: q.Options,
			Points:  q.Value(),
		}
	}
	return state
}

func leaderboardOf(quizID string, participants []domain.Participant, at time.Time) domain.Leaderboard {
	return domain.Leaderboard{
		QuizID:    quizID,
		Entries:   scoring.Standings(scoring.Rank(participants)),
		UpdatedAt: at,
	}
}
