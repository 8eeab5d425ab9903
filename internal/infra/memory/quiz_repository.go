package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quizwhiz-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches published quiz content from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quizzes with TTL so live rounds do not hit the store on every answer.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.cached(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops a cached quiz after it was republished.
func (r *QuizRepository) Invalidate(_ context.Context, quizID string) error {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.mu.Unlock()
	return nil
}

func (r *QuizRepository) cached(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a loader backed by an in-memory map; it also accepts new quizzes
// and resolves their join codes.
type StaticQuizLoader struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
	codes   map[string]string // join code -> quiz ID
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	l := &StaticQuizLoader{
		quizzes: make(map[string]domain.Quiz, len(quizzes)),
		codes:   make(map[string]string),
	}
	for id, quiz := range quizzes {
		l.quizzes[id] = quiz
		if quiz.Code != "" {
			l.codes[quiz.Code] = id
		}
	}
	return l
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// SaveQuiz stores or replaces a quiz. A code owned by another quiz is rejected with ErrCodeTaken.
func (l *StaticQuizLoader) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if quiz.Code != "" {
		if owner, ok := l.codes[quiz.Code]; ok && owner != quiz.ID {
			return domain.ErrCodeTaken
		}
	}
	if previous, ok := l.quizzes[quiz.ID]; ok && previous.Code != quiz.Code {
		delete(l.codes, previous.Code)
	}
	l.quizzes[quiz.ID] = quiz
	if quiz.Code != "" {
		l.codes[quiz.Code] = quiz.ID
	}
	return nil
}

// ResolveCode returns the quiz a join code belongs to.
func (l *StaticQuizLoader) ResolveCode(_ context.Context, code string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id, ok := l.codes[domain.NormalizeJoinCode(code)]; ok {
		return id, nil
	}
	return "", domain.ErrQuizNotFound
}
