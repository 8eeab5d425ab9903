package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// QuizCatalog publishes quizzes and resolves their join codes.
type QuizCatalog interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	ResolveCode(ctx context.Context, code string) (string, error)
}

// QuizCache drops cached quiz content once a quiz is republished.
type QuizCache interface {
	Invalidate(ctx context.Context, quizID string) error
}

// HistoryReader lists finished games of a quiz.
type HistoryReader interface {
	ListResults(ctx context.Context, quizID string, limit int) ([]domain.GameResult, error)
}

// RESTHandler serves quiz authoring, host controls and read-only result views.
type RESTHandler struct {
	service *app.QuizService
	quizzes QuizCatalog
	cache   QuizCache
	history HistoryReader
}

// NewRESTHandler builds the handler; history may be nil when no database is configured.
func NewRESTHandler(service *app.QuizService, quizzes QuizCatalog, cache QuizCache, history HistoryReader) *RESTHandler {
	return &RESTHandler{service: service, quizzes: quizzes, cache: cache, history: history}
}

// maxCodeAttempts bounds retries when a fresh join code collides with an existing one.
const maxCodeAttempts = 5

// Register mounts the REST routes on r.
func (h *RESTHandler) Register(r *mux.Router) {
	r.HandleFunc("/quizzes", h.createQuiz).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{quizId}", h.updateQuiz).Methods(http.MethodPut)
	r.HandleFunc("/join/{code}", h.resolveCode).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{quizId}/start", h.start).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{quizId}/next", h.next).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{quizId}/reveal", h.reveal).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{quizId}/finish", h.finish).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{quizId}/restart", h.restart).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{quizId}/leaderboard", h.leaderboard).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{quizId}/podium", h.podium).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{quizId}/results/{questionIndex:[0-9]+}", h.results).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{quizId}/history", h.listHistory).Methods(http.MethodGet)
}

func (h *RESTHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, ok := decodeQuiz(w, r)
	if !ok {
		return
	}
	quiz.ID = uuid.NewString()

	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		if quiz.Code, err = domain.NewJoinCode(); err != nil {
			break
		}
		if err = h.quizzes.SaveQuiz(r.Context(), quiz); !errors.Is(err, domain.ErrCodeTaken) {
			break
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("quiz %s published with code %s and %d questions", quiz.ID, quiz.Code, len(quiz.Questions))
	writeJSON(w, http.StatusCreated, quiz)
}

// updateQuiz republishes a quiz under its ID and join code. Live sessions pick the new
// content up on their next restart.
func (h *RESTHandler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["quizId"]
	existing, err := h.quizzes.LoadQuiz(r.Context(), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	quiz, ok := decodeQuiz(w, r)
	if !ok {
		return
	}
	quiz.ID = existing.ID
	quiz.Code = existing.Code
	if err := h.quizzes.SaveQuiz(r.Context(), quiz); err != nil {
		writeError(w, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context(), quiz.ID); err != nil {
			log.Printf("invalidate cached quiz %s: %v", quiz.ID, err)
		}
	}
	writeJSON(w, http.StatusOK, quiz)
}

type joinCodePayload struct {
	QuizID string `json:"quizId"`
	Code   string `json:"code"`
}

func (h *RESTHandler) resolveCode(w http.ResponseWriter, r *http.Request) {
	code := domain.NormalizeJoinCode(mux.Vars(r)["code"])
	quizID, err := h.quizzes.ResolveCode(r.Context(), code)
	respond(w, joinCodePayload{QuizID: quizID, Code: code}, err)
}

// decodeQuiz reads and validates a quiz body, filling in default question IDs.
func decodeQuiz(w http.ResponseWriter, r *http.Request) (domain.Quiz, bool) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid quiz payload"})
		return domain.Quiz{}, false
	}
	if err := quiz.Validate(); err != nil {
		writeError(w, err)
		return domain.Quiz{}, false
	}
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = "q" + strconv.Itoa(i+1)
		}
	}
	return quiz, true
}

func (h *RESTHandler) start(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Start(r.Context(), mux.Vars(r)["quizId"])
	respond(w, state, err)
}

func (h *RESTHandler) next(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.NextQuestion(r.Context(), mux.Vars(r)["quizId"])
	respond(w, state, err)
}

func (h *RESTHandler) reveal(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Reveal(r.Context(), mux.Vars(r)["quizId"])
	respond(w, summary, err)
}

func (h *RESTHandler) finish(w http.ResponseWriter, r *http.Request) {
	podium, err := h.service.Finish(r.Context(), mux.Vars(r)["quizId"])
	respond(w, podium, err)
}

func (h *RESTHandler) restart(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Restart(r.Context(), mux.Vars(r)["quizId"])
	respond(w, state, err)
}

func (h *RESTHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), mux.Vars(r)["quizId"])
	respond(w, lb, err)
}

func (h *RESTHandler) podium(w http.ResponseWriter, r *http.Request) {
	podium, err := h.service.Podium(r.Context(), mux.Vars(r)["quizId"])
	respond(w, podium, err)
}

func (h *RESTHandler) results(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	questionIndex, err := strconv.Atoi(vars["questionIndex"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid question index"})
		return
	}
	summary, err := h.service.Results(r.Context(), vars["quizId"], questionIndex)
	respond(w, summary, err)
}

func (h *RESTHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, []domain.GameResult{})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	results, err := h.history.ListResults(r.Context(), mux.Vars(r)["quizId"], limit)
	respond(w, results, err)
}

func respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrQuestionClosed),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrAlreadyStarted),
		errors.Is(err, domain.ErrNoMoreQuestions),
		errors.Is(err, domain.ErrSessionFinished),
		errors.Is(err, domain.ErrCodeTaken):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrOptionNotFound):
		status = http.StatusBadRequest
	default:
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}
