package http

import (
	"net/http"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/metrics"

	"github.com/gorilla/mux"
)

// Stores are the quiz and result backends the HTTP layer reads and writes directly.
// Cache and History may be nil.
type Stores struct {
	Quizzes QuizCatalog
	Cache   QuizCache
	History HistoryReader
}

// NewRouter wires websocket, REST, health and metrics endpoints.
func NewRouter(service *app.QuizService, stores Stores) *mux.Router {
	r := mux.NewRouter()

	ws := NewWSHandler(service, stores.Quizzes)
	r.HandleFunc("/ws", ws.ServeWS)
	r.HandleFunc("/ws/host", ws.ServeHostWS)

	NewRESTHandler(service, stores.Quizzes, stores.Cache, stores.History).Register(r)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return r
}
