package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/domain"

	"github.com/gorilla/websocket"
)

// CodeResolver maps a join code to its quiz.
type CodeResolver interface {
	ResolveCode(ctx context.Context, code string) (string, error)
}

type WSHandler struct {
	service  *app.QuizService
	codes    CodeResolver
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, codes CodeResolver) *WSHandler {
	return &WSHandler{
		service: service,
		codes:   codes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	ParticipantID string              `json:"participantId"`
	State         domain.SessionState `json:"state"`
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// ServeWS upgrades player connections and wires them into the quiz use cases.
// Players name the quiz either by quizId or by its join code.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	quizID := query.Get("quizId")
	userID := query.Get("userId")
	displayName := query.Get("name")
	if code := query.Get("code"); quizID == "" && code != "" && h.codes != nil {
		resolved, err := h.codes.ResolveCode(r.Context(), code)
		if err != nil {
			http.Error(w, "unknown join code", http.StatusNotFound)
			return
		}
		quizID = resolved
	}
	if quizID == "" || displayName == "" {
		http.Error(w, "missing quizId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	participantID, state, err := h.service.Join(r.Context(), quizID, userID, displayName)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), quizID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()
	// the player keeps their score; rejoining with the same userId reconnects them
	defer h.service.Disconnect(r.Context(), quizID, participantID)

	pump(conn, updates, outboundMessage{Type: "joined", Payload: joinedPayload{ParticipantID: participantID, State: state}},
		func(inbound inboundMessage) []outboundMessage {
			switch inbound.Type {
			case "answer":
				var payload domain.AnswerSubmission
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					return []outboundMessage{{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}}
				}
				result, err := h.service.SubmitAnswer(r.Context(), quizID, participantID, payload)
				if err != nil {
					return []outboundMessage{errorMessage(err)}
				}
				return []outboundMessage{{Type: "answerResult", Payload: result}}
			default:
				return []outboundMessage{{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}}
			}
		})
}

// pump runs the read loop on the calling goroutine and serializes every write through one writer,
// so state updates and replies never write to conn concurrently.
func pump(conn *websocket.Conn, updates <-chan domain.SessionState, first outboundMessage, handle func(inboundMessage) []outboundMessage) {
	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// keep draining so producers never block on a dead socket
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- first

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range handle(inbound) {
			send <- msg
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
