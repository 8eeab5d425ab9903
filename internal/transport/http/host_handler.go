package http

import (
	"log"
	"net/http"
)

// ServeHostWS upgrades a host connection; the host drives rounds but is not a participant.
func (h *WSHandler) ServeHostWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	state, err := h.service.Open(r.Context(), quizID)
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

	pump(conn, updates, outboundMessage{Type: "opened", Payload: state}, func(inbound inboundMessage) []outboundMessage {
		ctx := r.Context()
		switch inbound.Type {
		case "start":
			if _, err := h.service.Start(ctx, quizID); err != nil {
				return []outboundMessage{errorMessage(err)}
			}
			return nil
		case "next":
			if _, err := h.service.NextQuestion(ctx, quizID); err != nil {
				return []outboundMessage{errorMessage(err)}
			}
			return nil
		case "reveal":
			summary, err := h.service.Reveal(ctx, quizID)
			if err != nil {
				return []outboundMessage{errorMessage(err)}
			}
			return []outboundMessage{{Type: "results", Payload: summary}}
		case "finish":
			podium, err := h.service.Finish(ctx, quizID)
			if err != nil {
				return []outboundMessage{errorMessage(err)}
			}
			return []outboundMessage{{Type: "podium", Payload: podium}}
		case "restart":
			if _, err := h.service.Restart(ctx, quizID); err != nil {
				return []outboundMessage{errorMessage(err)}
			}
			return nil
		default:
			return []outboundMessage{{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}}
		}
	})
}
