package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	base := "ws" + server.URL[len("http"):]

	host := dial(t, base+"/ws/host?quizId=quiz-1")
	defer host.Close()
	readUntil(t, host, "opened")

	player := dial(t, base+"/ws?quizId=quiz-1&userId=u1&name=Alice")
	defer player.Close()
	_, joined := readUntil(t, player, "joined")
	if joined["participantId"] != "u1" {
		t.Fatalf("expected participant u1, got %v", joined["participantId"])
	}

	if err := host.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	// the player sees the first question open
	waitForState(t, player, func(state map[string]any) bool { return state["phase"] == string(domain.PhaseQuestion) })

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionIndex": 0,
			"optionIndex":   1,
		},
	}
	if err := player.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, result := readUntil(t, player, "answerResult")
	if result["correct"] != true || result["totalScore"] != float64(1) {
		t.Fatalf("unexpected answer result %v", result)
	}

	if err := host.WriteJSON(map[string]any{"type": "reveal"}); err != nil {
		t.Fatalf("write reveal: %v", err)
	}
	_, summary := readUntil(t, host, "results")
	if summary["totalVotes"] != float64(1) {
		t.Fatalf("unexpected summary %v", summary)
	}

	if err := host.WriteJSON(map[string]any{"type": "finish"}); err != nil {
		t.Fatalf("write finish: %v", err)
	}
	_, podium := readUntil(t, host, "podium")
	center, ok := podium["center"].(map[string]any)
	if !ok || center["userId"] != "u1" || center["label"] != "Winner" {
		t.Fatalf("unexpected podium %v", podium)
	}
}

func TestWebSocketReconnectKeepsScore(t *testing.T) {
	server, service := newTestServer()
	defer server.Close()
	base := "ws" + server.URL[len("http"):]

	host := dial(t, base+"/ws/host?quizId=quiz-1")
	defer host.Close()
	readUntil(t, host, "opened")

	player := dial(t, base+"/ws?code=arith2&userId=u1&name=Alice")
	readUntil(t, player, "joined")
	if err := host.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	waitForState(t, player, func(state map[string]any) bool { return state["phase"] == string(domain.PhaseQuestion) })
	if err := player.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"questionIndex": 0, "optionIndex": 1}}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	readUntil(t, player, "answerResult")
	player.Close()

	again := dial(t, base+"/ws?quizId=quiz-1&userId=u1&name=Alice")
	defer again.Close()
	readUntil(t, again, "joined")

	lb, err := service.Leaderboard(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].UserID != "u1" || lb.Entries[0].Score != 1 {
		t.Fatalf("expected the score to survive the reconnect, got %+v", lb.Entries)
	}
	summary, err := service.Results(context.Background(), "quiz-1", 0)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if summary.TotalVotes != 1 {
		t.Fatalf("expected the vote to survive the reconnect, got %+v", summary)
	}
}

func TestWebSocketHostRestartsFinishedGame(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()
	base := "ws" + server.URL[len("http"):]

	host := dial(t, base+"/ws/host?quizId=quiz-1")
	defer host.Close()
	readUntil(t, host, "opened")
	player := dial(t, base+"/ws?quizId=quiz-1&userId=u1&name=Alice")
	defer player.Close()
	readUntil(t, player, "joined")

	for _, step := range []string{"start", "reveal", "finish"} {
		if err := host.WriteJSON(map[string]any{"type": step}); err != nil {
			t.Fatalf("write %s: %v", step, err)
		}
	}
	readUntil(t, host, "podium")
	waitForState(t, player, func(state map[string]any) bool { return state["phase"] == string(domain.PhaseFinished) })

	if err := host.WriteJSON(map[string]any{"type": "restart"}); err != nil {
		t.Fatalf("write restart: %v", err)
	}
	waitForState(t, player, func(state map[string]any) bool { return state["phase"] == string(domain.PhaseLobby) })

	if err := host.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	state := waitForState(t, player, func(state map[string]any) bool { return state["phase"] == string(domain.PhaseQuestion) })
	if state["questionIndex"] != float64(0) {
		t.Fatalf("expected the first question again, got %v", state["questionIndex"])
	}
}

func TestWebSocketUnknownJoinCode(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?code=NOPE99&name=Alice", nil)
	if err == nil {
		t.Fatalf("expected dial to fail for an unknown code")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?quizId=quiz-1", nil)
	if err == nil {
		t.Fatalf("expected dial to fail without a name")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if msg.Type == "error" {
			t.Fatalf("unexpected error message %v", msg.Payload)
		}
		if msg.Type == want {
			return msg.Type, msg.Payload
		}
	}
	t.Fatalf("no %s message received", want)
	return "", nil
}

// waitForState reads state updates until one satisfies ok.
func waitForState(t *testing.T, conn *websocket.Conn, ok func(map[string]any) bool) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		_, state := readUntil(t, conn, "state")
		if ok(state) {
			return state
		}
	}
	t.Fatalf("expected state not received")
	return nil
}

func newTestServer() (*httptest.Server, *app.QuizService) {
	loader := memory.NewStaticQuizLoader(sampleQuiz())
	quizRepo := memory.NewQuizRepository(loader, time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(), quizRepo)
	return httptest.NewServer(NewRouter(service, Stores{Quizzes: loader, Cache: quizRepo})), service
}

func sampleQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Code:  "ARITH2",
			Title: "Arithmetic",
			Questions: []domain.Question{
				{
					ID:                 "q1",
					Prompt:             "What is 2 + 2?",
					Options:            []string{"3", "4", "5"},
					CorrectOptionIndex: 1,
					Points:             1,
				},
			},
		},
	}
}
