package domain

import "time"

// Participant represents a joined player, their accumulated score and per-round answers.
type Participant struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	TotalScore int         `json:"totalScore"`
	Answers    map[int]int `json:"answers"` // question index -> option index; absent means unanswered
	JoinedAt   time.Time   `json:"joinedAt"`
	Connected  bool        `json:"connected"`
}

// Answer returns the option selected for a round, if any.
func (p Participant) Answer(questionIndex int) (int, bool) {
	option, ok := p.Answers[questionIndex]
	return option, ok
}

// Clone returns a copy that shares no memory with p.
func (p Participant) Clone() Participant {
	out := p
	out.Answers = make(map[int]int, len(p.Answers))
	for k, v := range p.Answers {
		out.Answers[k] = v
	}
	return out
}

// Question models an MCQ question; CorrectOptionIndex points into Options.
type Question struct {
	ID                 string   `json:"id"`
	Prompt             string   `json:"prompt"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	Points             int      `json:"points"` // defaults to 1 if zero
	Explanation        string   `json:"explanation,omitempty"`
}

// Value is the number of points awarded for a correct answer.
func (q Question) Value() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Quiz is a collection of questions. Code is the short join code players type in.
type Quiz struct {
	ID        string     `json:"id"`
	Code      string     `json:"code,omitempty"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Tally holds per-option vote counts for one round.
type Tally struct {
	Counts []int `json:"counts"`
	Total  int   `json:"total"`
}

// OptionResult is one row of a round summary.
type OptionResult struct {
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Text       string  `json:"text"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Correct    bool    `json:"correct"`
}

// RoundSummary is the response distribution for a question.
type RoundSummary struct {
	QuizID             string         `json:"quizId"`
	QuestionIndex      int            `json:"questionIndex"`
	Prompt             string         `json:"prompt"`
	CorrectOptionIndex int            `json:"correctOptionIndex"`
	Options            []OptionResult `json:"options"`
	TotalVotes         int            `json:"totalVotes"`
}

// LeaderboardEntry is a ranked view of a participant.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard for a quiz session.
type Leaderboard struct {
	QuizID    string             `json:"quizId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// PodiumSlot is a top-3 placement.
type PodiumSlot struct {
	LeaderboardEntry
	Label string `json:"label"`
}

// Podium groups the top three into display slots; Center holds rank 1, Left rank 2, Right rank 3.
type Podium struct {
	Center *PodiumSlot         `json:"center,omitempty"`
	Left   *PodiumSlot         `json:"left,omitempty"`
	Right  *PodiumSlot         `json:"right,omitempty"`
	Rest   []LeaderboardEntry `json:"rest"`
}

// Phase is the lifecycle stage of a live session.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseQuestion Phase = "question"
	PhaseReveal   Phase = "reveal"
	PhaseFinished Phase = "finished"
)

// QuestionView is what players see while a round is open; it omits the answer.
type QuestionView struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

// SessionState is broadcast to subscribers on every change.
type SessionState struct {
	QuizID         string        `json:"quizId"`
	Phase          Phase         `json:"phase"`
	QuestionIndex  int           `json:"questionIndex"`
	TotalQuestions int           `json:"totalQuestions"`
	Question       *QuestionView `json:"question,omitempty"`
	Leaderboard    Leaderboard   `json:"leaderboard"`
}

// SessionSnapshot is the full persisted state of a live session.
type SessionSnapshot struct {
	QuizID        string        `json:"quizId"`
	Phase         Phase         `json:"phase"`
	QuestionIndex int           `json:"questionIndex"`
	Participants  []Participant `json:"participants"`
	TakenAt       time.Time     `json:"takenAt"`
}

// AnswerSubmission models the scoring signal from clients.
type AnswerSubmission struct {
	QuestionIndex int `json:"questionIndex"`
	OptionIndex   int `json:"optionIndex"`
}

// AnswerResult summarizes the outcome of a submission for a single user.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
	Awarded       int  `json:"awarded"`
	TotalScore    int  `json:"totalScore"`
}

// GameResult is the persisted outcome of a finished session.
type GameResult struct {
	ID         string             `json:"id"`
	QuizID     string             `json:"quizId"`
	Standings  []LeaderboardEntry `json:"standings"`
	FinishedAt time.Time          `json:"finishedAt"`
}
