package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in quiz")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question index outside the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option index is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrQuestionClosed is returned for answers to a round that is not open.
	ErrQuestionClosed = errors.New("question is not open for answers")
	// ErrAlreadyAnswered is returned on a second answer in the same round.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNoMoreQuestions is returned when the host advances past the last question.
	ErrNoMoreQuestions = errors.New("no more questions")
	// ErrAlreadyStarted is returned when the host starts a session twice.
	ErrAlreadyStarted = errors.New("quiz session already started")
	// ErrSessionFinished is returned for host actions after the game ended.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrCodeTaken is returned when a join code already belongs to another quiz.
	ErrCodeTaken = errors.New("join code already in use")
	// ErrInvalidQuiz indicates quiz content failed validation.
	ErrInvalidQuiz = errors.New("invalid quiz")
)
