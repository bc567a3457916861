package domain

import "time"

// Phase is the player-side view of where a session is in its lifecycle.
type Phase string

const (
	PhaseJoin     Phase = "join"
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseReveal   Phase = "reveal"
	PhaseFinished Phase = "finished"
)

type QuestionType string

const (
	QuestionSingle    QuestionType = "single"
	QuestionMultiple  QuestionType = "multiple"
	QuestionJudgement QuestionType = "judgement"
)

// Answer is one selectable option of a question.
type Answer struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Question is the runtime view of the currently active question, as served to
// players. StartedAt is the authoritative server timestamp recorded when the
// question became active; it changes if and only if the active question
// changes, and is the sole signal used to detect a question switch.
type Question struct {
	Text      string       `json:"text"`
	Type      QuestionType `json:"type"`
	Answers   []Answer     `json:"answers"`
	Duration  int          `json:"duration"`
	Points    float64      `json:"points"`
	Image     string       `json:"image,omitempty"`
	Video     string       `json:"video,omitempty"`
	StartedAt time.Time    `json:"isoTimeLastQuestionStarted"`
}

// AnswerRecord is one player's submission for one question. AnswerIDs is
// mutable until the question closes; Correct is meaningful only after reveal.
type AnswerRecord struct {
	AnswerIDs         []int64    `json:"answers"`
	Correct           bool       `json:"correct"`
	AnsweredAt        *time.Time `json:"answeredAt"`
	QuestionStartedAt *time.Time `json:"questionStartedAt"`
}

// PlayerResult is one player's full per-question history, available once the
// session has ended.
type PlayerResult struct {
	Name    string         `json:"name"`
	Answers []AnswerRecord `json:"answers"`
}

// SessionStatus is the admin view of a live session. Position is an index
// into the game's question list, -1 while the lobby is open. Once Active
// turns false the position is frozen and results become available.
type SessionStatus struct {
	Active   bool     `json:"active"`
	Position int      `json:"position"`
	Players  []string `json:"players"`
}

// Mutation is an admin state transition applied to a game's session.
type Mutation string

const (
	MutationStart   Mutation = "START"
	MutationAdvance Mutation = "ADVANCE"
	MutationEnd     Mutation = "END"
)
