package domain

const (
	EventNamePhaseChanged    = "play.phase_changed"
	EventNameQuestionChanged = "play.question_changed"
	EventNameRevealed        = "play.revealed"
	EventNameFinished        = "play.finished"
)

type EventPhaseChanged struct {
	SessionID int
	From      Phase
	To        Phase
}

func (EventPhaseChanged) Name() string { return EventNamePhaseChanged }

type EventQuestionChanged struct {
	SessionID int
	Question  Question
}

func (EventQuestionChanged) Name() string { return EventNameQuestionChanged }

type EventRevealed struct {
	SessionID      int
	CorrectAnswers []int64
}

func (EventRevealed) Name() string { return EventNameRevealed }

type EventFinished struct {
	SessionID int
	Results   []PlayerResult
}

func (EventFinished) Name() string { return EventNameFinished }
