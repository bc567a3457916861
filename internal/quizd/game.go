package quizd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/quizwire/quizwire/internal/domain"
)

// Game is authored quiz content. quizd serves games read-only; authoring and
// storage belong to the surrounding platform.
type Game struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Questions []GameQuestion `json:"questions"`
}

// GameQuestion is the authored form of a question: the public view plus the
// correct answer set, which players only ever see through the reveal
// endpoint.
type GameQuestion struct {
	Text       string              `json:"text"`
	Type       domain.QuestionType `json:"type"`
	Answers    []domain.Answer     `json:"answers"`
	CorrectIDs []int64             `json:"correctIds"`
	Duration   int                 `json:"duration"`
	Points     float64             `json:"points"`
	Image      string              `json:"image,omitempty"`
	Video      string              `json:"video,omitempty"`
}

// view strips the correct answer set and attaches the authoritative start
// timestamp of the active question.
func (q GameQuestion) view(s *Session) domain.Question {
	return domain.Question{
		Text:      q.Text,
		Type:      q.Type,
		Answers:   q.Answers,
		Duration:  q.Duration,
		Points:    q.Points,
		Image:     q.Image,
		Video:     q.Video,
		StartedAt: s.QuestionStartedAt,
	}
}

// GameSource loads the set of playable games at startup.
type GameSource interface {
	Load(ctx context.Context) ([]Game, error)
}

// FileGameSource reads games from a JSON file.
type FileGameSource struct {
	Path string
}

func (f FileGameSource) Load(_ context.Context) ([]Game, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read games file: %w", err)
	}

	var games []Game
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, fmt.Errorf("parse games file %s: %w", f.Path, err)
	}

	for i := range games {
		if games[i].ID == "" {
			games[i].ID = uuid.NewString()
		}
	}

	return games, nil
}

// StaticGameSource serves a fixed set of games; used in tests and as the
// fallback when no games file is configured.
type StaticGameSource struct {
	Games []Game
}

func (s StaticGameSource) Load(_ context.Context) ([]Game, error) {
	return s.Games, nil
}
