package quizd

import (
	"time"

	"github.com/quizwire/quizwire/internal/domain"
)

// Session is the server-side state of one playthrough. Position is -1 while
// the lobby is open; every ADVANCE moves it forward and stamps
// QuestionStartedAt, which is what players reconcile their countdowns
// against. The struct is plain data so stores can serialize it as-is.
type Session struct {
	ID                int       `json:"id"`
	GameID            string    `json:"gameId"`
	Active            bool      `json:"active"`
	Position          int       `json:"position"`
	QuestionStartedAt time.Time `json:"questionStartedAt"`
	Players           []*Player `json:"players"`
	NextPlayerID      int64     `json:"nextPlayerId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Player is one participant's identity and per-question history within a
// session. Identities are never reused across sessions.
type Player struct {
	ID      int64                 `json:"id"`
	Name    string                `json:"name"`
	Answers []domain.AnswerRecord `json:"answers"`
}

func (s *Session) player(id int64) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) playerNames() []string {
	names := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		names = append(names, p.Name)
	}
	return names
}

// backfill makes sure every player has an answer record for the question at
// the current position before the session moves on, so results line up by
// question index. Players who never answered keep a nil AnsweredAt; the
// question start time is recorded so aggregates can still see the question
// was posed.
func (s *Session) backfill() {
	if s.Position < 0 {
		return
	}

	started := s.QuestionStartedAt
	for _, p := range s.Players {
		for len(p.Answers) <= s.Position {
			p.Answers = append(p.Answers, domain.AnswerRecord{
				QuestionStartedAt: &started,
			})
		}
	}
}

func (s *Session) results() []domain.PlayerResult {
	out := make([]domain.PlayerResult, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, domain.PlayerResult{
			Name:    p.Name,
			Answers: p.Answers,
		})
	}
	return out
}

func sameAnswerSet(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}

	seen := make(map[int64]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			return false
		}
	}
	return true
}
