// Package quizd is the reference session service: it answers exactly the
// wire contract the play machine and admin controller are written against.
// Game authoring, accounts, and media belong to the wider platform; quizd
// serves read-only games and owns only live session state.
package quizd

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/quizwire/quizwire/internal/domain"
	"github.com/quizwire/quizwire/internal/errors"
)

type ServiceConfig struct {
	Store SessionStore
	Games []Game
	// Archive receives finished sessions; optional.
	Archive *Archive
	// Now is injectable for deterministic tests.
	Now func() time.Time
}

type Service struct {
	mu      sync.Mutex
	store   SessionStore
	games   map[string]Game
	archive *Archive
	now     func() time.Time
}

func NewService(c ServiceConfig) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}

	games := make(map[string]Game, len(c.Games))
	for _, g := range c.Games {
		games[g.ID] = g
	}

	return &Service{
		store:   c.Store,
		games:   games,
		archive: c.Archive,
		now:     c.Now,
	}
}

// Games lists the playable games.
func (s *Service) Games() []Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	return out
}

// Mutate applies an admin transition to a game's current session. START
// returns the new session id; ADVANCE and END return zero.
func (s *Service) Mutate(ctx context.Context, gameID string, mutation domain.Mutation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch mutation {
	case domain.MutationStart:
		return s.startLocked(ctx, gameID)
	case domain.MutationAdvance:
		return 0, s.advanceLocked(ctx, gameID)
	case domain.MutationEnd:
		sess, err := s.currentLocked(ctx, gameID)
		if err != nil {
			return 0, err
		}
		if !sess.Active {
			return 0, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("session %d is not active", sess.ID))
		}
		return 0, s.endLocked(ctx, sess)
	default:
		return 0, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unknown mutation %q", mutation))
	}
}

func (s *Service) startLocked(ctx context.Context, gameID string) (int, error) {
	if _, ok := s.games[gameID]; !ok {
		return 0, errors.New(errors.CodeNotFound,
			errors.WithMessagef("game %s not found", gameID))
	}

	id := s.newSessionID(ctx)
	sess := &Session{
		ID:        id,
		GameID:    gameID,
		Active:    true,
		Position:  -1,
		CreatedAt: s.now(),
	}

	if err := s.store.Put(ctx, sess); err != nil {
		return 0, errors.Internal(err)
	}
	if err := s.store.SetCurrent(ctx, gameID, id); err != nil {
		return 0, errors.Internal(err)
	}

	metricSessionsStarted.Inc()
	slog.Info("quizd: session started", "game", gameID, "session", id)
	return id, nil
}

func (s *Service) advanceLocked(ctx context.Context, gameID string) error {
	sess, err := s.currentLocked(ctx, gameID)
	if err != nil {
		return err
	}
	if !sess.Active {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("session %d is not active", sess.ID))
	}

	game := s.games[sess.GameID]

	sess.backfill()
	sess.Position++

	// Advancing past the last question ends the session.
	if sess.Position >= len(game.Questions) {
		sess.Position = len(game.Questions) - 1
		return s.endLocked(ctx, sess)
	}

	sess.QuestionStartedAt = s.now()
	if err := s.store.Put(ctx, sess); err != nil {
		return errors.Internal(err)
	}

	slog.Info("quizd: session advanced", "session", sess.ID, "position", sess.Position)
	return nil
}

func (s *Service) endLocked(ctx context.Context, sess *Session) error {
	sess.backfill()
	sess.Active = false

	if err := s.store.Put(ctx, sess); err != nil {
		return errors.Internal(err)
	}

	if s.archive != nil {
		if err := s.archive.SaveSession(ctx, sess, s.now()); err != nil {
			slog.Warn("quizd: archive session failed", "session", sess.ID, "error", err)
		}
	}

	slog.Info("quizd: session ended", "session", sess.ID)
	return nil
}

// Join registers a new player. Joining is only possible while the lobby is
// open; once the first question starts, the session is closed to newcomers.
func (s *Service) Join(ctx context.Context, sessionID int, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return 0, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("player name must not be empty"))
	}

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if !sess.Active {
		return 0, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("session %d has ended", sessionID))
	}
	if sess.Position >= 0 {
		return 0, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("session %d has already started", sessionID))
	}

	playerID := int64(sess.ID)*1000 + sess.NextPlayerID
	sess.NextPlayerID++
	sess.Players = append(sess.Players, &Player{ID: playerID, Name: name})

	if err := s.store.Put(ctx, sess); err != nil {
		return 0, errors.Internal(err)
	}
	if err := s.store.IndexPlayer(ctx, playerID, sess.ID); err != nil {
		return 0, errors.Internal(err)
	}

	metricPlayersJoined.Inc()
	slog.Info("quizd: player joined", "session", sess.ID, "player", playerID, "name", name)
	return playerID, nil
}

// Status reports whether the player's session has started. Once the session
// ends, the endpoint answers 4xx; polling clients read that as the
// termination signal.
func (s *Service) Status(ctx context.Context, playerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.store.ByPlayer(ctx, playerID)
	if err != nil {
		return false, err
	}
	if !sess.Active {
		return false, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("session %d has ended", sess.ID))
	}

	return sess.Position >= 0, nil
}

// ActiveQuestion returns the current question for the player's session,
// without the correct answer set.
func (s *Service) ActiveQuestion(ctx context.Context, playerID int64) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, q, err := s.activeQuestionLocked(ctx, playerID)
	if err != nil {
		return domain.Question{}, err
	}

	return q.view(sess), nil
}

// SubmitAnswers overwrites the player's selection for the open question.
// Last write wins; the answer timestamp moves with every overwrite. Closed
// questions reject further writes.
func (s *Service) SubmitAnswers(ctx context.Context, playerID int64, answerIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, q, err := s.activeQuestionLocked(ctx, playerID)
	if err != nil {
		return err
	}

	now := s.now()
	if now.After(sess.QuestionStartedAt.Add(time.Duration(q.Duration) * time.Second)) {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("question %d is closed", sess.Position))
	}

	p := sess.player(playerID)
	if p == nil {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("player %d not found in session %d", playerID, sess.ID))
	}

	for len(p.Answers) <= sess.Position {
		p.Answers = append(p.Answers, domain.AnswerRecord{})
	}

	started := sess.QuestionStartedAt
	p.Answers[sess.Position] = domain.AnswerRecord{
		AnswerIDs:         append([]int64(nil), answerIDs...),
		Correct:           sameAnswerSet(answerIDs, q.CorrectIDs),
		AnsweredAt:        &now,
		QuestionStartedAt: &started,
	}

	if err := s.store.Put(ctx, sess); err != nil {
		return errors.Internal(err)
	}

	metricAnswersSubmitted.Inc()
	return nil
}

// CorrectAnswers reveals the correct answer set of the current question, but
// only after its deadline has passed.
func (s *Service) CorrectAnswers(ctx context.Context, playerID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, q, err := s.activeQuestionLocked(ctx, playerID)
	if err != nil {
		return nil, err
	}

	deadline := sess.QuestionStartedAt.Add(time.Duration(q.Duration) * time.Second)
	if s.now().Before(deadline) {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("question %d is still open", sess.Position))
	}

	return append([]int64(nil), q.CorrectIDs...), nil
}

// PlayerResults returns the per-player results of the player's session, once
// it has ended.
func (s *Service) PlayerResults(ctx context.Context, playerID int64) ([]domain.PlayerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.store.ByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if sess.Active {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("session %d is still active", sess.ID))
	}

	return sess.results(), nil
}

// AdminStatus returns the live state of a session.
func (s *Service) AdminStatus(ctx context.Context, sessionID int) (domain.SessionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return domain.SessionStatus{}, err
	}

	return domain.SessionStatus{
		Active:   sess.Active,
		Position: sess.Position,
		Players:  sess.playerNames(),
	}, nil
}

// AdminResults returns the full results of a finished session.
func (s *Service) AdminResults(ctx context.Context, sessionID int) ([]domain.PlayerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Active {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("session %d is still active", sessionID))
	}

	return sess.results(), nil
}

func (s *Service) currentLocked(ctx context.Context, gameID string) (*Session, error) {
	id, err := s.store.Current(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) activeQuestionLocked(ctx context.Context, playerID int64) (*Session, GameQuestion, error) {
	sess, err := s.store.ByPlayer(ctx, playerID)
	if err != nil {
		return nil, GameQuestion{}, err
	}
	if !sess.Active {
		return nil, GameQuestion{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("session %d has ended", sess.ID))
	}
	if sess.Position < 0 {
		return nil, GameQuestion{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("session %d has not started", sess.ID))
	}

	game, ok := s.games[sess.GameID]
	if !ok || sess.Position >= len(game.Questions) {
		return nil, GameQuestion{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no question at position %d", sess.Position))
	}

	return sess, game.Questions[sess.Position], nil
}

func (s *Service) newSessionID(ctx context.Context) int {
	for {
		id := rand.Intn(900000) + 100000
		if _, err := s.store.Get(ctx, id); err != nil {
			return id
		}
	}
}
