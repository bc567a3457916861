// Package admin drives a session from the administrator side: starting a
// game, advancing the question pointer the players poll against, ending the
// session, and aggregating results into rankings and per-question stats.
package admin

import (
	"context"
	"log/slog"

	"github.com/quizwire/quizwire/internal/api"
	"github.com/quizwire/quizwire/internal/domain"
	"github.com/quizwire/quizwire/internal/errors"
	"github.com/quizwire/quizwire/internal/score"
	"github.com/quizwire/quizwire/internal/store"
)

const defaultTopN = 5

type Config struct {
	API   *api.Client
	Store *store.Store
	// TopN bounds the ranking, default 5.
	TopN int
}

type Controller struct {
	c Config
}

func NewController(c Config) *Controller {
	if c.TopN <= 0 {
		c.TopN = defaultTopN
	}
	return &Controller{c: c}
}

// Start creates a new session for a game and remembers the game-to-session
// mapping locally so later commands can address the session by game id.
func (a *Controller) Start(ctx context.Context, gameID string) (int, error) {
	sessionID, err := a.c.API.Mutate(ctx, gameID, domain.MutationStart)
	if err != nil {
		return 0, err
	}

	if a.c.Store != nil {
		if err := a.c.Store.SaveSession(gameID, sessionID); err != nil {
			slog.Warn("admin: persist session mapping failed", "game", gameID, "error", err)
		}
	}

	slog.Info("admin: session started", "game", gameID, "session", sessionID)
	return sessionID, nil
}

// Advance moves the session's question pointer forward by one.
func (a *Controller) Advance(ctx context.Context, gameID string) error {
	_, err := a.c.API.Mutate(ctx, gameID, domain.MutationAdvance)
	return err
}

// Stop ends the session and immediately fetches the final results.
func (a *Controller) Stop(ctx context.Context, gameID string) ([]domain.PlayerResult, error) {
	if _, err := a.c.API.Mutate(ctx, gameID, domain.MutationEnd); err != nil {
		return nil, err
	}

	sessionID, ok := a.SessionFor(gameID)
	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no known session for game %s", gameID))
	}

	return a.Results(ctx, sessionID)
}

// Status fetches the live session state.
func (a *Controller) Status(ctx context.Context, sessionID int) (domain.SessionStatus, error) {
	return a.c.API.SessionStatus(ctx, sessionID)
}

// Results fetches the full results of a finished session.
func (a *Controller) Results(ctx context.Context, sessionID int) ([]domain.PlayerResult, error) {
	return a.c.API.SessionResults(ctx, sessionID)
}

// SessionFor resolves a game id to its most recently started session.
func (a *Controller) SessionFor(gameID string) (int, bool) {
	if a.c.Store == nil {
		return 0, false
	}
	return a.c.Store.SessionFor(gameID)
}

// Rankings returns the top players by correct-answer count, ties in stable
// order.
func (a *Controller) Rankings(results []domain.PlayerResult) []score.RankEntry {
	return score.Top(score.Rank(results), a.c.TopN)
}

// Stats returns per-question aggregates over all players.
func (a *Controller) Stats(results []domain.PlayerResult) []score.QuestionStat {
	return score.QuestionStats(results)
}
