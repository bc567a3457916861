// Package api is the HTTP JSON client for the session service. It covers the
// player surface (/play/...) and the bearer-authenticated admin surface
// (/admin/...). All failures are classified through the errors package so
// polling loops can tell retryable transport faults from definitive answers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quizwire/quizwire/internal/domain"
	"github.com/quizwire/quizwire/internal/errors"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	// BaseURL of the session service, e.g. "http://localhost:5005".
	BaseURL string
	// Token is the admin bearer token. Play endpoints do not require it.
	Token string
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

type Client struct {
	base  string
	token string
	hc    *http.Client
}

func New(c Config) *Client {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		base:  strings.TrimRight(c.BaseURL, "/"),
		token: c.Token,
		hc:    hc,
	}
}

// Join registers a new player in a session. The service rejects the join if
// the session has already started.
func (c *Client) Join(ctx context.Context, sessionID int, name string) (int64, error) {
	in := struct {
		Name string `json:"name"`
	}{Name: name}

	var out struct {
		PlayerID int64 `json:"playerId"`
	}

	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/play/join/%d", sessionID), in, &out); err != nil {
		return 0, err
	}

	return out.PlayerID, nil
}

// Status reports whether the player's session has started.
func (c *Client) Status(ctx context.Context, playerID int64) (bool, error) {
	var out struct {
		Started bool `json:"started"`
	}

	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/play/%d/status", playerID), nil, &out); err != nil {
		return false, err
	}

	return out.Started, nil
}

// Question fetches the currently active question for the player.
func (c *Client) Question(ctx context.Context, playerID int64) (domain.Question, error) {
	var out struct {
		Question domain.Question `json:"question"`
	}

	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/play/%d/question", playerID), nil, &out); err != nil {
		return domain.Question{}, err
	}

	return out.Question, nil
}

// SubmitAnswer overwrites the player's full selection for the open question.
// Submissions are idempotent, last write wins.
func (c *Client) SubmitAnswer(ctx context.Context, playerID int64, answerIDs []int64) error {
	in := struct {
		Answers []int64 `json:"answers"`
	}{Answers: answerIDs}

	return c.do(ctx, http.MethodPut, fmt.Sprintf("/play/%d/answer", playerID), in, nil)
}

// CorrectAnswers fetches the correct answer set for the just-closed question.
// Only available after the question deadline.
func (c *Client) CorrectAnswers(ctx context.Context, playerID int64) ([]int64, error) {
	var out struct {
		Answers []int64 `json:"answers"`
	}

	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/play/%d/answer", playerID), nil, &out); err != nil {
		return nil, err
	}

	return out.Answers, nil
}

// Results fetches the final per-player results. Only available once the
// session has ended.
func (c *Client) Results(ctx context.Context, playerID int64) ([]domain.PlayerResult, error) {
	var out []domain.PlayerResult

	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/play/%d/results", playerID), nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Mutate applies an admin state transition to a game's session. For START the
// returned session id identifies the created session; for ADVANCE and END it
// is zero.
func (c *Client) Mutate(ctx context.Context, gameID string, mutation domain.Mutation) (int, error) {
	in := struct {
		MutationType domain.Mutation `json:"mutationType"`
	}{MutationType: mutation}

	var out struct {
		Data struct {
			SessionID int `json:"sessionId"`
		} `json:"data"`
	}

	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/admin/game/%s/mutate", gameID), in, &out); err != nil {
		return 0, err
	}

	return out.Data.SessionID, nil
}

// SessionStatus fetches the admin view of a session.
func (c *Client) SessionStatus(ctx context.Context, sessionID int) (domain.SessionStatus, error) {
	var out struct {
		Results domain.SessionStatus `json:"results"`
	}

	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/admin/session/%d/status", sessionID), nil, &out); err != nil {
		return domain.SessionStatus{}, err
	}

	return out.Results, nil
}

// SessionResults fetches the full results of a finished session.
func (c *Client) SessionResults(ctx context.Context, sessionID int) ([]domain.PlayerResult, error) {
	var out struct {
		Results []domain.PlayerResult `json:"results"`
	}

	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/admin/session/%d/results", sessionID), nil, &out); err != nil {
		return nil, err
	}

	return out.Results, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Internal(fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return errors.Internal(fmt.Errorf("build request: %w", err))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("%s %s", method, path),
			errors.WithCause(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("%s %s: read body", method, path),
			errors.WithCause(err))
	}

	if resp.StatusCode >= 300 {
		msg := serviceError(raw)
		return errors.FromHTTPStatus(resp.StatusCode,
			errors.WithMessagef("%s %s: %s", method, path, msg))
	}

	if out == nil {
		return nil
	}

	// An unexpected shape fails closed rather than rendering partial state.
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Internal(fmt.Errorf("%s %s: malformed payload: %w", method, path, err))
	}

	return nil
}

func serviceError(raw []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		return e.Error
	}

	if len(raw) > 120 {
		raw = raw[:120]
	}
	return string(raw)
}
