// Package store persists the small amount of client-local state that must
// survive a restart: which player identity belongs to which session (so a
// relaunch rejoins instead of duplicating the player), cached results of
// finished sessions, and the game-to-session mapping the admin side uses.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/quizwire/quizwire/internal/domain"
)

type state struct {
	// Players maps session id -> player id.
	Players map[string]int64 `json:"players"`
	// Results maps session id -> cached final results.
	Results map[string][]domain.PlayerResult `json:"results"`
	// Sessions maps game id -> session id.
	Sessions map[string]int `json:"sessions"`
}

// Store is a file-backed key-value state, written atomically on every change.
type Store struct {
	path string

	mu sync.Mutex
	st state
}

// Open loads the state file at path, creating an empty state if the file does
// not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		st: state{
			Players:  make(map[string]int64),
			Results:  make(map[string][]domain.PlayerResult),
			Sessions: make(map[string]int),
		},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &s.st); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", path, err)
	}

	return s, nil
}

// PlayerFor returns the stored player identity for a session, if any.
func (s *Store) PlayerFor(sessionID int) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.st.Players[key(sessionID)]
	return id, ok
}

// SavePlayer records the player identity issued for a session.
func (s *Store) SavePlayer(sessionID int, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.Players[key(sessionID)] = playerID
	return s.flushLocked()
}

// ResultsFor returns the cached results of a finished session, if any.
func (s *Store) ResultsFor(sessionID int) ([]domain.PlayerResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.st.Results[key(sessionID)]
	return r, ok
}

// SaveResults caches the final results of a finished session.
func (s *Store) SaveResults(sessionID int, results []domain.PlayerResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.Results[key(sessionID)] = results
	return s.flushLocked()
}

// SessionFor returns the session most recently started for a game, if any.
func (s *Store) SessionFor(gameID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.st.Sessions[gameID]
	return id, ok
}

// SaveSession records the session started for a game.
func (s *Store) SaveSession(gameID string, sessionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.Sessions[gameID] = sessionID
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	raw, err := json.MarshalIndent(s.st, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("store: mkdir %s: %w", dir, err)
		}
	}

	// Write-then-rename keeps a crash from corrupting the previous state.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("store: rename %s: %w", tmp, err)
	}

	return nil
}

func key(sessionID int) string {
	return strconv.Itoa(sessionID)
}
