package quizd

import (
	"context"
	"sync"

	"github.com/quizwire/quizwire/internal/errors"
)

// SessionStore persists live session state. The service serializes all
// mutations, so implementations only need atomicity per call.
type SessionStore interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id int) (*Session, error)
	// ByPlayer resolves the session a player id belongs to.
	ByPlayer(ctx context.Context, playerID int64) (*Session, error)
	IndexPlayer(ctx context.Context, playerID int64, sessionID int) error
	// Current tracks the session most recently started for a game.
	SetCurrent(ctx context.Context, gameID string, sessionID int) error
	Current(ctx context.Context, gameID string) (int, error)
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int]*Session
	players  map[int64]int
	current  map[string]int
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[int]*Session),
		players:  make(map[int64]int),
		current:  make(map[string]int),
	}
}

func (m *MemorySessionStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id int) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session %d not found", id))
	}
	return s, nil
}

func (m *MemorySessionStore) ByPlayer(ctx context.Context, playerID int64) (*Session, error) {
	m.mu.RLock()
	id, ok := m.players[playerID]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("player %d not found", playerID))
	}
	return m.Get(ctx, id)
}

func (m *MemorySessionStore) IndexPlayer(_ context.Context, playerID int64, sessionID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[playerID] = sessionID
	return nil
}

func (m *MemorySessionStore) SetCurrent(_ context.Context, gameID string, sessionID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current[gameID] = sessionID
	return nil
}

func (m *MemorySessionStore) Current(_ context.Context, gameID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.current[gameID]
	if !ok {
		return 0, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no session for game %s", gameID))
	}
	return id, nil
}
