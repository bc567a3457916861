package quizd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/quizwire/quizwire/internal/errors"
)

// RedisSessionStore keeps session state in Redis so a quizd restart does not
// drop live sessions. Sessions are stored as JSON blobs, with small index
// keys for player and game lookups.
type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSessionStore(client redis.UniversalClient, prefix string) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: prefix}
}

func (r *RedisSessionStore) Put(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session %d: %w", s.ID, err)
	}

	return r.client.Set(ctx, r.sessionKey(s.ID), raw, 0).Err()
}

func (r *RedisSessionStore) Get(ctx context.Context, id int) (*Session, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse session %d: %w", id, err)
	}
	return &s, nil
}

func (r *RedisSessionStore) ByPlayer(ctx context.Context, playerID int64) (*Session, error) {
	raw, err := r.client.Get(ctx, r.playerKey(playerID)).Result()
	if err == redis.Nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("player %d not found", playerID))
	}
	if err != nil {
		return nil, fmt.Errorf("get player index %d: %w", playerID, err)
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("parse player index %d: %w", playerID, err)
	}
	return r.Get(ctx, id)
}

func (r *RedisSessionStore) IndexPlayer(ctx context.Context, playerID int64, sessionID int) error {
	return r.client.Set(ctx, r.playerKey(playerID), strconv.Itoa(sessionID), 0).Err()
}

func (r *RedisSessionStore) SetCurrent(ctx context.Context, gameID string, sessionID int) error {
	return r.client.Set(ctx, r.gameKey(gameID), strconv.Itoa(sessionID), 0).Err()
}

func (r *RedisSessionStore) Current(ctx context.Context, gameID string) (int, error) {
	raw, err := r.client.Get(ctx, r.gameKey(gameID)).Result()
	if err == redis.Nil {
		return 0, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no session for game %s", gameID))
	}
	if err != nil {
		return 0, fmt.Errorf("get current session for game %s: %w", gameID, err)
	}

	return strconv.Atoi(raw)
}

func (r *RedisSessionStore) sessionKey(id int) string {
	return fmt.Sprintf("%s:session:%d", r.prefix, id)
}

func (r *RedisSessionStore) playerKey(id int64) string {
	return fmt.Sprintf("%s:player:%d", r.prefix, id)
}

func (r *RedisSessionStore) gameKey(id string) string {
	return fmt.Sprintf("%s:game:%s", r.prefix, id)
}
