package quizd

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresGameSource loads games from the platform database. Questions are
// stored as a JSONB document per game, matching the authored shape.
type PostgresGameSource struct {
	db *pgxpool.Pool
}

func NewPostgresGameSource(db *pgxpool.Pool) *PostgresGameSource {
	return &PostgresGameSource{db: db}
}

func (p *PostgresGameSource) Load(ctx context.Context) ([]Game, error) {
	const stmt = `SELECT game_id, name, questions FROM games ORDER BY name;`

	rows, err := p.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}

	games, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (Game, error) {
		var (
			g   Game
			raw []byte
		)
		if err := r.Scan(&g.ID, &g.Name, &raw); err != nil {
			return Game{}, err
		}
		if err := json.Unmarshal(raw, &g.Questions); err != nil {
			return Game{}, fmt.Errorf("game %s: parse questions: %w", g.ID, err)
		}
		return g, nil
	})
	if err != nil {
		return nil, err
	}

	return games, nil
}

// Archive persists finished sessions into the owning game's history.
type Archive struct {
	db *pgxpool.Pool
}

func NewArchive(db *pgxpool.Pool) *Archive {
	return &Archive{db: db}
}

func (a *Archive) SaveSession(ctx context.Context, s *Session, finishedAt time.Time) (err error) {
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const stmt = `
INSERT INTO session_archive (session_id, game_id, player_name, answers, finished_at)
VALUES ($1, $2, $3, $4, $5);`

	for _, p := range s.Players {
		answers, err := json.Marshal(p.Answers)
		if err != nil {
			return fmt.Errorf("marshal answers: %w", err)
		}

		if _, err := tx.Exec(ctx, stmt, s.ID, s.GameID, p.Name, answers, finishedAt); err != nil {
			return fmt.Errorf("insert archive row: %w", err)
		}
	}

	return tx.Commit(ctx)
}
