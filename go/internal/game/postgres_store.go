package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/gifmeananswer/server/go/internal/models"
)

// PostgresStore persists each game as a jsonb row with a TTL column, for
// deployments where several service instances share one session space.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  string // Postgres interval literal
}

// NewPostgresStore creates a Postgres-backed session store and ensures the
// games table exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	log.Info().Msg("initializing Postgres game store")

	s := &PostgresStore{
		pool: pool,
		ttl:  fmt.Sprintf("%d seconds", int(SessionTTL.Seconds())),
	}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate games table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS games (
            code       bigint PRIMARY KEY,
            data       jsonb NOT NULL,
            revision   integer NOT NULL,
            expires_at timestamptz NOT NULL
        )
    `)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, code int) (*models.Game, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
        SELECT data FROM games
        WHERE code = $1 AND expires_at > now()
    `, code).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSuchGame
	}
	if err != nil {
		return nil, fmt.Errorf("get game %d: %w", code, err)
	}

	var game models.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("unmarshal game %d: %w", code, err)
	}
	return &game, nil
}

func (s *PostgresStore) Set(ctx context.Context, game *models.Game) (*models.Game, error) {
	persisted := game.Clone()
	persisted.Revision++

	data, err := json.Marshal(persisted)
	if err != nil {
		return nil, fmt.Errorf("marshal game %d: %w", game.Code, err)
	}

	_, err = s.pool.Exec(ctx, `
        INSERT INTO games (code, data, revision, expires_at)
        VALUES ($1, $2, $3, now() + $4::interval)
        ON CONFLICT (code) DO UPDATE
        SET data = EXCLUDED.data,
            revision = EXCLUDED.revision,
            expires_at = EXCLUDED.expires_at
    `, persisted.Code, data, persisted.Revision, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("set game %d: %w", game.Code, err)
	}

	return persisted, nil
}

func (s *PostgresStore) Exists(ctx context.Context, code int) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM games WHERE code = $1 AND expires_at > now()
        )
    `, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check game %d: %w", code, err)
	}
	return exists, nil
}
