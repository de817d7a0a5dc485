package game

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/gifmeananswer/server/go/internal/models"
)

type memoryEntry struct {
	game      *models.Game
	expiresAt time.Time
}

// MemoryStore keeps games in a process-local map with lazy TTL expiry.
// Suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[int]memoryEntry
	clock clockwork.Clock
	ttl   time.Duration
}

// NewMemoryStore creates an in-memory session store with the default TTL.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	log.Info().Msg("initializing in-memory game store")
	return &MemoryStore{
		games: make(map[int]memoryEntry),
		clock: clock,
		ttl:   SessionTTL,
	}
}

func (s *MemoryStore) Get(_ context.Context, code int) (*models.Game, error) {
	s.mu.RLock()
	entry, ok := s.games[code]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNoSuchGame
	}
	if s.clock.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.games, code)
		s.mu.Unlock()
		return nil, ErrNoSuchGame
	}
	return entry.game.Clone(), nil
}

func (s *MemoryStore) Set(_ context.Context, game *models.Game) (*models.Game, error) {
	persisted := game.Clone()
	persisted.Revision++

	s.mu.Lock()
	s.games[game.Code] = memoryEntry{
		game:      persisted,
		expiresAt: s.clock.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	return persisted.Clone(), nil
}

func (s *MemoryStore) Exists(_ context.Context, code int) (bool, error) {
	s.mu.RLock()
	entry, ok := s.games[code]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return !s.clock.Now().After(entry.expiresAt), nil
}
