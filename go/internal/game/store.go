package game

import (
	"context"
	"time"

	"github.com/gifmeananswer/server/go/internal/models"
)

// SessionTTL is how long an untouched game survives in the store. Every
// Set refreshes the window.
const SessionTTL = 30 * time.Minute

// Store is the minimal contract the engine needs from the session store.
// Get returns ErrNoSuchGame for absent (or expired) codes. Set persists the
// game with an incremented revision and returns the persisted copy.
type Store interface {
	Get(ctx context.Context, code int) (*models.Game, error)
	Set(ctx context.Context, game *models.Game) (*models.Game, error)
	Exists(ctx context.Context, code int) (bool, error)
}
