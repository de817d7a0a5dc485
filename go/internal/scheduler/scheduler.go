// Package scheduler arms single-shot, delay-based callbacks that advance
// game phases without a client request pending.
package scheduler

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Scheduler fires callbacks once, at least the given delay after arming.
// There is no cancellation: a scheduled callback always fires and must
// itself re-check game state before acting.
type Scheduler struct {
	clock clockwork.Clock
}

// New creates a scheduler on the given clock. Production uses
// clockwork.NewRealClock; tests use a fake clock.
func New(clock clockwork.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// After runs fn once on its own goroutine, no earlier than d from now.
func (s *Scheduler) After(d time.Duration, fn func()) {
	timer := s.clock.NewTimer(d)

	go func() {
		<-timer.Chan()
		fn()
	}()

	log.Debug().Dur("delay", d).Msg("scheduled one-shot callback")
}
