package game

import "errors"

// Domain errors. The error text doubles as the wire-level error kind that
// the gateway returns to clients, so it must stay stable.
var (
	ErrNoSuchGame       = errors.New("no-such-game")
	ErrNoSuchPlayer     = errors.New("no-such-player")
	ErrNoSuchRound      = errors.New("no-such-round")
	ErrNoSuchImage      = errors.New("no-such-image")
	ErrGameExists       = errors.New("game-exists")
	ErrPlayerExists     = errors.New("player-exists")
	ErrInActiveRound    = errors.New("in-active-round")
	ErrNoRemainingRound = errors.New("no-remaining-rounds")
	ErrBadRoundState    = errors.New("bad-round-state")
	ErrOwnImage         = errors.New("own-image")
	ErrAlreadyVoted     = errors.New("already-voted")
)
