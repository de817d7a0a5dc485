// Package orchestrator drives a game session through its phases. It
// composes the engine, the notification fanout and the phase scheduler:
// client actions come in through the gateway, and timer callbacks carry
// the session across the transitions no client triggers directly.
package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gifmeananswer/server/go/internal/fanout"
	"github.com/gifmeananswer/server/go/internal/game"
	"github.com/gifmeananswer/server/go/internal/models"
	"github.com/gifmeananswer/server/go/internal/scheduler"
)

// Config holds the phase timings.
type Config struct {
	// PresentationDwell is how long each submitted image is shown.
	PresentationDwell time.Duration
	// InterRoundPause is the pause between a finished round and the next.
	InterRoundPause time.Duration
}

// DefaultConfig returns the standard phase timings.
func DefaultConfig() Config {
	return Config{
		PresentationDwell: 5 * time.Second,
		InterRoundPause:   10 * time.Second,
	}
}

// Orchestrator coordinates engine operations with event publication and
// timer-driven phase advancement.
type Orchestrator struct {
	app    *game.App
	pubsub fanout.PubSub
	sched  *scheduler.Scheduler
	cfg    Config
}

// New creates an orchestrator.
func New(app *game.App, pubsub fanout.PubSub, sched *scheduler.Scheduler, cfg Config) *Orchestrator {
	return &Orchestrator{
		app:    app,
		pubsub: pubsub,
		sched:  sched,
		cfg:    cfg,
	}
}

// CreateGame builds a fresh session.
func (o *Orchestrator) CreateGame(ctx context.Context, totalRounds, totalPlayers int) (*models.Game, error) {
	return o.app.CreateGame(ctx, totalRounds, totalPlayers)
}

// GetGame returns the current snapshot; the recovery path for reconnecting
// clients, since events are never replayed.
func (o *Orchestrator) GetGame(ctx context.Context, code int) (*models.Game, error) {
	return o.app.GetGame(ctx, code)
}

// Join adds a player and announces it.
func (o *Orchestrator) Join(ctx context.Context, code int, name string, isHost bool) (*models.Player, error) {
	player, err := o.app.AddPlayer(ctx, code, name, isHost)
	if err != nil {
		return nil, err
	}

	if snapshot, err := o.app.GetGame(ctx, code); err == nil {
		o.pubsub.Publish(code, fanout.EventPlayerJoined, snapshot)
	}
	return player, nil
}

// Ready marks a player ready. Once the expected number of players has
// joined and all are ready, the first round starts.
func (o *Orchestrator) Ready(ctx context.Context, code int, playerID string) error {
	snapshot, err := o.app.PlayerReady(ctx, code, playerID)
	if err != nil {
		return err
	}
	o.pubsub.Publish(code, fanout.EventPlayerReady, snapshot)

	ready, err := o.app.AllPlayersReady(ctx, code)
	if err != nil || !ready {
		return err
	}

	o.pubsub.Publish(code, fanout.EventGameReady, snapshot)
	started, err := o.app.StartNewRound(ctx, code)
	if err != nil {
		return err
	}
	o.pubsub.Publish(code, fanout.EventRoundStarted, started)
	return nil
}

// ForceStart is the host override: it starts the first round even when
// fewer than the expected players have joined. The host flag is advisory,
// so any joined player may trigger it.
func (o *Orchestrator) ForceStart(ctx context.Context, code int, playerID string) (*models.Game, error) {
	snapshot, err := o.app.GetGame(ctx, code)
	if err != nil {
		return nil, err
	}
	if snapshot.Player(playerID) == nil {
		return nil, game.ErrNoSuchPlayer
	}

	o.pubsub.Publish(code, fanout.EventGameReady, snapshot)
	started, err := o.app.StartNewRound(ctx, code)
	if err != nil {
		return nil, err
	}
	o.pubsub.Publish(code, fanout.EventRoundStarted, started)
	return started, nil
}

// SelectImage records a submission. When every player has selected, the
// round moves to PRESENT and the presentation timers are armed.
func (o *Orchestrator) SelectImage(ctx context.Context, code int, playerID, url string) (*models.Game, error) {
	snapshot, err := o.app.SelectImage(ctx, code, playerID, url)
	if err != nil {
		return nil, err
	}
	o.pubsub.Publish(code, fanout.EventPlayerSelectedGif, snapshot)

	if !snapshot.AllPlayersInStatus(models.PlayerStatusSelectedGif) {
		return snapshot, nil
	}

	presented, err := o.app.StartPresentation(ctx, code)
	if err != nil {
		return nil, err
	}
	o.pubsub.Publish(code, fanout.EventRoundStateChanged, presented)

	if round := presented.RoundInStatus(models.RoundStatusPresent); round != nil {
		o.schedulePresentation(code, round)
	}
	return presented, nil
}

// DeselectImage withdraws a submission during selection.
func (o *Orchestrator) DeselectImage(ctx context.Context, code, roundOrder int, playerID, url string) (*models.Game, error) {
	snapshot, err := o.app.DeselectImage(ctx, code, roundOrder, playerID, url)
	if err != nil {
		return nil, err
	}
	o.pubsub.Publish(code, fanout.EventPlayerDeselected, snapshot)
	return snapshot, nil
}

// Vote casts a vote. When every player has voted, points are assigned, the
// round finishes and the inter-round timer is armed.
func (o *Orchestrator) Vote(ctx context.Context, code int, playerID, imageID string) (*models.Game, error) {
	snapshot, err := o.app.Vote(ctx, code, playerID, imageID)
	if err != nil {
		return nil, err
	}
	o.pubsub.Publish(code, fanout.EventPlayerVoted, snapshot)

	if !snapshot.AllPlayersInStatus(models.PlayerStatusVoted) {
		return snapshot, nil
	}

	if _, err := o.app.AssignPoints(ctx, code); err != nil {
		return nil, err
	}
	finished, err := o.app.FinishRound(ctx, code)
	if err != nil {
		return nil, err
	}
	o.pubsub.Publish(code, fanout.EventRoundStateChanged, finished)

	o.sched.After(o.cfg.InterRoundPause, func() {
		o.advanceRound(code)
	})
	return finished, nil
}

// schedulePresentation arms one dwell timer per submitted image, plus a
// final timer that opens voting.
func (o *Orchestrator) schedulePresentation(code int, round *models.GameRound) {
	images := sortedImages(round)
	for i, img := range images {
		o.sched.After(o.cfg.PresentationDwell*time.Duration(i), func() {
			o.presentImage(code, img)
		})
	}
	o.sched.After(o.cfg.PresentationDwell*time.Duration(len(images)), func() {
		o.beginVote(code)
	})

	log.Info().
		Int("code", code).
		Int("round", round.Order).
		Int("images", len(images)).
		Msg("presentation scheduled")
}

// presentImage is a timer callback; it re-validates through the engine and
// drops silently when the round already moved on.
func (o *Orchestrator) presentImage(code int, img models.Image) {
	ctx := context.Background()

	snapshot, err := o.app.SetPresentedImage(ctx, code, img)
	if err != nil {
		log.Warn().Err(err).Int("code", code).Str("image", img.ID).Msg("presentation tick dropped")
		return
	}
	o.pubsub.Publish(code, fanout.EventRoundImagePresent, snapshot)
}

// beginVote is a timer callback opening the voting phase.
func (o *Orchestrator) beginVote(code int) {
	ctx := context.Background()

	snapshot, err := o.app.StartVote(ctx, code)
	if err != nil {
		log.Warn().Err(err).Int("code", code).Msg("vote transition dropped")
		return
	}
	o.pubsub.Publish(code, fanout.EventRoundStateChanged, snapshot)
}

// advanceRound is the inter-round timer callback: it either finishes the
// game or starts the next round, re-checking state at fire time.
func (o *Orchestrator) advanceRound(code int) {
	ctx := context.Background()

	snapshot, err := o.app.GetGame(ctx, code)
	if err != nil {
		log.Warn().Err(err).Int("code", code).Msg("round advance dropped")
		return
	}
	if snapshot.Status == models.GameStatusFinished {
		log.Debug().Int("code", code).Msg("game already finished, ignoring round advance")
		return
	}

	if snapshot.CurrentRound == snapshot.TotalRounds {
		finished, err := o.app.FinishGame(ctx, code)
		if err != nil {
			log.Warn().Err(err).Int("code", code).Msg("finish game dropped")
			return
		}
		o.pubsub.Publish(code, fanout.EventGameFinished, finished)
		return
	}

	if _, err := o.app.NextRound(ctx, code); err != nil {
		log.Warn().Err(err).Int("code", code).Msg("next round dropped")
		return
	}
	started, err := o.app.StartNewRound(ctx, code)
	if err != nil {
		log.Warn().Err(err).Int("code", code).Msg("round start dropped")
		return
	}
	o.pubsub.Publish(code, fanout.EventRoundStarted, started)
}

// sortedImages returns the round's images in a stable order for the
// presentation sequence.
func sortedImages(round *models.GameRound) []models.Image {
	images := make([]models.Image, 0, len(round.Images))
	for _, img := range round.Images {
		images = append(images, img)
	}
	sort.Slice(images, func(i, j int) bool {
		return images[i].ID < images[j].ID
	})
	return images
}
