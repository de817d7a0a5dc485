package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gifmeananswer/server/go/internal/models"
)

// App owns every state transition on a Game aggregate. Each operation
// reads the current game from the store, validates, mutates the in-memory
// copy and persists it; on failure it returns a domain error and writes
// nothing. Operations on the same code are serialized by a per-code mutex
// so concurrent read-modify-write cycles cannot clobber each other.
type App struct {
	store Store
	deck  *Deck
	locks sync.Map // code -> *sync.Mutex
}

// NewApp creates the game engine on top of a session store and a caption
// deck.
func NewApp(store Store, deck *Deck) *App {
	return &App{
		store: store,
		deck:  deck,
	}
}

func (a *App) lock(code int) func() {
	v, _ := a.locks.LoadOrStore(code, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// GetGame returns the current game snapshot for a code.
func (a *App) GetGame(ctx context.Context, code int) (*models.Game, error) {
	return a.store.Get(ctx, code)
}

// CreateGame allocates a session code and builds a game with totalRounds
// rounds, each captioned from the deck without replacement.
func (a *App) CreateGame(ctx context.Context, totalRounds, totalPlayers int) (*models.Game, error) {
	captions, err := a.deck.Draw(totalRounds)
	if err != nil {
		return nil, err
	}

	code := newCode()
	exists, err := a.store.Exists(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("check code %d: %w", code, err)
	}
	if exists {
		return nil, ErrGameExists
	}

	rounds := make([]models.GameRound, totalRounds)
	for i := range rounds {
		rounds[i] = models.GameRound{
			Order:   i + 1,
			Status:  models.RoundStatusNotStarted,
			Caption: captions[i],
			Images:  make(map[string]models.Image),
		}
	}

	game := &models.Game{
		Code:         code,
		Status:       models.GameStatusActive,
		TotalRounds:  totalRounds,
		TotalPlayers: totalPlayers,
		CurrentRound: 1,
		Rounds:       rounds,
		Players:      []models.Player{},
	}

	persisted, err := a.store.Set(ctx, game)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("code", persisted.Code).
		Int("rounds", totalRounds).
		Int("players", totalPlayers).
		Msg("game created")
	return persisted, nil
}

// AddPlayer joins a player to a game. Names must be unique within the
// session, compared case-sensitively.
func (a *App) AddPlayer(ctx context.Context, code int, name string, isHost bool) (*models.Player, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if game.PlayerByName(name) != nil {
		return nil, ErrPlayerExists
	}

	player := models.Player{
		ID:     uuid.New().String(),
		Name:   name,
		IsHost: isHost,
		Status: models.PlayerStatusJoined,
	}
	game.Players = append(game.Players, player)

	if _, err := a.store.Set(ctx, game); err != nil {
		return nil, err
	}

	log.Info().
		Int("code", code).
		Str("player", name).
		Bool("host", isHost).
		Msg("player joined")
	return &player, nil
}

// PlayerReady marks a player READY in the pre-round lobby.
func (a *App) PlayerReady(ctx context.Context, code int, playerID string) (*models.Game, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	player := game.Player(playerID)
	if player == nil {
		return nil, ErrNoSuchPlayer
	}
	player.Status = models.PlayerStatusReady

	return a.store.Set(ctx, game)
}

// AllPlayersReady reports whether the expected number of players has
// joined and every one of them is READY.
func (a *App) AllPlayersReady(ctx context.Context, code int) (bool, error) {
	game, err := a.store.Get(ctx, code)
	if err != nil {
		return false, err
	}
	if len(game.Players) != game.TotalPlayers {
		return false, nil
	}
	return game.AllPlayersInStatus(models.PlayerStatusReady), nil
}

// StartNewRound advances the next NOT_STARTED round to SELECT_GIF and
// resets every player's per-round status.
func (a *App) StartNewRound(ctx context.Context, code int) (*models.Game, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	next := game.RoundInStatus(models.RoundStatusNotStarted)
	if next == nil {
		return nil, ErrNoRemainingRound
	}
	for i := range game.Rounds {
		status := game.Rounds[i].Status
		if status != models.RoundStatusNotStarted && status != models.RoundStatusFinished {
			return nil, ErrInActiveRound
		}
	}

	next.Status = models.RoundStatusSelectGif
	for i := range game.Players {
		game.Players[i].Status = models.PlayerStatusReady
	}

	persisted, err := a.store.Set(ctx, game)
	if err != nil {
		return nil, err
	}

	log.Info().Int("code", code).Int("round", next.Order).Msg("round started")
	return persisted, nil
}

// SelectImage records a player's submission for the round currently in
// SELECT_GIF, replacing any prior image by the same player.
func (a *App) SelectImage(ctx context.Context, code int, playerID, url string) (*models.Game, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	player := game.Player(playerID)
	if player == nil {
		return nil, ErrNoSuchPlayer
	}
	round := game.RoundInStatus(models.RoundStatusSelectGif)
	if round == nil {
		return nil, ErrNoSuchRound
	}

	for id, img := range round.Images {
		if img.PlayerID == playerID {
			delete(round.Images, id)
		}
	}
	id := imageID(url)
	round.Images[id] = models.Image{
		ID:       id,
		URL:      url,
		PlayerID: playerID,
		VotedBy:  make(map[string]bool),
	}
	player.Status = models.PlayerStatusSelectedGif

	return a.store.Set(ctx, game)
}

// DeselectImage removes a player's submission from a round still in
// SELECT_GIF. The image must match both player and URL.
func (a *App) DeselectImage(ctx context.Context, code, roundOrder int, playerID, url string) (*models.Game, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	round := game.RoundByOrder(roundOrder)
	if round == nil {
		return nil, ErrNoSuchRound
	}
	if round.Status != models.RoundStatusSelectGif {
		return nil, ErrBadRoundState
	}

	id := imageID(url)
	img, ok := round.Images[id]
	if !ok || img.PlayerID != playerID {
		return nil, ErrNoSuchImage
	}
	delete(round.Images, id)

	return a.store.Set(ctx, game)
}

// changeRoundStatus moves the round currently in from to to, failing with
// ErrBadRoundState when no round is in the expected predecessor phase.
func (a *App) changeRoundStatus(ctx context.Context, code int, from, to models.RoundStatus) (*models.Game, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	round := game.RoundInStatus(from)
	if round == nil {
		return nil, ErrBadRoundState
	}
	round.Status = to

	return a.store.Set(ctx, game)
}

// StartPresentation moves the current round SELECT_GIF -> PRESENT.
func (a *App) StartPresentation(ctx context.Context, code int) (*models.Game, error) {
	return a.changeRoundStatus(ctx, code, models.RoundStatusSelectGif, models.RoundStatusPresent)
}

// StartVote moves the current round PRESENT -> VOTE.
func (a *App) StartVote(ctx context.Context, code int) (*models.Game, error) {
	return a.changeRoundStatus(ctx, code, models.RoundStatusPresent, models.RoundStatusVote)
}

// FinishRound moves the current round VOTE -> FINISHED.
func (a *App) FinishRound(ctx context.Context, code int) (*models.Game, error) {
	return a.changeRoundStatus(ctx, code, models.RoundStatusVote, models.RoundStatusFinished)
}

// Vote casts a player's single vote for an image in the round currently in
// VOTE. Players cannot vote for their own image or vote twice.
func (a *App) Vote(ctx context.Context, code int, playerID, imageID string) (*models.Game, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	round := game.RoundInStatus(models.RoundStatusVote)
	if round == nil {
		return nil, ErrBadRoundState
	}

	img, ok := round.Images[imageID]
	if !ok {
		return nil, ErrNoSuchImage
	}
	player := game.Player(playerID)
	if player == nil {
		return nil, ErrNoSuchPlayer
	}
	if player.Status == models.PlayerStatusVoted {
		return nil, ErrAlreadyVoted
	}
	if img.PlayerID == playerID {
		return nil, ErrOwnImage
	}

	img.Votes++
	img.VotedBy[playerID] = true
	round.Images[imageID] = img
	player.Status = models.PlayerStatusVoted

	return a.store.Set(ctx, game)
}

// AssignPoints adds each image's vote count to its submitter's running
// total for the round currently in VOTE. Must run before FinishRound.
func (a *App) AssignPoints(ctx context.Context, code int) (*models.Game, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	round := game.RoundInStatus(models.RoundStatusVote)
	if round == nil {
		return nil, ErrBadRoundState
	}

	for _, img := range round.Images {
		if player := game.Player(img.PlayerID); player != nil {
			player.Points += img.Votes
		}
	}

	return a.store.Set(ctx, game)
}

// SetPresentedImage sets the image currently shown during PRESENT. Called
// by the phase scheduler to step through submissions one at a time.
func (a *App) SetPresentedImage(ctx context.Context, code int, image models.Image) (*models.Game, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	round := game.RoundInStatus(models.RoundStatusPresent)
	if round == nil {
		return nil, ErrBadRoundState
	}
	round.PresentImage = image.URL

	return a.store.Set(ctx, game)
}

// NextRound advances the current round pointer.
func (a *App) NextRound(ctx context.Context, code int) (*models.Game, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if game.CurrentRound >= game.TotalRounds {
		return nil, ErrNoSuchRound
	}
	game.CurrentRound++

	return a.store.Set(ctx, game)
}

// FinishGame marks the game FINISHED. Terminal; only reads are valid
// afterwards.
func (a *App) FinishGame(ctx context.Context, code int) (*models.Game, error) {
	defer a.lock(code)()

	game, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	game.Status = models.GameStatusFinished

	persisted, err := a.store.Set(ctx, game)
	if err != nil {
		return nil, err
	}

	log.Info().Int("code", code).Msg("game finished")
	return persisted, nil
}
