package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/gifmeananswer/server/go/internal/models"
)

func newTestApp() (*App, *MemoryStore) {
	store := NewMemoryStore(clockwork.NewFakeClock())
	return NewApp(store, NewDeck()), store
}

// joinTwo creates a game and joins two players, returning the code and
// both players.
func joinTwo(t *testing.T, app *App) (int, *models.Player, *models.Player) {
	t.Helper()
	ctx := context.Background()

	g, err := app.CreateGame(ctx, 1, 2)
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}
	p1, err := app.AddPlayer(ctx, g.Code, "P1", true)
	if err != nil {
		t.Fatalf("AddPlayer(P1) error = %v", err)
	}
	p2, err := app.AddPlayer(ctx, g.Code, "P2", false)
	if err != nil {
		t.Fatalf("AddPlayer(P2) error = %v", err)
	}
	return g.Code, p1, p2
}

// startRound drives a two-player game into SELECT_GIF.
func startRound(t *testing.T, app *App, code int) {
	t.Helper()
	if _, err := app.StartNewRound(context.Background(), code); err != nil {
		t.Fatalf("StartNewRound() error = %v", err)
	}
}

func TestCreateGame(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()

	g, err := app.CreateGame(ctx, 4, 3)
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}

	if g.Status != models.GameStatusActive {
		t.Errorf("status = %v, want ACTIVE", g.Status)
	}
	if g.CurrentRound != 1 {
		t.Errorf("currentRound = %d, want 1", g.CurrentRound)
	}
	if len(g.Rounds) != 4 {
		t.Fatalf("len(rounds) = %d, want 4", len(g.Rounds))
	}
	if g.Revision != 1 {
		t.Errorf("revision = %d, want 1 after first persist", g.Revision)
	}

	seen := make(map[string]bool)
	for i, round := range g.Rounds {
		if round.Order != i+1 {
			t.Errorf("round[%d].order = %d, want %d", i, round.Order, i+1)
		}
		if round.Status != models.RoundStatusNotStarted {
			t.Errorf("round[%d].status = %v, want NOT_STARTED", i, round.Status)
		}
		if round.Caption == "" {
			t.Errorf("round[%d] has no caption", i)
		}
		if seen[round.Caption] {
			t.Errorf("caption %q repeated within one game", round.Caption)
		}
		seen[round.Caption] = true
	}
}

func TestCreateGameTooManyRounds(t *testing.T) {
	app, _ := newTestApp()

	deckSize := NewDeck().Size()
	if _, err := app.CreateGame(context.Background(), deckSize+1, 2); err == nil {
		t.Fatal("CreateGame() with more rounds than captions should fail")
	}
}

func TestAddPlayerDuplicateName(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()

	g, _ := app.CreateGame(ctx, 1, 2)
	if _, err := app.AddPlayer(ctx, g.Code, "Perry", false); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	if _, err := app.AddPlayer(ctx, g.Code, "Perry", false); !errors.Is(err, ErrPlayerExists) {
		t.Fatalf("AddPlayer() duplicate error = %v, want %v", err, ErrPlayerExists)
	}

	snapshot, _ := app.GetGame(ctx, g.Code)
	if len(snapshot.Players) != 1 {
		t.Errorf("len(players) = %d, want 1", len(snapshot.Players))
	}
}

func TestAddPlayerNoSuchGame(t *testing.T) {
	app, store := newTestApp()
	ctx := context.Background()

	if _, err := app.AddPlayer(ctx, 1234, "Perry", false); !errors.Is(err, ErrNoSuchGame) {
		t.Fatalf("AddPlayer() error = %v, want %v", err, ErrNoSuchGame)
	}

	// The failed join must not create a store entry as a side effect.
	if exists, _ := store.Exists(ctx, 1234); exists {
		t.Error("store has an entry for the nonexistent code")
	}
}

func TestPlayerReadyUnknownPlayer(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()

	g, _ := app.CreateGame(ctx, 1, 2)
	if _, err := app.PlayerReady(ctx, g.Code, "nope"); !errors.Is(err, ErrNoSuchPlayer) {
		t.Fatalf("PlayerReady() error = %v, want %v", err, ErrNoSuchPlayer)
	}
}

func TestAllPlayersReady(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, p2 := joinTwo(t, app)

	ready, err := app.AllPlayersReady(ctx, code)
	if err != nil || ready {
		t.Fatalf("AllPlayersReady() = %v, %v; want false before anyone is ready", ready, err)
	}

	app.PlayerReady(ctx, code, p1.ID)
	if ready, _ = app.AllPlayersReady(ctx, code); ready {
		t.Fatal("AllPlayersReady() = true with one of two players ready")
	}

	app.PlayerReady(ctx, code, p2.ID)
	if ready, _ = app.AllPlayersReady(ctx, code); !ready {
		t.Fatal("AllPlayersReady() = false with all players ready")
	}
}

func TestAllPlayersReadyRequiresFullLobby(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()

	g, _ := app.CreateGame(ctx, 1, 3)
	p1, _ := app.AddPlayer(ctx, g.Code, "P1", false)
	p2, _ := app.AddPlayer(ctx, g.Code, "P2", false)
	app.PlayerReady(ctx, g.Code, p1.ID)
	app.PlayerReady(ctx, g.Code, p2.ID)

	if ready, _ := app.AllPlayersReady(ctx, g.Code); ready {
		t.Fatal("AllPlayersReady() = true with 2 of 3 expected players")
	}
}

func TestStartNewRoundGuards(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()

	g, _ := app.CreateGame(ctx, 2, 2)
	app.AddPlayer(ctx, g.Code, "P1", false)
	app.AddPlayer(ctx, g.Code, "P2", false)
	startRound(t, app, g.Code)

	// Round two may not start while round one is still live.
	if _, err := app.StartNewRound(ctx, g.Code); !errors.Is(err, ErrInActiveRound) {
		t.Fatalf("StartNewRound() during active round error = %v, want %v", err, ErrInActiveRound)
	}
}

func TestStartNewRoundNoRemaining(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, p2 := joinTwo(t, app)

	playThroughRound(t, app, code, p1, p2)

	if _, err := app.StartNewRound(ctx, code); !errors.Is(err, ErrNoRemainingRound) {
		t.Fatalf("StartNewRound() error = %v, want %v", err, ErrNoRemainingRound)
	}
}

func TestSelectImageReplacesPrior(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, _ := joinTwo(t, app)
	startRound(t, app, code)

	if _, err := app.SelectImage(ctx, code, p1.ID, "https://gifs.com/a"); err != nil {
		t.Fatalf("SelectImage() error = %v", err)
	}
	snapshot, err := app.SelectImage(ctx, code, p1.ID, "https://gifs.com/b")
	if err != nil {
		t.Fatalf("SelectImage() error = %v", err)
	}

	round := snapshot.RoundInStatus(models.RoundStatusSelectGif)
	if len(round.Images) != 1 {
		t.Fatalf("len(images) = %d, want 1 after resubmission", len(round.Images))
	}
	for _, img := range round.Images {
		if img.URL != "https://gifs.com/b" {
			t.Errorf("image url = %q, want the latest submission", img.URL)
		}
		if img.PlayerID != p1.ID {
			t.Errorf("image playerId = %q, want %q", img.PlayerID, p1.ID)
		}
	}
	if snapshot.Player(p1.ID).Status != models.PlayerStatusSelectedGif {
		t.Errorf("player status = %v, want SELECTED_GIF", snapshot.Player(p1.ID).Status)
	}
}

func TestSelectImageErrors(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, _ := joinTwo(t, app)

	// No round in SELECT_GIF yet.
	if _, err := app.SelectImage(ctx, code, p1.ID, "https://gifs.com/a"); !errors.Is(err, ErrNoSuchRound) {
		t.Fatalf("SelectImage() before round start error = %v, want %v", err, ErrNoSuchRound)
	}

	startRound(t, app, code)
	if _, err := app.SelectImage(ctx, code, "nope", "https://gifs.com/a"); !errors.Is(err, ErrNoSuchPlayer) {
		t.Fatalf("SelectImage() unknown player error = %v, want %v", err, ErrNoSuchPlayer)
	}
}

func TestDeselectImage(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, p2 := joinTwo(t, app)
	startRound(t, app, code)

	app.SelectImage(ctx, code, p1.ID, "https://gifs.com/a")

	tests := []struct {
		name    string
		order   int
		player  string
		url     string
		wantErr error
	}{
		{"unknown round", 9, p1.ID, "https://gifs.com/a", ErrNoSuchRound},
		{"wrong player", 1, p2.ID, "https://gifs.com/a", ErrNoSuchImage},
		{"wrong url", 1, p1.ID, "https://gifs.com/z", ErrNoSuchImage},
		{"match", 1, p1.ID, "https://gifs.com/a", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.DeselectImage(ctx, code, tt.order, tt.player, tt.url)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeselectImage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	snapshot, _ := app.GetGame(ctx, code)
	if got := len(snapshot.RoundByOrder(1).Images); got != 0 {
		t.Errorf("len(images) = %d, want 0 after deselect", got)
	}
}

func TestDeselectImageOutsideSelection(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, p2 := joinTwo(t, app)
	startRound(t, app, code)

	app.SelectImage(ctx, code, p1.ID, "https://gifs.com/a")
	app.SelectImage(ctx, code, p2.ID, "https://gifs.com/b")
	app.StartPresentation(ctx, code)

	if _, err := app.DeselectImage(ctx, code, 1, p1.ID, "https://gifs.com/a"); !errors.Is(err, ErrBadRoundState) {
		t.Fatalf("DeselectImage() error = %v, want %v", err, ErrBadRoundState)
	}
}

func TestPhaseTransitionsNeverSkip(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, p2 := joinTwo(t, app)

	// Every transition must fail until its predecessor phase is reached.
	if _, err := app.StartVote(ctx, code); !errors.Is(err, ErrBadRoundState) {
		t.Fatalf("StartVote() from NOT_STARTED error = %v, want %v", err, ErrBadRoundState)
	}
	if _, err := app.FinishRound(ctx, code); !errors.Is(err, ErrBadRoundState) {
		t.Fatalf("FinishRound() from NOT_STARTED error = %v, want %v", err, ErrBadRoundState)
	}

	startRound(t, app, code)
	if _, err := app.StartVote(ctx, code); !errors.Is(err, ErrBadRoundState) {
		t.Fatalf("StartVote() from SELECT_GIF error = %v, want %v", err, ErrBadRoundState)
	}

	app.SelectImage(ctx, code, p1.ID, "https://gifs.com/a")
	app.SelectImage(ctx, code, p2.ID, "https://gifs.com/b")

	statuses := []models.RoundStatus{}
	record := func() {
		g, _ := app.GetGame(ctx, code)
		statuses = append(statuses, g.RoundByOrder(1).Status)
	}

	record()
	app.StartPresentation(ctx, code)
	record()
	app.StartVote(ctx, code)
	record()
	app.Vote(ctx, code, p1.ID, imageID("https://gifs.com/b"))
	app.Vote(ctx, code, p2.ID, imageID("https://gifs.com/a"))
	app.AssignPoints(ctx, code)
	app.FinishRound(ctx, code)
	record()

	want := []models.RoundStatus{
		models.RoundStatusSelectGif,
		models.RoundStatusPresent,
		models.RoundStatusVote,
		models.RoundStatusFinished,
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("phase[%d] = %v, want %v", i, statuses[i], want[i])
		}
	}
}

func TestVoteRules(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, p2 := joinTwo(t, app)
	startRound(t, app, code)

	app.SelectImage(ctx, code, p1.ID, "https://gifs.com/a")
	app.SelectImage(ctx, code, p2.ID, "https://gifs.com/b")
	app.StartPresentation(ctx, code)
	app.StartVote(ctx, code)

	imgA := imageID("https://gifs.com/a")
	imgB := imageID("https://gifs.com/b")

	if _, err := app.Vote(ctx, code, p1.ID, imgA); !errors.Is(err, ErrOwnImage) {
		t.Fatalf("Vote() own image error = %v, want %v", err, ErrOwnImage)
	}
	if _, err := app.Vote(ctx, code, p1.ID, "missing"); !errors.Is(err, ErrNoSuchImage) {
		t.Fatalf("Vote() unknown image error = %v, want %v", err, ErrNoSuchImage)
	}
	if _, err := app.Vote(ctx, code, "nope", imgA); !errors.Is(err, ErrNoSuchPlayer) {
		t.Fatalf("Vote() unknown player error = %v, want %v", err, ErrNoSuchPlayer)
	}

	snapshot, err := app.Vote(ctx, code, p1.ID, imgB)
	if err != nil {
		t.Fatalf("Vote() error = %v", err)
	}
	round := snapshot.RoundInStatus(models.RoundStatusVote)
	if round.Images[imgB].Votes != 1 {
		t.Errorf("votes = %d, want 1", round.Images[imgB].Votes)
	}
	if !round.Images[imgB].VotedBy[p1.ID] {
		t.Error("voter not recorded in votedBy")
	}

	// Second vote by the same player is rejected regardless of target.
	if _, err := app.Vote(ctx, code, p1.ID, imgA); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("Vote() twice error = %v, want %v", err, ErrAlreadyVoted)
	}
}

func TestAssignPoints(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, p2 := joinTwo(t, app)
	startRound(t, app, code)

	app.SelectImage(ctx, code, p1.ID, "https://gifs.com/a")
	app.SelectImage(ctx, code, p2.ID, "https://gifs.com/b")
	app.StartPresentation(ctx, code)
	app.StartVote(ctx, code)
	app.Vote(ctx, code, p1.ID, imageID("https://gifs.com/b"))
	app.Vote(ctx, code, p2.ID, imageID("https://gifs.com/a"))

	snapshot, err := app.AssignPoints(ctx, code)
	if err != nil {
		t.Fatalf("AssignPoints() error = %v", err)
	}

	for _, p := range snapshot.Players {
		if p.Points != 1 {
			t.Errorf("player %s points = %d, want 1", p.Name, p.Points)
		}
	}
}

func TestSetPresentedImage(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, p2 := joinTwo(t, app)
	startRound(t, app, code)

	app.SelectImage(ctx, code, p1.ID, "https://gifs.com/a")
	app.SelectImage(ctx, code, p2.ID, "https://gifs.com/b")

	img := models.Image{ID: imageID("https://gifs.com/a"), URL: "https://gifs.com/a", PlayerID: p1.ID}

	if _, err := app.SetPresentedImage(ctx, code, img); !errors.Is(err, ErrBadRoundState) {
		t.Fatalf("SetPresentedImage() outside PRESENT error = %v, want %v", err, ErrBadRoundState)
	}

	app.StartPresentation(ctx, code)
	snapshot, err := app.SetPresentedImage(ctx, code, img)
	if err != nil {
		t.Fatalf("SetPresentedImage() error = %v", err)
	}
	if got := snapshot.RoundInStatus(models.RoundStatusPresent).PresentImage; got != img.URL {
		t.Errorf("presentImage = %q, want %q", got, img.URL)
	}
}

func TestNextRoundAtEnd(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, _, _ := joinTwo(t, app)

	if _, err := app.NextRound(ctx, code); !errors.Is(err, ErrNoSuchRound) {
		t.Fatalf("NextRound() at last round error = %v, want %v", err, ErrNoSuchRound)
	}
}

func TestNewRoundResetsPlayerStatus(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()

	g, _ := app.CreateGame(ctx, 2, 2)
	p1, _ := app.AddPlayer(ctx, g.Code, "P1", false)
	p2, _ := app.AddPlayer(ctx, g.Code, "P2", false)
	code := g.Code

	playThroughRound(t, app, code, p1, p2)

	if _, err := app.NextRound(ctx, code); err != nil {
		t.Fatalf("NextRound() error = %v", err)
	}
	snapshot, err := app.StartNewRound(ctx, code)
	if err != nil {
		t.Fatalf("StartNewRound() error = %v", err)
	}

	for _, p := range snapshot.Players {
		if p.Status != models.PlayerStatusReady {
			t.Errorf("player %s status = %v, want READY at round start", p.Name, p.Status)
		}
	}
	if snapshot.CurrentRound != 2 {
		t.Errorf("currentRound = %d, want 2", snapshot.CurrentRound)
	}
}

func TestRevisionIncrementsOnEveryWrite(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()

	g, _ := app.CreateGame(ctx, 1, 2)
	before := g.Revision

	app.AddPlayer(ctx, g.Code, "P1", false)
	app.AddPlayer(ctx, g.Code, "P2", false)

	snapshot, _ := app.GetGame(ctx, g.Code)
	if snapshot.Revision != before+2 {
		t.Errorf("revision = %d, want %d", snapshot.Revision, before+2)
	}
}

// Two simultaneous selections for different players must never lose
// either submission.
func TestConcurrentSelectImage(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, p1, p2 := joinTwo(t, app)
	startRound(t, app, code)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := app.SelectImage(ctx, code, p1.ID, "https://gifs.com/a"); err != nil {
			t.Errorf("SelectImage(p1) error = %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := app.SelectImage(ctx, code, p2.ID, "https://gifs.com/b"); err != nil {
			t.Errorf("SelectImage(p2) error = %v", err)
		}
	}()
	wg.Wait()

	snapshot, _ := app.GetGame(ctx, code)
	round := snapshot.RoundByOrder(1)
	if len(round.Images) != 2 {
		t.Fatalf("len(images) = %d, want 2 after concurrent submissions", len(round.Images))
	}

	byPlayer := make(map[string]int)
	for _, img := range round.Images {
		byPlayer[img.PlayerID]++
	}
	if byPlayer[p1.ID] != 1 || byPlayer[p2.ID] != 1 {
		t.Errorf("images per player = %v, want one each", byPlayer)
	}
}

func TestFinishGameIsTerminal(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	code, _, _ := joinTwo(t, app)

	snapshot, err := app.FinishGame(ctx, code)
	if err != nil {
		t.Fatalf("FinishGame() error = %v", err)
	}
	if snapshot.Status != models.GameStatusFinished {
		t.Errorf("status = %v, want FINISHED", snapshot.Status)
	}
}

// playThroughRound drives one full round for two players: select, present,
// vote, score, finish.
func playThroughRound(t *testing.T, app *App, code int, p1, p2 *models.Player) {
	t.Helper()
	ctx := context.Background()

	if _, err := app.StartNewRound(ctx, code); err != nil {
		t.Fatalf("StartNewRound() error = %v", err)
	}
	snapshot, _ := app.GetGame(ctx, code)
	order := snapshot.RoundInStatus(models.RoundStatusSelectGif).Order

	urlA := "https://gifs.com/a"
	urlB := "https://gifs.com/b"
	app.SelectImage(ctx, code, p1.ID, urlA)
	app.SelectImage(ctx, code, p2.ID, urlB)
	if _, err := app.StartPresentation(ctx, code); err != nil {
		t.Fatalf("StartPresentation() error = %v", err)
	}
	if _, err := app.StartVote(ctx, code); err != nil {
		t.Fatalf("StartVote() error = %v", err)
	}
	app.Vote(ctx, code, p1.ID, imageID(urlB))
	app.Vote(ctx, code, p2.ID, imageID(urlA))
	if _, err := app.AssignPoints(ctx, code); err != nil {
		t.Fatalf("AssignPoints() error = %v", err)
	}
	if _, err := app.FinishRound(ctx, code); err != nil {
		t.Fatalf("FinishRound() error = %v", err)
	}

	snapshot, _ = app.GetGame(ctx, code)
	if snapshot.RoundByOrder(order).Status != models.RoundStatusFinished {
		t.Fatalf("round %d not FINISHED after play-through", order)
	}
}
