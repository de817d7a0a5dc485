package models

// GameStatus defines the lifecycle status of a game session.
type GameStatus string

const (
	GameStatusActive   GameStatus = "ACTIVE"
	GameStatusFinished GameStatus = "FINISHED"
)

// RoundStatus defines the phase a round is currently in. Rounds progress
// strictly NOT_STARTED -> SELECT_GIF -> PRESENT -> VOTE -> FINISHED.
type RoundStatus string

const (
	RoundStatusNotStarted RoundStatus = "NOT_STARTED"
	RoundStatusSelectGif  RoundStatus = "SELECT_GIF"
	RoundStatusPresent    RoundStatus = "PRESENT"
	RoundStatusVote       RoundStatus = "VOTE"
	RoundStatusFinished   RoundStatus = "FINISHED"
)

// PlayerStatus defines where a player stands inside the current round.
// JOINED and READY only occur before the first round starts; SELECTED_GIF
// and VOTED are per-round and reset when a new round begins.
type PlayerStatus string

const (
	PlayerStatusJoined      PlayerStatus = "JOINED"
	PlayerStatusReady       PlayerStatus = "READY"
	PlayerStatusSelectedGif PlayerStatus = "SELECTED_GIF"
	PlayerStatusVoted       PlayerStatus = "VOTED"
)

// Game is the authoritative per-session aggregate. It is persisted as a
// single record keyed by Code and mutated only through game.App operations.
type Game struct {
	Code         int         `json:"code"`
	Status       GameStatus  `json:"status"`
	TotalRounds  int         `json:"totalRounds"`
	TotalPlayers int         `json:"totalPlayers"`
	CurrentRound int         `json:"currentRound"`
	Rounds       []GameRound `json:"rounds"`
	Players      []Player    `json:"players"`
	Revision     int         `json:"revision"`
}

// GameRound is one caption-and-image cycle. Order is 1-based and fixed at
// game creation; Images is keyed by the image id derived from its URL.
type GameRound struct {
	Order        int              `json:"order"`
	Status       RoundStatus      `json:"status"`
	Caption      string           `json:"caption"`
	Images       map[string]Image `json:"images"`
	PresentImage string           `json:"presentImage"`
}

// Image is a player's submission for a round. At most one live image per
// player per round; a resubmission replaces the prior one.
type Image struct {
	ID       string          `json:"id"`
	URL      string          `json:"url"`
	PlayerID string          `json:"playerId"`
	Votes    int             `json:"votes"`
	VotedBy  map[string]bool `json:"votedBy"`
}

// Player is a participant in a game, unique by Name within the session.
type Player struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	IsHost bool         `json:"isHost"`
	Status PlayerStatus `json:"status"`
	Points int          `json:"points"`
}

// Clone returns a deep copy of the game, so callers can mutate the copy
// without aliasing stored state.
func (g *Game) Clone() *Game {
	clone := *g

	clone.Players = make([]Player, len(g.Players))
	copy(clone.Players, g.Players)

	clone.Rounds = make([]GameRound, len(g.Rounds))
	for i, r := range g.Rounds {
		round := r
		round.Images = make(map[string]Image, len(r.Images))
		for id, img := range r.Images {
			image := img
			image.VotedBy = make(map[string]bool, len(img.VotedBy))
			for pid, v := range img.VotedBy {
				image.VotedBy[pid] = v
			}
			round.Images[id] = image
		}
		clone.Rounds[i] = round
	}

	return &clone
}

// Player returns the player with the given id, or nil.
func (g *Game) Player(id string) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// PlayerByName returns the player with the given name, or nil. Names are
// compared case-sensitively.
func (g *Game) PlayerByName(name string) *Player {
	for i := range g.Players {
		if g.Players[i].Name == name {
			return &g.Players[i]
		}
	}
	return nil
}

// RoundInStatus returns the round currently in the given status, or nil.
// While the game is active at most one round is in a non-terminal status.
func (g *Game) RoundInStatus(status RoundStatus) *GameRound {
	for i := range g.Rounds {
		if g.Rounds[i].Status == status {
			return &g.Rounds[i]
		}
	}
	return nil
}

// RoundByOrder returns the round with the given 1-based order, or nil.
func (g *Game) RoundByOrder(order int) *GameRound {
	for i := range g.Rounds {
		if g.Rounds[i].Order == order {
			return &g.Rounds[i]
		}
	}
	return nil
}

// AllPlayersInStatus reports whether every player is in the given status.
func (g *Game) AllPlayersInStatus(status PlayerStatus) bool {
	for i := range g.Players {
		if g.Players[i].Status != status {
			return false
		}
	}
	return true
}
