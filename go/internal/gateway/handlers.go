// Package gateway translates HTTP requests into engine operations and
// streams fanout events to subscribed clients.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gifmeananswer/server/go/clients/giphy_client"
	"github.com/gifmeananswer/server/go/internal/fanout"
	"github.com/gifmeananswer/server/go/internal/game"
	"github.com/gifmeananswer/server/go/internal/orchestrator"
)

// GifSearcher is what the gateway needs from the image-search client.
type GifSearcher interface {
	Search(ctx context.Context, query string) ([]giphy_client.Gif, error)
}

// Handler serves the game HTTP surface.
type Handler struct {
	orch     *orchestrator.Orchestrator
	pubsub   fanout.PubSub
	gifs     GifSearcher
	upgrader websocket.Upgrader
}

// NewHandler creates the HTTP handler set.
func NewHandler(orch *orchestrator.Orchestrator, pubsub fanout.PubSub, gifs GifSearcher) *Handler {
	return &Handler{
		orch:   orch,
		pubsub: pubsub,
		gifs:   gifs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Register attaches every route to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /games", h.createGame)
	mux.HandleFunc("GET /games/{code}", h.getGame)
	mux.HandleFunc("POST /games/{code}/join", h.joinGame)
	mux.HandleFunc("POST /games/{code}/ready", h.playerReady)
	mux.HandleFunc("POST /games/{code}/start", h.forceStart)
	mux.HandleFunc("POST /games/{code}/rounds/{order}/images", h.selectImage)
	mux.HandleFunc("POST /games/{code}/rounds/{order}/images/deselect", h.deselectImage)
	mux.HandleFunc("POST /games/{code}/rounds/{order}/vote", h.vote)
	mux.HandleFunc("GET /games/{code}/events", h.gameEvents)
	mux.HandleFunc("GET /games/{code}/ws", h.gameSocket)
	mux.HandleFunc("POST /gifs/search", h.searchGifs)
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rounds  int `json:"rounds"`
		Players int `json:"players"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rounds < 1 || req.Players < 1 {
		writeMessage(w, http.StatusBadRequest, "rounds and players must be positive")
		return
	}

	snapshot, err := h.orch.CreateGame(r.Context(), req.Rounds, req.Players)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	code, ok := gameCode(w, r)
	if !ok {
		return
	}

	snapshot, err := h.orch.GetGame(r.Context(), code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) joinGame(w http.ResponseWriter, r *http.Request) {
	code, ok := gameCode(w, r)
	if !ok {
		return
	}

	var req struct {
		Name   string `json:"name"`
		IsHost bool   `json:"isHost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	player, err := h.orch.Join(r.Context(), code, req.Name, req.IsHost)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (h *Handler) playerReady(w http.ResponseWriter, r *http.Request) {
	code, ok := gameCode(w, r)
	if !ok {
		return
	}

	var req struct {
		Player string `json:"player"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" {
		writeMessage(w, http.StatusBadRequest, "player is required")
		return
	}

	if err := h.orch.Ready(r.Context(), code, req.Player); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) forceStart(w http.ResponseWriter, r *http.Request) {
	code, ok := gameCode(w, r)
	if !ok {
		return
	}

	var req struct {
		Player string `json:"player"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" {
		writeMessage(w, http.StatusBadRequest, "player is required")
		return
	}

	snapshot, err := h.orch.ForceStart(r.Context(), code, req.Player)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) selectImage(w http.ResponseWriter, r *http.Request) {
	code, ok := gameCode(w, r)
	if !ok {
		return
	}

	var req struct {
		Player string `json:"player"`
		URL    string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" || req.URL == "" {
		writeMessage(w, http.StatusBadRequest, "player and url are required")
		return
	}

	snapshot, err := h.orch.SelectImage(r.Context(), code, req.Player, req.URL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) deselectImage(w http.ResponseWriter, r *http.Request) {
	code, ok := gameCode(w, r)
	if !ok {
		return
	}
	order, err := strconv.Atoi(r.PathValue("order"))
	if err != nil {
		writeDomainError(w, game.ErrNoSuchRound)
		return
	}

	var req struct {
		Player string `json:"player"`
		URL    string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" || req.URL == "" {
		writeMessage(w, http.StatusBadRequest, "player and url are required")
		return
	}

	snapshot, err := h.orch.DeselectImage(r.Context(), code, order, req.Player, req.URL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) vote(w http.ResponseWriter, r *http.Request) {
	code, ok := gameCode(w, r)
	if !ok {
		return
	}

	var req struct {
		Player string `json:"player"`
		Image  string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" || req.Image == "" {
		writeMessage(w, http.StatusBadRequest, "player and image are required")
		return
	}

	snapshot, err := h.orch.Vote(r.Context(), code, req.Player, req.Image)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) searchGifs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeMessage(w, http.StatusBadRequest, "query is required")
		return
	}

	gifs, err := h.gifs.Search(r.Context(), req.Query)
	if err != nil {
		log.Error().Err(err).Str("query", req.Query).Msg("gif search failed")
		writeMessage(w, http.StatusBadGateway, "image search unavailable")
		return
	}
	writeJSON(w, http.StatusOK, gifs)
}

// gameCode parses the session code from the path. A non-numeric code can
// never name a game, so it maps to not-found.
func gameCode(w http.ResponseWriter, r *http.Request) (int, bool) {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil {
		writeDomainError(w, game.ErrNoSuchGame)
		return 0, false
	}
	return code, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeDomainError maps domain error kinds onto HTTP statuses. A
// bad-round-state reaching the transport means clients were sequenced
// incorrectly, treated as an internal fault.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNoSuchGame), errors.Is(err, game.ErrNoSuchRound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrBadRoundState):
		writeMessage(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, game.ErrNoSuchPlayer),
		errors.Is(err, game.ErrNoSuchImage),
		errors.Is(err, game.ErrGameExists),
		errors.Is(err, game.ErrPlayerExists),
		errors.Is(err, game.ErrInActiveRound),
		errors.Is(err, game.ErrNoRemainingRound),
		errors.Is(err, game.ErrOwnImage),
		errors.Is(err, game.ErrAlreadyVoted):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		log.Warn().Err(err).Msg("unanticipated error kind")
		writeMessage(w, http.StatusInternalServerError, "Something went wrong :(")
	}
}

// NotFoundMessage formats the body used when an event stream is requested
// for a code with no game.
func notFoundMessage(code int) string {
	return fmt.Sprintf("No game exists with code %d", code)
}
