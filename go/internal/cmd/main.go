package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gifmeananswer/server/go/clients/giphy_client"
	"github.com/gifmeananswer/server/go/internal/dbconfig"
	"github.com/gifmeananswer/server/go/internal/fanout"
	"github.com/gifmeananswer/server/go/internal/game"
	"github.com/gifmeananswer/server/go/internal/gateway"
	"github.com/gifmeananswer/server/go/internal/orchestrator"
	"github.com/gifmeananswer/server/go/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := loadConfig()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("port", cfg.Port).
		Str("store", cfg.Store).
		Bool("nats", cfg.NatsURL != "").
		Msg("starting game server")

	clock := clockwork.NewRealClock()

	store, cleanup, err := setupStore(cfg, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up session store")
	}
	defer cleanup()

	pubsub, err := setupFanout(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up fanout")
	}

	deck, err := setupDeck(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load captions")
	}

	app := game.NewApp(store, deck)
	sched := scheduler.New(clock)
	orch := orchestrator.New(app, pubsub, sched, orchestrator.Config{
		PresentationDwell: cfg.PresentationDwell,
		InterRoundPause:   cfg.InterRoundPause,
	})
	gifs := giphy_client.NewGiphyClient(cfg.GiphyURL, cfg.GiphyToken, cfg.GiphyLimit, cfg.GiphyLanguage)

	server := setupServer(cfg, gateway.NewHandler(orch, pubsub, gifs))

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	if closer, ok := pubsub.(*fanout.NATSPubSub); ok {
		closer.Close()
	}

	log.Info().Msg("game server shutdown complete")
}

func setupStore(cfg Config, clock clockwork.Clock) (game.Store, func(), error) {
	switch cfg.Store {
	case "postgres":
		dbCfg := dbconfig.NewConfigFromEnv()
		pool, err := pgxpool.New(context.Background(), dbCfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		store, err := game.NewPostgresStore(context.Background(), pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return game.NewMemoryStore(clock), func() {}, nil
	}
}

func setupFanout(cfg Config) (fanout.PubSub, error) {
	if cfg.NatsURL == "" {
		log.Info().Msg("initializing in-process fanout")
		return fanout.NewBroadcaster(), nil
	}
	return fanout.NewNATSPubSub(cfg.NatsURL, cfg.NatsSubject)
}

func setupDeck(cfg Config) (*game.Deck, error) {
	if cfg.CaptionsFile == "" {
		return game.NewDeck(), nil
	}
	return game.NewDeckFromFile(cfg.CaptionsFile)
}
