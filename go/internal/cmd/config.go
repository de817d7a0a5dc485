package main

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration, read from environment variables
// with defaults.
type Config struct {
	Port     string
	LogLevel string

	// Store selects the session store backend: "memory" or "postgres".
	Store string

	// NatsURL switches the fanout onto a shared broker when set; empty
	// keeps events in-process.
	NatsURL     string
	NatsSubject string

	// Phase timings.
	PresentationDwell time.Duration
	InterRoundPause   time.Duration

	// Caption corpus; empty uses the built-in captions.
	CaptionsFile string

	// Giphy search client.
	GiphyURL      string
	GiphyToken    string
	GiphyLimit    int
	GiphyLanguage string
}

func loadConfig() Config {
	return Config{
		Port:     getEnv("PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Store: getEnv("STORE", "memory"),

		NatsURL:     getEnv("NATS_URL", ""),
		NatsSubject: getEnv("NATS_SUBJECT", "game.events"),

		PresentationDwell: time.Duration(getEnvAsInt("PRESENTATION_DWELL_SEC", 5)) * time.Second,
		InterRoundPause:   time.Duration(getEnvAsInt("INTER_ROUND_PAUSE_SEC", 10)) * time.Second,

		CaptionsFile: getEnv("CAPTIONS_FILE", ""),

		GiphyURL:      getEnv("GIPHY_URL", "https://api.giphy.com/v1/gifs"),
		GiphyToken:    getEnv("GIPHY_TOKEN", ""),
		GiphyLimit:    getEnvAsInt("GIPHY_LIMIT", 25),
		GiphyLanguage: getEnv("GIPHY_LANGUAGE", "en"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
