// Package config loads daemon configuration from the environment and
// holds the mutable runtime settings store.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the static daemon configuration, resolved once at startup.
type Config struct {
	HTTPPort   string
	DataDir    string
	BackendURL string // REST base URL
	SocketURL  string // websocket URL for the backend channel

	MPDHost     string
	MPDPort     int
	MPDPassword string
}

// Load reads .env (if present) and resolves the configuration from the
// environment with defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment")
	}

	return Config{
		HTTPPort:    getEnv("MAPLE_PORT", "3001"),
		DataDir:     getEnv("MAPLE_DATA_DIR", "data"),
		BackendURL:  getEnv("MAPLE_BACKEND_URL", "https://maple.kolf.pro:3000"),
		SocketURL:   getEnv("MAPLE_SOCKET_URL", "wss://maple.kolf.pro:3000/socket"),
		MPDHost:     getEnv("MAPLE_MPD_HOST", "localhost"),
		MPDPort:     getEnvInt("MAPLE_MPD_PORT", 6600),
		MPDPassword: getEnv("MAPLE_MPD_PASSWORD", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer in environment")
		return fallback
	}
	return n
}
