package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel string

	// APIBaseURL is the root of the ChowHub backend, e.g. http://localhost:8080/api.
	APIBaseURL string
	APITimeout time.Duration

	// StatePath is the sqlite file holding the remembered session.
	StatePath string

	// Stub server settings.
	HTTPPort  int
	JWTSecret string
}

func Load() Config {
	// .env is optional; real env always wins.
	_ = godotenv.Load()

	return Config{
		AppEnv:     getEnv("APP_ENV", "dev"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		APIBaseURL: getEnv("CHOWHUB_API_URL", "http://localhost:8080/api"),
		APITimeout: getEnvDuration("CHOWHUB_API_TIMEOUT", 15*time.Second),
		StatePath:  getEnv("CHOWHUB_STATE_PATH", defaultStatePath()),
		HTTPPort:   getEnvInt("HTTP_PORT", 8080),
		JWTSecret:  getEnv("JWT_SECRET", "chowhub_dev_secret"),
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "chowhub.db"
	}
	return filepath.Join(dir, "chowhub", "state.db")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}

	return d
}
