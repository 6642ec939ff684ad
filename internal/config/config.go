// Package config reads process configuration from the environment.
//
// A .env file in the working directory, when present, is loaded first.
// Variables already set in the environment win over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      int
	StorePath string

	BackendURL  string
	HTTPTimeout time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	NatsURL  string // empty disables event publishing
	LogLevel slog.Level
}

// GoogleEnabled reports whether OAuth sign-in can be offered.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load reads the configuration. Missing variables fall back to defaults;
// malformed ones are errors.
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, so tests do not have to
// touch the process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	var c Config
	var err error

	if c.Port, err = intVar(getenv, "PORT", 8080); err != nil {
		return Config{}, err
	}
	timeoutSec, err := intVar(getenv, "HTTP_TIMEOUT_SECONDS", 10)
	if err != nil {
		return Config{}, err
	}
	if timeoutSec <= 0 {
		return Config{}, fmt.Errorf("config: HTTP_TIMEOUT_SECONDS must be positive, got %d", timeoutSec)
	}
	c.HTTPTimeout = time.Duration(timeoutSec) * time.Second

	c.StorePath = stringVar(getenv, "STORE_PATH", "data/session.db")
	c.BackendURL = stringVar(getenv, "BACKEND_URL", "http://localhost:5000")
	c.GoogleClientID = getenv("GOOGLE_CLIENT_ID")
	c.GoogleClientSecret = getenv("GOOGLE_CLIENT_SECRET")
	c.GoogleCallbackURL = stringVar(getenv, "GOOGLE_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/auth/google/callback", c.Port))
	c.NatsURL = getenv("NATS_URL")

	if err := c.LogLevel.UnmarshalText([]byte(stringVar(getenv, "LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}

	return c, nil
}

func stringVar(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s value %q: %w", key, v, err)
	}
	return n, nil
}
