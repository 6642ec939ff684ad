// Command hub runs the HomeRenovationHub session service: it keeps track of
// who is signed in, survives restarts, and tells the UI (and, when NATS is
// configured, other processes) every time that changes.
//
// All logic lives under internal/. main only reads configuration, sets up
// logging and starts the server.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/config"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// ":memory:" keeps the session in process, with no file to create
	if cfg.StorePath != ":memory:" {
		dir := filepath.Dir(cfg.StorePath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create store directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// blocks until SIGINT/SIGTERM
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
