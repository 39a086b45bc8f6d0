package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dreschagin/asset-server/internal/app"
	"github.com/dreschagin/asset-server/internal/browser"
	"github.com/dreschagin/asset-server/internal/server"
	"github.com/dreschagin/asset-server/pkg/config"
	"golang.org/x/term"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	assetServer, err := app.New(cfg, os.Stdout, logger, browser.System())
	if err != nil {
		logger.Error("failed to initialize asset server", "error", err)
		os.Exit(1)
	}

	if err := assetServer.Start(); err != nil {
		if errors.Is(err, server.ErrAddressInUse) {
			fmt.Fprintf(os.Stderr, "port %s is already in use; is another asset server running?\n", cfg.Server.Port)
		}
		logger.Error("failed to start asset server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := assetServer.Run(ctx); err != nil {
		logger.Error("asset server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: slogLevel}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
