package internal

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/halvard/ansuz/internal/mcpserver"
	"github.com/halvard/ansuz/internal/pageservice"
	"github.com/halvard/ansuz/internal/store"
	"github.com/halvard/ansuz/internal/uploads"
)

// RunMCP starts the MCP stdio server over the configured store. Logs go
// to stderr; stdout carries the protocol.
func RunMCP(opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	uploadStore, err := uploads.NewStore(cfg.Uploads.Path)
	if err != nil {
		return fmt.Errorf("init uploads: %w", err)
	}

	logger.Info("MCP server starting on stdio", slog.String("sqlite_path", cfg.SQLite.Path))

	svc := pageservice.NewService(db)
	return mcpserver.New(svc, uploadStore).ServeStdio()
}
