package core

import (
	"context"
	"fmt"
	"io"

	"github.com/agenthands/anima/internal/config"
	"github.com/agenthands/anima/internal/core/history"
	"github.com/agenthands/anima/internal/driver"
	"github.com/agenthands/anima/internal/llm"
	"go.uber.org/zap"
)

// Open connects every backing service named by cfg and returns a ready
// Anima. The caller owns Close.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Anima, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	d, err := driver.NewNeo4jDriver(ctx, driver.Options{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.User,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
		Dialect:  cfg.Graph.Dialect,
		Logger:   logger.Named("driver"),
	})
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(ctx, cfg.LLM, logger.Named("llm"))
	if err != nil {
		_ = d.Close(ctx)
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	path := cfg.History.Path
	if path == "" {
		path = ":memory:"
	}
	log, err := history.OpenSQLite(path)
	if err != nil {
		if c, ok := client.(io.Closer); ok {
			_ = c.Close()
		}
		_ = d.Close(ctx)
		return nil, err
	}

	return New(Options{Driver: d, LLM: client, History: log, Config: cfg, Logger: logger}), nil
}
