package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agenthands/anima/internal/config"
	"github.com/agenthands/anima/internal/core"
	"github.com/agenthands/anima/internal/core/profile"
	"github.com/agenthands/anima/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	anima, err := core.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer func() {
		if err := anima.Close(context.Background()); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	if err := anima.BuildIndices(ctx); err != nil {
		logger.Warn("failed to build indices", zap.Error(err))
	}
	if cfg.Profiles.Path != "" {
		roster, err := profile.LoadRoster(cfg.Profiles.Path)
		if err != nil {
			logger.Fatal("failed to load roster", zap.Error(err))
		}
		n, err := anima.SeedRoster(ctx, roster)
		if err != nil {
			logger.Fatal("failed to seed roster", zap.Error(err))
		}
		logger.Info("roster seeded", zap.String("path", cfg.Profiles.Path), zap.Int("agents", n))
	}

	if os.Getenv("ANIMA_ENV") != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.NewServer(anima, logger.Named("http")).SetupRouter(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", zap.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("ANIMA_ENV") == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
