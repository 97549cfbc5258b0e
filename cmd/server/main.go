package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/hotseat/internal/config"
	"github.com/thereayou/hotseat/internal/logger"
)

func main() {
	loaded := config.LoadDotEnv()

	cfg, err := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogPretty)
	if !loaded {
		log.Info().Msg(".env not found, using environment variables")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if !cfg.LogPretty {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := NewServer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
