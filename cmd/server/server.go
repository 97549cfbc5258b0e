package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/thereayou/hotseat/internal/config"
	"github.com/thereayou/hotseat/internal/database"
	"github.com/thereayou/hotseat/internal/events"
	"github.com/thereayou/hotseat/internal/game"
	"github.com/thereayou/hotseat/internal/handlers"
	"github.com/thereayou/hotseat/internal/kv"
	"github.com/thereayou/hotseat/internal/middleware"
	"github.com/thereayou/hotseat/internal/rooms"
	ws "github.com/thereayou/hotseat/internal/websocket"
)

type Server struct {
	cfg     config.Config
	log     zerolog.Logger
	Router  *gin.Engine
	KV      *kv.Client
	DB      *database.Database
	Rooms   *rooms.Store
	Game    *game.Engine
	Hub     *ws.Hub
	timers  *game.TurnTimers
	limiter *middleware.RateLimiter
}

func NewServer(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	client, err := kv.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	s := &Server{cfg: cfg, log: log, KV: client}

	var engineOpts []game.Option
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s.DB = db
		engineOpts = append(engineOpts, game.WithResultRecorder(db))
	} else {
		log.Warn().Msg("DATABASE_URL not set, finished games will not be archived")
	}
	if cfg.TurnTimers {
		s.timers = game.NewTurnTimers()
		engineOpts = append(engineOpts, game.WithTurnTimers(s.timers))
	}

	notifier := events.NewRedisNotifier(client)
	s.Rooms = rooms.NewStore(client, notifier, log, rooms.WithTTL(cfg.RoomTTL))
	s.Game = game.NewEngine(s.Rooms, notifier, log, engineOpts...)
	s.Rooms.HandleDepartures(s.Game)

	s.Hub = ws.NewHub(log)
	s.limiter = middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	s.Router = s.newRouter()
	return s, nil
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(s.log))

	corsCfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Origin"},
		MaxAge:       12 * time.Hour,
	}
	if s.cfg.AllowAllOrigins() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	router.Use(cors.New(corsCfg))

	var results handlers.ResultLister
	if s.DB != nil {
		results = s.DB
	}

	APIEndpoints(router, Endpoints{
		Rooms:     handlers.NewRoomHandler(s.Rooms, s.Game, s.log),
		Results:   handlers.NewResultHandler(results, s.log),
		Health:    handlers.NewHealthHandler(s.KV),
		WebSocket: handlers.NewWebSocketHandler(s.Hub, s.Rooms, s.log, s.checkOrigin),
		RateLimit: s.limiter.Middleware(),
	})
	return router
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowAllOrigins() {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run()
	if err := s.Hub.Listen(ctx, s.KV); err != nil {
		return fmt.Errorf("subscribe room events: %w", err)
	}
	go s.limiter.Cleanup(ctx)

	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("port", s.cfg.Port).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.timers != nil {
		s.timers.Stop()
	}
	s.Hub.Stop()
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing database")
		}
	}
	if err := s.KV.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing redis")
	}
}
