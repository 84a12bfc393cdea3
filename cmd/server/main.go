package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aethoria/campaign-backend/internal/auth"
	"github.com/aethoria/campaign-backend/internal/config"
	"github.com/aethoria/campaign-backend/internal/events"
	"github.com/aethoria/campaign-backend/internal/httpapi"
	"github.com/aethoria/campaign-backend/internal/hub"
	"github.com/aethoria/campaign-backend/internal/storage"
	"github.com/aethoria/campaign-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	if cfg.SeedData {
		if err := store.SeedMonsters(); err != nil {
			logger.Fatal("seed monsters", zap.Error(err))
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisURL != "" {
		redisPub, err := events.NewRedisPublisher(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("connect redis", zap.Error(err))
		}
		defer redisPub.Close()
		publisher = redisPub
		logger.Info("event mirror enabled")
	}

	verifier := auth.NewVerifier(cfg.JWTSecret)
	h := hub.NewHub(ctx, publisher, logger)

	handlers := httpapi.NewHandlers(store, h, verifier, logger)
	wsHandler := ws.NewHandler(h, store, verifier, logger)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(handlers, wsHandler),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}
