package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/caelumdev/journal-api/pkg/api"
	"github.com/caelumdev/journal-api/pkg/cache"
	"github.com/caelumdev/journal-api/pkg/config"
	"github.com/caelumdev/journal-api/pkg/content"
	"github.com/caelumdev/journal-api/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logging.Setup(logging.DefaultConfig())
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	store, err := content.Open(cfg.Content.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Content.DataDir).Msg("Failed to open content store")
	}
	defer store.Close()

	// The shared response store is optional. Without Redis the server still
	// serves conditional requests and tracks metrics; invalidation just has
	// nothing to evict.
	var responseStore *cache.Store
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		responseStore = cache.NewStore(redisClient)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	recorder := cache.NewRecorder()
	warmer := cache.NewWarmer(cfg.Server.BaseURL)

	server, err := api.New(api.Config{
		Content:    store,
		CacheStore: responseStore,
		Recorder:   recorder,
		Warmer:     warmer,
		DevMode:    cfg.Server.DevMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API server")
	}

	// Periodic sweep keeps the per-key metrics map from growing without
	// bound on long-running instances.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Metrics.SweepSchedule, func() {
		cleared := recorder.ClearOlderThan(cfg.Metrics.RetentionHours)
		if cleared > 0 {
			logger.Info().Int("cleared", cleared).Msg("Swept stale cache metrics")
		}
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.Metrics.SweepSchedule).Msg("Invalid sweep schedule")
	}
	sweeper.Start()
	defer sweeper.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("Starting journal server")
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}
