package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tokens "github.com/gravadigital/bienestar-api/internal/auth"
	"github.com/gravadigital/bienestar-api/internal/cache"
	"github.com/gravadigital/bienestar-api/internal/config"
	"github.com/gravadigital/bienestar-api/internal/identity"
	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/notify"
	"github.com/gravadigital/bienestar-api/internal/objectstore"
	"github.com/gravadigital/bienestar-api/internal/server"
	"github.com/gravadigital/bienestar-api/internal/services"
	"github.com/gravadigital/bienestar-api/internal/storage"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
	"github.com/gravadigital/bienestar-api/internal/tracing"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Server.LogLevel)
	log := logger.Get()

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.OTLPEndpoint, "bienestar-api", cfg.Server.Environment)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	storageType, err := storage.ValidateStorageType(cfg.StorageType)
	if err != nil {
		log.Error("Invalid storage configuration", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewFactory(storageType).CreateContainer(cfg)
	if err != nil {
		log.Error("Failed to initialize storage", "type", storageType, "error", err)
		os.Exit(1)
	}

	nearby := nearbyCache(ctx, cfg)
	if local, ok := nearby.(*cache.Local); ok {
		go sweepCache(ctx, local)
	}

	photos, err := objectstore.New(ctx, cfg)
	if err != nil {
		log.Warn("Photo storage unavailable, uploads disabled", "error", err)
		photos = objectstore.Disabled{}
	}

	notifier := notify.New(cfg)

	srv := server.New(cfg, server.Dependencies{
		Store:    store,
		Venues:   services.NewVenueService(store, nearby, photos),
		Events:   services.NewEventService(store, notifier),
		Accounts: services.NewAccountService(store, identity.NewStore(store.Accounts()), notifier),
		Tokens:   tokens.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if closer, ok := nearby.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn("Failed to close cache", "error", err)
		}
	}
	if err := closeStore(store, 5*time.Second); err != nil {
		log.Error("Failed to close storage", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", "error", err)
	}

	log.Info("Server exited")
}

// nearbyCache uses Redis when configured and falls back to the in-process cache
func nearbyCache(ctx context.Context, cfg *config.Config) cache.NearbyCache {
	if cfg.Cache.RedisURL == "" {
		return cache.NewLocal(cfg.Cache.NearbyTTL)
	}

	redisCache, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.NearbyTTL)
	if err != nil {
		logger.Get().Warn("Redis unavailable, using local cache", "error", err)
		return cache.NewLocal(cfg.Cache.NearbyTTL)
	}
	return redisCache
}

// sweepCache drops expired nearby results once a minute
func sweepCache(ctx context.Context, local *cache.Local) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := local.Cleanup(); n > 0 {
				logger.Get().Debug("Evicted expired nearby results", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// closeStore bounds the close when the container supports it
func closeStore(store postgres.RepositoryContainer, timeout time.Duration) error {
	if c, ok := store.(interface{ CloseWithTimeout(time.Duration) error }); ok {
		return c.CloseWithTimeout(timeout)
	}
	return store.Close()
}
