package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/popcorn/internal/app"
	"github.com/Clark-Hu/popcorn/internal/catalog"
	"github.com/Clark-Hu/popcorn/internal/config"
	httpserver "github.com/Clark-Hu/popcorn/internal/http"
	"github.com/Clark-Hu/popcorn/internal/logger"
	"github.com/Clark-Hu/popcorn/internal/repository"
	"github.com/Clark-Hu/popcorn/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Format:      cfg.LogFormat,
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		AddSource:   cfg.Environment != "production",
	}).With("service", "popcorn")
	slog.SetDefault(log)

	opts := app.Options{
		MinQueryLength: cfg.MinQueryLength,
		SearchTimeout:  time.Duration(cfg.CatalogTimeoutSecs) * time.Second,
		LookupTimeout:  time.Duration(cfg.CatalogTimeoutSecs) * time.Second,
		RatingMax:      cfg.RatingMax,
		RatingCaptions: cfg.RatingCaptions,
		Logger:         log,
	}

	// Left as a nil interface when no database is configured so /healthz
	// skips the check.
	var health httpserver.HealthChecker
	if cfg.MirrorEnabled() {
		st, err := openStore(ctx, cfg, log)
		if err != nil {
			log.Error("connect database", "error", err)
			os.Exit(1)
		}
		defer st.Close()
		health = st
		opts.Mirror = repository.New(st).Watched
	}

	client, err := catalog.NewHTTPClient(cfg.CatalogURL, cfg.CatalogAPIKey,
		time.Duration(cfg.CatalogTimeoutSecs)*time.Second, log,
		catalog.WithRateLimit(cfg.CatalogRPS, cfg.CatalogBurst))
	if err != nil {
		log.Error("init catalog client", "error", err)
		os.Exit(1)
	}

	registry := app.NewRegistry(client, opts)
	server := httpserver.New(cfg, registry, health, log)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("graceful shutdown error", "error", err)
	}
	log.Info("closed sessions", "count", registry.Sweep(0))
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (*store.Store, error) {
	dbCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.DBConnTimeoutSecs)*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 log,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(dbCtx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
