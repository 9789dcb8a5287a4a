// Package main wires together the webdex crawler and search service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/webdex/webdex/internal/api"
	blobgcs "github.com/webdex/webdex/internal/blob/gcs"
	bloblocal "github.com/webdex/webdex/internal/blob/local"
	blobmemory "github.com/webdex/webdex/internal/blob/memory"
	"github.com/webdex/webdex/internal/clock/system"
	"github.com/webdex/webdex/internal/config"
	"github.com/webdex/webdex/internal/crawl"
	"github.com/webdex/webdex/internal/extract"
	collyfetcher "github.com/webdex/webdex/internal/fetch/colly"
	"github.com/webdex/webdex/internal/hash/sha256"
	"github.com/webdex/webdex/internal/id/uuid"
	"github.com/webdex/webdex/internal/logging"
	"github.com/webdex/webdex/internal/policy/ratelimit"
	memorypublisher "github.com/webdex/webdex/internal/publisher/memory"
	pubsubpublisher "github.com/webdex/webdex/internal/publisher/pubsub"
	"github.com/webdex/webdex/internal/rank"
	"github.com/webdex/webdex/internal/scheduler"
	storememory "github.com/webdex/webdex/internal/store/memory"
	storepostgres "github.com/webdex/webdex/internal/store/postgres"
	"github.com/webdex/webdex/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	frontier, registry, index, closeStores, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	blobStore, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, closePublisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	clock := system.New()
	sleeper := system.NewSleeper()
	hasher := sha256.New()
	idGen := uuid.New()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Crawler.UserAgent,
		Timeout:      time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		IgnoreRobots: cfg.Crawler.IgnoreRobots,
	})
	extractor := extract.New(cfg.Crawler.ContentCharLimit)
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.RateLimit.RPS,
		DefaultBurst: cfg.RateLimit.Burst,
	})

	if err := seed(ctx, cfg, frontier, registry); err != nil {
		return err
	}

	w := worker.New(
		frontier,
		registry,
		index,
		fetcher,
		extractor,
		blobStore,
		publisher,
		hasher,
		limiter,
		clock,
		worker.Config{
			BlobPrefix: cfg.Archive.Prefix,
			Topic:      cfg.PubSub.TopicName,
		},
		logger.Named("worker"),
	)
	sched := scheduler.New(registry, w, sleeper, scheduler.Config{
		Concurrency: cfg.Crawler.Concurrency,
		IdleBackoff: time.Duration(cfg.Crawler.IdleBackoffSec) * time.Second,
		BatchPause:  time.Duration(cfg.Crawler.BatchPauseSec) * time.Second,
	}, logger.Named("scheduler"))

	engine := rank.New(index, cfg.Search.PageSize)
	apiServer := api.NewServer(engine, registry, index, idGen, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("scheduler started", zap.Int("concurrency", cfg.Crawler.Concurrency))
		sched.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func buildStores(ctx context.Context, cfg config.Config) (
	crawl.Frontier,
	crawl.DomainRegistry,
	crawl.SiteIndex,
	func(),
	error,
) {
	switch cfg.Storage.Provider {
	case "postgres":
		pool, err := storepostgres.Connect(ctx, storepostgres.Config{
			DSN:      cfg.Storage.DSN,
			MaxConns: cfg.Storage.MaxConns,
			MinConns: cfg.Storage.MinConns,
		})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect storage: %w", err)
		}
		frontier, err := storepostgres.NewFrontier(pool, "")
		if err != nil {
			pool.Close()
			return nil, nil, nil, nil, err
		}
		registry, err := storepostgres.NewRegistry(pool, "")
		if err != nil {
			pool.Close()
			return nil, nil, nil, nil, err
		}
		index, err := storepostgres.NewIndex(pool, "")
		if err != nil {
			pool.Close()
			return nil, nil, nil, nil, err
		}
		for _, ensure := range []func(context.Context) error{
			frontier.EnsureSchema,
			registry.EnsureSchema,
			index.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				pool.Close()
				return nil, nil, nil, nil, fmt.Errorf("ensure schema: %w", err)
			}
		}
		return frontier, registry, index, pool.Close, nil
	default:
		return storememory.NewFrontier(), storememory.NewRegistry(), storememory.NewIndex(), func() {}, nil
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config) (crawl.BlobStore, error) {
	switch cfg.Archive.Provider {
	case "memory":
		return blobmemory.NewBlobStore(), nil
	case "local":
		store, err := bloblocal.New(bloblocal.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local archive: %w", err)
		}
		return store, nil
	case "gcs":
		store, err := blobgcs.New(ctx, cfg.Archive.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("gcs archive: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (crawl.Publisher, func(), error) {
	if cfg.PubSub.TopicName == "" {
		return nil, func() {}, nil
	}
	if cfg.PubSub.ProjectID == "" {
		logger.Info("pubsub project not set, using in-memory publisher")
		return memorypublisher.New(), func() {}, nil
	}

	pub, err := pubsubpublisher.New(ctx, pubsubpublisher.Config{ProjectID: cfg.PubSub.ProjectID})
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub publisher: %w", err)
	}
	closeFn := func() {
		if err := pub.Close(); err != nil {
			logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	return pub, closeFn, nil
}

// seed registers the configured start domain and enqueues its root URL so
// a fresh deployment has something to crawl.
func seed(ctx context.Context, cfg config.Config, frontier crawl.Frontier, registry crawl.DomainRegistry) error {
	if cfg.Crawler.SeedHostname == "" || cfg.Crawler.SeedURL == "" {
		return nil
	}
	seedURL, err := url.Parse(cfg.Crawler.SeedURL)
	if err != nil {
		return fmt.Errorf("parse seed url: %w", err)
	}
	if err := registry.RegisterIfNew(ctx, cfg.Crawler.SeedHostname); err != nil {
		return fmt.Errorf("register seed domain: %w", err)
	}
	if _, err := frontier.EnqueueIfNew(ctx, cfg.Crawler.SeedHostname, crawl.Canonicalize(seedURL), 0); err != nil {
		return fmt.Errorf("enqueue seed url: %w", err)
	}
	return nil
}
