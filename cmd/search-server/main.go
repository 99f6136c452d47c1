// cmd/search-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"estate-search/internal/api"
	"estate-search/internal/common/config"
	"estate-search/internal/common/database"
	commonhttp "estate-search/internal/common/http"
	"estate-search/internal/common/logger"
	"estate-search/internal/common/observability"
	"estate-search/internal/search/codec"
	"estate-search/internal/search/query"
	"estate-search/internal/search/session"
	"estate-search/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting search server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("backend", cfg.Search.Backend),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()
	var checks []api.HandlersOption

	// --- Locality catalog ---
	var codecOpts []codec.Option
	if cfg.Catalog.Path != "" {
		cat, err := registry.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			zapLog.Fatal("locality catalog load failed", zap.String("path", cfg.Catalog.Path), zap.Error(err))
		}
		idx := registry.NewIndex(cat)
		codecOpts = append(codecOpts, codec.WithCatalog(idx))
		zapLog.Info("Locality catalog loaded", zap.String("version", cat.Version), zap.Int("localities", idx.Len()))
	}
	filterCodec := codec.New(log, codecOpts...)

	// --- Search backend ---
	var searcher query.Searcher
	switch cfg.Search.Backend {
	case config.BackendElasticsearch:
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		searcher = query.NewElasticsearchSearcher(esClient.Client, cfg.Search.Index, log)
		checks = append(checks, api.WithReadinessCheck("elasticsearch", esClient.Ping))
	default:
		httpClient := commonhttp.NewClient(config.GetDuration(cfg.Search.QueryTimeout))
		searcher = query.NewRESTSearcher(httpClient, cfg.Search.RESTBaseURL, log)
	}

	// --- Result cache ---
	if cfg.Search.CacheEnabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")

		searcher = query.NewCachedSearcher(searcher, rdb.Client, filterCodec.Encode,
			config.GetDuration(cfg.Search.CacheTTL), log)
		checks = append(checks, api.WithReadinessCheck("redis", rdb.Ping))
	}

	// --- Sessions & HTTP ---
	manager := session.NewManager(&session.Config{
		BasePath:     cfg.Server.BasePath,
		Backend:      cfg.Search.Backend,
		QueryTimeout: config.GetDuration(cfg.Search.QueryTimeout),
	}, filterCodec, searcher, log, session.WithObservability(obs))

	handlers := api.NewHandlers(manager, filterCodec, log, checks...)
	server := api.NewServer(cfg.Server, api.NewRouter(handlers, log), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		zapLog.Info("Shutdown signal received, stopping server...")
	case err := <-errCh:
		if err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	manager.CloseAll()

	zapLog.Info("Search server stopped gracefully")
}
