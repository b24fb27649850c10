package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/listinglens/backend/config"
	httpDelivery "github.com/listinglens/backend/internal/delivery/http"
	"github.com/listinglens/backend/internal/domain"
	"github.com/listinglens/backend/internal/infrastructure/cache"
	"github.com/listinglens/backend/internal/infrastructure/gemini"
	"github.com/listinglens/backend/internal/infrastructure/logging"
	"github.com/listinglens/backend/internal/infrastructure/metrics"
	"github.com/listinglens/backend/internal/infrastructure/storage"
	"github.com/listinglens/backend/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logger := logging.New(cfg.Server.Environment)
	logger.WithFields(logrus.Fields{
		"version":     version,
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"cache":       cfg.Cache.Type,
	}).Info("starting ListingLens backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize infrastructure dependencies
	productCache, closeCache, err := newProductCache(ctx, cfg.Cache)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize product cache")
	}
	defer closeCache()

	geminiClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		VisionModel:       cfg.Gemini.VisionModel,
		TextModel:         cfg.Gemini.TextModel,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		Timeout:           cfg.Gemini.Timeout,
	}, m, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize Gemini client")
	}
	logger.WithFields(logrus.Fields{
		"vision_model": cfg.Gemini.VisionModel,
		"text_model":   cfg.Gemini.TextModel,
		"rpm":          cfg.Gemini.RequestsPerMinute,
	}).Info("Gemini client configured")

	imageStore := newImageStore(ctx, cfg.Storage, logger)

	// Initialize usecase layer
	enrichmentOptions := usecase.EnrichmentOptions{
		EnableDatabaseLookup:    cfg.Enrichment.EnableDatabaseLookup,
		EnableSentimentAnalysis: cfg.Enrichment.EnableSentiment,
		EnableCompletenessCheck: cfg.Enrichment.EnableCompleteness,
	}

	merge := usecase.NewMergeService()
	enrichment := usecase.NewEnrichmentService(productCache, usecase.NewConfidenceScorer(), logger)
	if cfg.Matching.Enabled {
		enrichment.UseMatcher(usecase.NewProductMatcher(usecase.MatcherConfig{
			MinScore:          cfg.Matching.MinScore,
			FuzzyEditDistance: cfg.Matching.FuzzyEditDistance,
		}))
	}
	formatter := usecase.NewPostFormatter(cfg.Enrichment.Locale)

	services := httpDelivery.Services{
		Analysis: usecase.NewAnalysisService(geminiClient, imageStore, usecase.AnalysisServiceConfig{
			MaxUploadSize:    cfg.Server.MaxUploadSize,
			BatchConcurrency: cfg.Server.BatchConcurrency,
		}, logger),
		Listings: usecase.NewListingService(merge, enrichment, geminiClient, formatter, usecase.ListingServiceConfig{
			MinConfidence: cfg.Enrichment.MinConfidence,
			Enrichment:    enrichmentOptions,
		}, logger),
		Merge:      merge,
		Enrichment: enrichment,
		Formatter:  formatter,
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(services, httpDelivery.HandlerConfig{
		MinConfidence: cfg.Enrichment.MinConfidence,
		Enrichment:    enrichmentOptions,
	}, m, logger)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, registry, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

// newProductCache builds the configured product cache and its close func
func newProductCache(ctx context.Context, cfg config.CacheConfig) (domain.ProductCache, func(), error) {
	switch cfg.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	default:
		return cache.NewMemoryCache(), func() {}, nil
	}
}

// newImageStore returns nil when storage is disabled or unreachable; the
// analysis service treats image storage as optional.
func newImageStore(ctx context.Context, cfg config.StorageConfig, logger logrus.FieldLogger) domain.ImageStore {
	if !cfg.Enabled {
		logger.Info("image storage disabled")
		return nil
	}

	store, err := storage.NewMinIOStore(storage.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
		PublicURL: cfg.PublicURL,
	})
	if err != nil {
		logger.WithError(err).Warn("image storage unavailable, continuing without it")
		return nil
	}

	if err := store.EnsureBucket(ctx); err != nil {
		logger.WithError(err).WithField("bucket", cfg.Bucket).Warn("image bucket unavailable, continuing without storage")
		return nil
	}

	logger.WithFields(logrus.Fields{"endpoint": cfg.Endpoint, "bucket": cfg.Bucket}).Info("image storage configured")
	return store
}
