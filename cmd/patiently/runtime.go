package main

import (
	"context"
	"fmt"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driven/backend/rest"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driven/inspect"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driven/metrics"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driven/storage/memory"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driven/storage/sqlite"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/cli"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/services"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// newRuntime wires the adapters and services for one command run.
func newRuntime(_ context.Context, settings domain.Settings) (*cli.Runtime, error) {
	backend, err := rest.NewClient(rest.Config{
		BaseURL:   settings.API.BaseURL,
		Timeout:   settings.API.Timeout,
		RateLimit: settings.API.RateLimit,
		Burst:     settings.API.Burst,
		Breaker:   rest.DefaultBreakerConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	cache, closeCache, err := openCache(settings.Cache)
	if err != nil {
		return nil, err
	}

	var inspector driven.FileInspector
	if settings.Upload.Inspect {
		inspector = inspect.New()
	}

	m := metrics.New()
	store := services.NewDocumentStore()
	scheduler := services.NewPollingScheduler(backend, cache, store,
		services.PollingConfigFrom(settings.Polling)).WithMetrics(m)
	uploads := services.NewUploadCoordinator(backend, store, scheduler, inspector, services.UploadConfig{
		InitialPollDelay: settings.Polling.InitialDelay,
		Concurrency:      settings.Upload.Concurrency,
	}).WithMetrics(m)
	deletions := services.NewDeletionCoordinator(backend, store, cache, scheduler).WithMetrics(m)
	controller := services.NewViewController(backend, cache, store, scheduler, uploads, deletions)

	return &cli.Runtime{
		Orchestrator: controller,
		Metrics:      m,
		Settings:     settings,
		Close: func() {
			controller.Close()
			closeCache()
		},
	}, nil
}

// openCache opens the configured analysis cache and returns its closer.
func openCache(cfg domain.CacheSettings) (driven.AnalysisCache, func(), error) {
	switch cfg.Backend {
	case domain.CacheSQLite:
		st, err := sqlite.NewStore(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("analysis cache: %w", err)
		}
		logger.Debug("analysis cache at %s", st.Path())
		return st.AnalysisCache(), func() {
			if err := st.Close(); err != nil {
				logger.Warn("closing analysis cache: %v", err)
			}
		}, nil
	default:
		return memory.NewAnalysisCache(), func() {}, nil
	}
}
