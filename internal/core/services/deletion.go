package services

import (
	"context"
	"fmt"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driving"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// DeletionCoordinator removes documents once the backend confirms.
type DeletionCoordinator struct {
	backend   driven.DocumentBackend
	store     *DocumentStore
	cache     driven.AnalysisCache
	scheduler *PollingScheduler
	metrics   driven.OrchestrationMetrics
}

// NewDeletionCoordinator creates a deletion coordinator.
func NewDeletionCoordinator(
	backend driven.DocumentBackend,
	store *DocumentStore,
	cache driven.AnalysisCache,
	scheduler *PollingScheduler,
) *DeletionCoordinator {
	return &DeletionCoordinator{
		backend:   backend,
		store:     store,
		cache:     cache,
		scheduler: scheduler,
	}
}

// WithMetrics attaches a metrics recorder.
func (d *DeletionCoordinator) WithMetrics(m driven.OrchestrationMetrics) *DeletionCoordinator {
	d.metrics = m
	return d
}

// Delete asks for confirmation, deletes the document on the backend and
// then drops its record, poll and cached analysis. It returns false
// without touching anything when the user declines. On a backend failure
// local state is left unchanged.
func (d *DeletionCoordinator) Delete(ctx context.Context, documentID string, confirm driving.ConfirmFunc) (bool, error) {
	if documentID == "" {
		return false, fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	if confirm == nil {
		return false, fmt.Errorf("%w: deletion requires confirmation", domain.ErrInvalidInput)
	}

	name := documentID
	if rec, ok := d.store.Get(documentID); ok && rec.Filename != "" {
		name = rec.Filename
	}
	ok, err := confirm(ctx, fmt.Sprintf("Delete %q? This cannot be undone.", name))
	if err != nil {
		return false, fmt.Errorf("confirm deletion: %w", err)
	}
	if !ok {
		logger.Debug("delete %s: declined", documentID)
		return false, nil
	}

	err = d.backend.DeleteDocument(ctx, documentID)
	if d.metrics != nil {
		d.metrics.DeleteFinished(err)
	}
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", name, err)
	}

	// The record goes first so an in-flight poll sees it missing after
	// writing to the cache.
	d.store.Remove(documentID)
	d.scheduler.Cancel(documentID)
	if err := d.cache.Delete(ctx, documentID); err != nil {
		logger.Warn("delete %s: evict cached analysis: %v", documentID, err)
	}
	logger.Info("deleted %s", documentID)
	return true, nil
}
