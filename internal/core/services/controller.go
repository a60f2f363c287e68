package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driving"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// Ensure ViewController implements the interface.
var _ driving.Orchestrator = (*ViewController)(nil)

// ViewController translates user intents into calls on the core services
// and builds the projection renderers draw from.
type ViewController struct {
	backend   driven.DocumentBackend
	cache     driven.AnalysisCache
	store     *DocumentStore
	scheduler *PollingScheduler
	uploads   *UploadCoordinator
	deletions *DeletionCoordinator

	mu      sync.RWMutex
	mode    domain.ViewMode
	lastErr error
}

// NewViewController creates a view controller over the given services.
func NewViewController(
	backend driven.DocumentBackend,
	cache driven.AnalysisCache,
	store *DocumentStore,
	scheduler *PollingScheduler,
	uploads *UploadCoordinator,
	deletions *DeletionCoordinator,
) *ViewController {
	c := &ViewController{
		backend:   backend,
		cache:     cache,
		store:     store,
		scheduler: scheduler,
		uploads:   uploads,
		deletions: deletions,
		mode:      domain.ViewUpload,
	}
	uploads.setObserver(c.observePoll)
	return c
}

// Mount refreshes the list, selects the most recent document when nothing
// is selected and loads its analysis. Documents still in flight get a
// background poll.
func (c *ViewController) Mount(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}

	docs := c.store.List()
	if len(docs) > 0 && c.store.SelectedID() == "" {
		if err := c.store.Select(docs[0].ID); err == nil && docs[0].Status == domain.StatusCompleted {
			c.load(ctx, docs[0])
		}
	}
	return nil
}

// Refresh replaces the store with the backend's list. Polls for documents
// the backend no longer lists are cancelled, and cached analyses of
// documents that are gone or not completed are evicted. Documents still
// in flight are polled.
func (c *ViewController) Refresh(ctx context.Context) error {
	docs, err := c.backend.ListDocuments(ctx)
	if err != nil {
		err = fmt.Errorf("refresh documents: %w", err)
		c.setErr(err)
		return err
	}

	for _, id := range c.store.ReplaceAll(docs) {
		c.scheduler.Cancel(id)
	}
	c.evictStale(ctx)
	for _, d := range c.store.List() {
		if !d.Status.IsTerminal() {
			c.scheduler.Schedule(d.ID, 0, c.observePoll)
		}
	}
	c.setErr(nil)
	logger.Debug("refresh: %d documents", len(docs))
	return nil
}

// SwitchView changes the active view. Entering Trends acknowledges the
// results-ready signal and loads the selected analysis (or the most recent
// one when nothing is selected) if it is not cached yet.
func (c *ViewController) SwitchView(ctx context.Context, mode domain.ViewMode) error {
	switch mode {
	case domain.ViewUpload, domain.ViewHistory, domain.ViewTrends:
	default:
		return fmt.Errorf("%w: unknown view %d", domain.ErrInvalidInput, mode)
	}

	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()

	if mode == domain.ViewTrends {
		c.uploads.AcknowledgeResults()
		if rec, ok := c.trendsTarget(); ok && rec.Status != domain.StatusFailed {
			c.load(ctx, rec)
		}
	}
	c.store.notify()
	return nil
}

// trendsTarget is the selected document, falling back to the most recent.
func (c *ViewController) trendsTarget() (domain.DocumentRecord, bool) {
	if rec, ok := c.store.Selected(); ok {
		return rec, true
	}
	docs := c.store.List()
	if len(docs) == 0 {
		return domain.DocumentRecord{}, false
	}
	if err := c.store.Select(docs[0].ID); err != nil {
		return domain.DocumentRecord{}, false
	}
	return docs[0], true
}

// Select marks a document as selected. Only completed documents have
// their analysis loaded.
func (c *ViewController) Select(ctx context.Context, documentID string) error {
	if err := c.store.Select(documentID); err != nil {
		return fmt.Errorf("select %s: %w", documentID, err)
	}
	if rec, ok := c.store.Get(documentID); ok && rec.Status == domain.StatusCompleted {
		c.load(ctx, rec)
	}
	return nil
}

// Open selects a completed document, switches to Trends and loads its
// analysis. Documents that are not completed are left alone.
func (c *ViewController) Open(ctx context.Context, documentID string) (bool, error) {
	rec, ok := c.store.Get(documentID)
	if !ok {
		return false, fmt.Errorf("open %s: %w", documentID, domain.ErrNotFound)
	}
	if rec.Status != domain.StatusCompleted {
		return false, nil
	}
	if err := c.store.Select(documentID); err != nil {
		return false, fmt.Errorf("open %s: %w", documentID, err)
	}

	c.mu.Lock()
	c.mode = domain.ViewTrends
	c.mu.Unlock()
	c.uploads.AcknowledgeResults()
	c.load(ctx, rec)
	c.store.notify()
	return true, nil
}

// Drop submits files for upload.
func (c *ViewController) Drop(ctx context.Context, files []domain.FileHandle) (*domain.UploadReport, error) {
	report, err := c.uploads.Submit(ctx, files)
	c.setErr(err)
	return report, err
}

// Delete removes a document after confirmation.
func (c *ViewController) Delete(ctx context.Context, documentID string, confirm driving.ConfirmFunc) (bool, error) {
	ok, err := c.deletions.Delete(ctx, documentID, confirm)
	c.setErr(err)
	return ok, err
}

// AcknowledgeResults clears the results-ready signal.
func (c *ViewController) AcknowledgeResults() {
	c.uploads.AcknowledgeResults()
	c.store.notify()
}

// AwaitPolls blocks until every poll has ended or ctx is done.
func (c *ViewController) AwaitPolls(ctx context.Context) error {
	return c.scheduler.Wait(ctx)
}

// Analysis returns the cached analysis of a document, polling until it
// is ready when nothing is cached. If a background poll already owns the
// document it waits for that poll instead of starting another. Documents
// missing from the list are not found without a network call.
func (c *ViewController) Analysis(ctx context.Context, documentID string) (*domain.AnalysisResult, error) {
	if !c.store.Has(documentID) {
		return nil, fmt.Errorf("analysis %s: %w", documentID, domain.ErrNotFound)
	}
	if a, ok := c.cached(ctx, documentID); ok {
		return a, nil
	}

	out, err := c.scheduler.PollUntilReady(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !out.Skipped {
		return out.Result, nil
	}

	if err := c.scheduler.WaitFor(ctx, documentID); err != nil {
		return nil, err
	}
	if a, ok := c.cached(ctx, documentID); ok {
		return a, nil
	}
	return nil, fmt.Errorf("analysis %s: %w", documentID, domain.ErrNotFound)
}

// Trends returns the history of a test across documents.
func (c *ViewController) Trends(ctx context.Context, documentID, testName string) (*domain.TrendReport, error) {
	report, err := c.backend.GetTrends(ctx, documentID, testName)
	if err != nil {
		return nil, fmt.Errorf("trends for %s: %w", documentID, err)
	}
	return report, nil
}

// Projection returns a read-only snapshot of the orchestration state.
func (c *ViewController) Projection() domain.Projection {
	ctx := context.Background()
	docs, selectedID := c.store.Snapshot()

	state := domain.OrchestrationState{
		Documents:      docs,
		SelectedID:     selectedID,
		AnalysisByDoc:  make(map[string]*domain.AnalysisResult),
		PendingUploads: c.uploads.PendingUploads(),
		ActivePolls:    c.scheduler.Active(),
	}
	keys, err := c.cache.Keys(ctx)
	if err != nil {
		logger.Warn("list cached analyses: %v", err)
	}
	cachedIDs := make(map[string]bool, len(keys))
	for _, id := range keys {
		cachedIDs[id] = true
	}
	for _, d := range docs {
		if d.Status != domain.StatusCompleted || !cachedIDs[d.ID] {
			continue
		}
		if a, ok := c.cached(ctx, d.ID); ok {
			state.AnalysisByDoc[d.ID] = a
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.Projection{
		State:            state,
		Mode:             c.mode,
		ResultsReady:     c.uploads.ResultsReady(),
		SelectedAnalysis: state.AnalysisByDoc[selectedID],
		LastError:        c.lastErr,
	}
}

// Subscribe registers fn to run after every state change.
func (c *ViewController) Subscribe(fn func()) func() {
	return c.store.Subscribe(fn)
}

// Close cancels outstanding polls and waits for them to stop.
func (c *ViewController) Close() {
	c.scheduler.Stop()
}

// load schedules an analysis fetch unless the analysis is cached.
// Scheduling is idempotent per document.
func (c *ViewController) load(ctx context.Context, rec domain.DocumentRecord) {
	if _, ok := c.cached(ctx, rec.ID); ok {
		return
	}
	c.scheduler.Schedule(rec.ID, 0, c.observePoll)
}

func (c *ViewController) cached(ctx context.Context, documentID string) (*domain.AnalysisResult, bool) {
	a, err := c.cache.Get(ctx, documentID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("read cached analysis %s: %v", documentID, err)
		}
		return nil, false
	}
	return a, true
}

// evictStale drops cached analyses whose document is gone or not completed.
func (c *ViewController) evictStale(ctx context.Context) {
	keys, err := c.cache.Keys(ctx)
	if err != nil {
		logger.Warn("list cached analyses: %v", err)
		return
	}
	for _, id := range keys {
		if rec, ok := c.store.Get(id); ok && rec.Status == domain.StatusCompleted {
			continue
		}
		if err := c.cache.Delete(ctx, id); err != nil {
			logger.Warn("evict cached analysis %s: %v", id, err)
		}
	}
}

// observePoll surfaces polls that gave up on a document.
func (c *ViewController) observePoll(out domain.PollOutcome, err error) {
	if err != nil && errors.Is(err, domain.ErrRetryBudgetExhausted) {
		c.setErr(err)
	}
}

func (c *ViewController) setErr(err error) {
	c.mu.Lock()
	changed := c.lastErr != nil || err != nil
	c.lastErr = err
	c.mu.Unlock()
	if changed {
		c.store.notify()
	}
}
