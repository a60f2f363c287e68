package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// UploadConfig controls file submission.
type UploadConfig struct {
	// InitialPollDelay is the wait between upload and the first poll.
	InitialPollDelay time.Duration

	// Concurrency is how many files upload at once. 1 uploads sequentially.
	Concurrency int

	// MaxFileSize overrides domain.MaxUploadSize when positive.
	MaxFileSize int64
}

// UploadCoordinator validates and submits files, inserts placeholder
// records and schedules their polls.
type UploadCoordinator struct {
	backend   driven.DocumentBackend
	store     *DocumentStore
	scheduler *PollingScheduler
	inspector driven.FileInspector
	metrics   driven.OrchestrationMetrics
	config    UploadConfig
	now       func() time.Time

	mu       sync.Mutex
	pending  map[string]int
	observer func(domain.PollOutcome, error)

	resultsReady atomic.Bool
}

// NewUploadCoordinator creates an upload coordinator.
// inspector may be nil.
func NewUploadCoordinator(
	backend driven.DocumentBackend,
	store *DocumentStore,
	scheduler *PollingScheduler,
	inspector driven.FileInspector,
	config UploadConfig,
) *UploadCoordinator {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = domain.MaxUploadSize
	}
	if config.InitialPollDelay < 0 {
		config.InitialPollDelay = 0
	}
	return &UploadCoordinator{
		backend:   backend,
		store:     store,
		scheduler: scheduler,
		inspector: inspector,
		config:    config,
		now:       time.Now,
		pending:   make(map[string]int),
	}
}

// WithMetrics attaches a metrics recorder.
func (c *UploadCoordinator) WithMetrics(m driven.OrchestrationMetrics) *UploadCoordinator {
	c.metrics = m
	return c
}

// Submit validates every file, then uploads the accepted ones.
// The report lists a result per file in submission order; the returned
// error joins every per-file failure.
func (c *UploadCoordinator) Submit(ctx context.Context, files []domain.FileHandle) (*domain.UploadReport, error) {
	report := &domain.UploadReport{Results: make([]domain.UploadResult, len(files))}

	accepted := make([]int, 0, len(files))
	for i, f := range files {
		report.Results[i].Filename = f.Name
		if err := f.Validate(c.config.MaxFileSize); err != nil {
			report.Results[i].Err = err
			c.recordUpload(err)
			logger.Debug("upload: rejected %s: %v", f.Name, err)
			continue
		}
		accepted = append(accepted, i)
	}

	// A failed upload must not cancel the others, so no shared context.
	var g errgroup.Group
	g.SetLimit(c.config.Concurrency)
	for _, i := range accepted {
		i := i
		g.Go(func() error {
			rec, err := c.submitOne(ctx, files[i])
			report.Results[i].Record = rec
			report.Results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range report.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return report, errors.Join(errs...)
}

func (c *UploadCoordinator) submitOne(ctx context.Context, f domain.FileHandle) (*domain.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.Name, err)
	}

	c.markPending(f.Name)
	defer c.unmarkPending(f.Name)

	data, err := c.read(f)
	if err != nil {
		c.recordUpload(err)
		return nil, err
	}
	if c.inspector != nil {
		if err := c.inspector.Inspect(ctx, f.Name, bytes.NewReader(data)); err != nil {
			c.recordUpload(err)
			return nil, err
		}
	}

	id, err := c.backend.Upload(ctx, f.Name, bytes.NewReader(data))
	c.recordUpload(err)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.Name, err)
	}

	rec := domain.DocumentRecord{
		ID:         id,
		Filename:   f.Name,
		FileType:   domain.ContentTypeFor(f.Name),
		UploadTime: c.now(),
		Status:     domain.StatusProcessing,
	}
	c.store.Upsert(rec)
	c.scheduler.Schedule(id, c.config.InitialPollDelay, c.onPollDone)
	logger.Info("upload: %s accepted as %s", f.Name, id)
	return &rec, nil
}

// read loads the file, enforcing the size cap on the actual content.
func (c *UploadCoordinator) read(f domain.FileHandle) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &domain.ValidationError{Filename: f.Name, Reason: fmt.Sprintf("cannot open file: %v", err)}
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, c.config.MaxFileSize+1))
	if err != nil {
		return nil, &domain.ValidationError{Filename: f.Name, Reason: fmt.Sprintf("cannot read file: %v", err)}
	}
	if int64(len(data)) > c.config.MaxFileSize {
		return nil, &domain.ValidationError{
			Filename: f.Name,
			Reason:   fmt.Sprintf("file exceeds the limit of %d bytes", c.config.MaxFileSize),
		}
	}
	return data, nil
}

func (c *UploadCoordinator) onPollDone(out domain.PollOutcome, err error) {
	if out.Succeeded() {
		c.resultsReady.Store(true)
		c.store.notify()
	}
	c.mu.Lock()
	observer := c.observer
	c.mu.Unlock()
	if observer != nil {
		observer(out, err)
	}
}

// setObserver registers a callback for polls scheduled by uploads.
func (c *UploadCoordinator) setObserver(fn func(domain.PollOutcome, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// ResultsReady reports whether an upload's analysis arrived since the
// last acknowledgement.
func (c *UploadCoordinator) ResultsReady() bool {
	return c.resultsReady.Load()
}

// AcknowledgeResults clears the results-ready signal.
func (c *UploadCoordinator) AcknowledgeResults() {
	c.resultsReady.Store(false)
}

// PendingUploads returns the filenames being uploaded, sorted.
func (c *UploadCoordinator) PendingUploads() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.SortedKeys(c.pending)
}

func (c *UploadCoordinator) markPending(name string) {
	c.mu.Lock()
	c.pending[name]++
	c.mu.Unlock()
	c.store.notify()
}

func (c *UploadCoordinator) unmarkPending(name string) {
	c.mu.Lock()
	if c.pending[name] <= 1 {
		delete(c.pending, name)
	} else {
		c.pending[name]--
	}
	c.mu.Unlock()
	c.store.notify()
}

func (c *UploadCoordinator) recordUpload(err error) {
	if c.metrics != nil {
		c.metrics.UploadFinished(err)
	}
}
