package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// PollingConfig controls how analyses are polled.
type PollingConfig struct {
	// RetryDelay is the fixed wait after a not-ready answer.
	RetryDelay time.Duration

	// BackoffFactor multiplies the wait after each consecutive failure.
	BackoffFactor float64

	// MaxBackoff caps the wait between failed attempts.
	MaxBackoff time.Duration

	// MaxFailures is the failure budget before the document is marked FAILED.
	MaxFailures int

	// MaxWait bounds the total time spent polling. Zero means no bound.
	MaxWait time.Duration
}

// PollingConfigFrom builds a PollingConfig from settings.
func PollingConfigFrom(s domain.PollingSettings) PollingConfig {
	return PollingConfig{
		RetryDelay:    s.RetryDelay,
		BackoffFactor: s.BackoffFactor,
		MaxBackoff:    s.MaxBackoff,
		MaxFailures:   s.MaxFailures,
		MaxWait:       s.MaxWait,
	}
}

func (c PollingConfig) normalize() PollingConfig {
	defaults := domain.DefaultSettings().Polling
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaults.RetryDelay
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = defaults.BackoffFactor
	}
	if c.MaxBackoff < c.RetryDelay {
		c.MaxBackoff = c.RetryDelay
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = defaults.MaxFailures
	}
	if c.MaxWait < 0 {
		c.MaxWait = 0
	}
	return c
}

// pollToken is the cancellation scope of one poll.
type pollToken struct {
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool
}

// PollingScheduler fetches analyses until they are ready.
// At most one poll runs per document; each poll can be cancelled
// individually or all at once on Stop.
type PollingScheduler struct {
	backend driven.DocumentBackend
	cache   driven.AnalysisCache
	store   *DocumentStore
	config  PollingConfig
	metrics driven.OrchestrationMetrics

	// wait and now are replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time

	mu      sync.Mutex
	active  map[string]*pollToken
	changed chan struct{}
	stopped bool
	rootCtx context.Context
	rootEnd context.CancelFunc
	wg      sync.WaitGroup
}

// NewPollingScheduler creates a polling scheduler.
func NewPollingScheduler(
	backend driven.DocumentBackend,
	cache driven.AnalysisCache,
	store *DocumentStore,
	config PollingConfig,
) *PollingScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &PollingScheduler{
		backend: backend,
		cache:   cache,
		store:   store,
		config:  config.normalize(),
		wait:    sleepContext,
		now:     time.Now,
		active:  make(map[string]*pollToken),
		changed: make(chan struct{}),
		rootCtx: ctx,
		rootEnd: cancel,
	}
}

// WithMetrics attaches a metrics recorder.
func (s *PollingScheduler) WithMetrics(m driven.OrchestrationMetrics) *PollingScheduler {
	s.metrics = m
	return s
}

// PollUntilReady polls synchronously until the analysis is ready, the
// failure budget runs out or ctx is cancelled. If a poll for the document
// is already active it returns immediately with Skipped set and makes no
// network call.
func (s *PollingScheduler) PollUntilReady(ctx context.Context, documentID string) (domain.PollOutcome, error) {
	tok, err := s.reserve(ctx, documentID)
	if err != nil {
		return domain.PollOutcome{DocumentID: documentID, Err: err}, err
	}
	if tok == nil {
		return domain.PollOutcome{DocumentID: documentID, Skipped: true}, nil
	}
	defer s.wg.Done()
	defer s.release(documentID, tok)

	out, err := s.run(tok.ctx, documentID)
	out.Err = err
	return out, err
}

// Schedule reserves the document now and polls it in the background once
// delay has elapsed. onDone, if set, runs when the poll ends, before the
// document is released. It returns false when a poll for the document is
// already active.
func (s *PollingScheduler) Schedule(
	documentID string,
	delay time.Duration,
	onDone func(domain.PollOutcome, error),
) bool {
	tok, err := s.reserve(context.Background(), documentID)
	if err != nil || tok == nil {
		return false
	}

	go func() {
		defer s.wg.Done()

		var out domain.PollOutcome
		var err error
		if werr := s.wait(tok.ctx, delay); werr != nil {
			out = domain.PollOutcome{DocumentID: documentID}
			err = fmt.Errorf("poll %s: %w", documentID, domain.ErrPollCancelled)
		} else {
			out, err = s.run(tok.ctx, documentID)
		}
		out.Err = err

		if err != nil && !errors.Is(err, domain.ErrPollCancelled) {
			logger.Warn("%v", err)
		}
		if onDone != nil {
			onDone(out, err)
		}
		s.release(documentID, tok)
	}()
	return true
}

// Cancel stops the poll for a document. It reports whether one was active.
func (s *PollingScheduler) Cancel(documentID string) bool {
	s.mu.Lock()
	tok, ok := s.active[documentID]
	if ok {
		delete(s.active, documentID)
		s.signalLocked()
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	tok.cancel()
	logger.Debug("poll %s cancelled", documentID)
	s.store.notify()
	return true
}

// Active returns the IDs of documents being polled, sorted.
func (s *PollingScheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SortedKeys(s.active)
}

// IsActive reports whether a poll owns the document.
func (s *PollingScheduler) IsActive(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[documentID]
	return ok
}

// Wait blocks until no poll is active or ctx is done.
func (s *PollingScheduler) Wait(ctx context.Context) error {
	return s.waitUntil(ctx, func() bool { return len(s.active) == 0 })
}

// WaitFor blocks until no poll owns the document or ctx is done.
func (s *PollingScheduler) WaitFor(ctx context.Context, documentID string) error {
	return s.waitUntil(ctx, func() bool {
		_, ok := s.active[documentID]
		return !ok
	})
}

// waitUntil blocks until done, evaluated under s.mu, returns true.
func (s *PollingScheduler) waitUntil(ctx context.Context, done func() bool) error {
	for {
		s.mu.Lock()
		if done() {
			s.mu.Unlock()
			return nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Stop cancels every poll and waits for background polls to return.
// Polls cannot be started after Stop.
func (s *PollingScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.rootEnd()
	s.wg.Wait()
}

// reserve claims a document for polling. A nil token means another poll
// already owns it.
func (s *PollingScheduler) reserve(parent context.Context, documentID string) (*pollToken, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, fmt.Errorf("poll %s: %w", documentID, domain.ErrPollCancelled)
	}
	if _, busy := s.active[documentID]; busy {
		s.mu.Unlock()
		logger.Debug("poll %s already active, skipping", documentID)
		return nil, nil
	}

	ctx, cancel := context.WithCancel(parent)
	tok := &pollToken{ctx: ctx, cancel: cancel, stop: context.AfterFunc(s.rootCtx, cancel)}
	s.active[documentID] = tok
	s.wg.Add(1)
	s.signalLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.PollStarted()
	}
	s.store.notify()
	return tok, nil
}

// release frees the document unless Cancel already handed it to a newer poll.
func (s *PollingScheduler) release(documentID string, tok *pollToken) {
	tok.stop()
	tok.cancel()

	s.mu.Lock()
	if s.active[documentID] == tok {
		delete(s.active, documentID)
		s.signalLocked()
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.PollFinished()
	}
	s.store.notify()
}

// signalLocked wakes Wait callers. Callers hold s.mu.
func (s *PollingScheduler) signalLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *PollingScheduler) run(ctx context.Context, documentID string) (domain.PollOutcome, error) {
	out := domain.PollOutcome{DocumentID: documentID}
	cfg := s.config

	var deadline time.Time
	if cfg.MaxWait > 0 {
		deadline = s.now().Add(cfg.MaxWait)
	}
	failures := 0
	backoff := cfg.RetryDelay

	for {
		if ctx.Err() != nil {
			return out, fmt.Errorf("poll %s: %w", documentID, domain.ErrPollCancelled)
		}

		out.Attempts++
		result, err := s.backend.GetAnalysis(ctx, documentID)
		if err == nil {
			s.recordAttempt(driven.PollOutcomeReady)
			return s.complete(ctx, out, documentID, result), nil
		}
		if ctx.Err() != nil {
			return out, fmt.Errorf("poll %s: %w", documentID, domain.ErrPollCancelled)
		}

		var delay time.Duration
		if errors.Is(err, domain.ErrNotReady) {
			s.recordAttempt(driven.PollOutcomeNotReady)
			if !s.store.Has(documentID) {
				return out, fmt.Errorf("poll %s: %w", documentID, domain.ErrNotFound)
			}
			failures = 0
			backoff = cfg.RetryDelay
			delay = cfg.RetryDelay
			logger.Debug("poll %s: not ready (attempt %d)", documentID, out.Attempts)
		} else {
			s.recordAttempt(driven.PollOutcomeError)
			failures++
			if failures >= cfg.MaxFailures {
				return out, s.exhaust(documentID, err)
			}
			delay = backoff
			backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
			if backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
			logger.Warn("poll %s: attempt %d failed, retrying in %s: %v", documentID, out.Attempts, delay, err)
		}

		if !deadline.IsZero() && s.now().Add(delay).After(deadline) {
			return out, s.exhaust(documentID, fmt.Errorf("no analysis after %s: %w", cfg.MaxWait, err))
		}
		if err := s.wait(ctx, delay); err != nil {
			return out, fmt.Errorf("poll %s: %w", documentID, domain.ErrPollCancelled)
		}
		out.Retries++
	}
}

// complete stores a fetched analysis. Results for documents that were
// removed while the request was in flight are discarded, including a
// removal that lands while the analysis is being written.
func (s *PollingScheduler) complete(
	ctx context.Context,
	out domain.PollOutcome,
	documentID string,
	result *domain.AnalysisResult,
) domain.PollOutcome {
	result.DocumentID = documentID
	out.Result = result

	if !s.store.Has(documentID) {
		return s.discard(out, documentID)
	}
	if err := s.cache.Put(ctx, result); err != nil {
		logger.Warn("poll %s: cache analysis: %v", documentID, err)
	}
	// Deletion removes the record before it evicts the cache, so a record
	// still present here means any later eviction also covers this entry.
	if ctx.Err() != nil || !s.store.Has(documentID) {
		if err := s.cache.Delete(context.Background(), documentID); err != nil {
			logger.Warn("poll %s: evict discarded analysis: %v", documentID, err)
		}
		return s.discard(out, documentID)
	}
	s.store.SetStatus(documentID, domain.StatusCompleted)
	logger.Debug("poll %s: analysis ready after %d attempts", documentID, out.Attempts)
	return out
}

func (s *PollingScheduler) discard(out domain.PollOutcome, documentID string) domain.PollOutcome {
	out.Discarded = true
	logger.Debug("poll %s: document gone, discarding analysis", documentID)
	return out
}

// exhaust marks the document FAILED. A document that already completed
// keeps its status.
func (s *PollingScheduler) exhaust(documentID string, cause error) error {
	s.store.SetStatus(documentID, domain.StatusFailed)
	return fmt.Errorf("poll %s: %w: %w", documentID, domain.ErrRetryBudgetExhausted, cause)
}

func (s *PollingScheduler) recordAttempt(outcome string) {
	if s.metrics != nil {
		s.metrics.PollAttempt(outcome)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
