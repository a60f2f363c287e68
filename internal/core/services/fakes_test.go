package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// --- Fake implementations of the driven ports ---

type analysisStep struct {
	result *domain.AnalysisResult
	err    error
}

func ready(id string) analysisStep {
	return analysisStep{result: &domain.AnalysisResult{
		DocumentID:    id,
		DocumentType:  "Lab Results",
		OverallStatus: domain.FindingNormal,
		Findings:      []domain.Finding{{TestName: "Glucose", Status: domain.FindingNormal}},
	}}
}

func notReady(id string) analysisStep {
	return analysisStep{err: &domain.NotReadyError{DocumentID: id, StatusCode: 404}}
}

func serverFailure() analysisStep {
	return analysisStep{err: &domain.ServerError{Op: "get analysis", StatusCode: 500}}
}

// fakeBackend scripts the document analysis backend.
type fakeBackend struct {
	mu sync.Mutex

	docs    []domain.DocumentRecord
	listErr error

	nextID      int
	uploadErr   map[string]error
	uploaded    map[string][]byte
	uploadCalls []string

	// scripts holds per-document analysis answers. The last step repeats.
	scripts       map[string][]analysisStep
	analysisCalls map[string]int
	gate          chan struct{}

	deleteErr error
	deleted   []string

	trends *domain.TrendReport
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		uploadErr:     make(map[string]error),
		uploaded:      make(map[string][]byte),
		scripts:       make(map[string][]analysisStep),
		analysisCalls: make(map[string]int),
	}
}

func (f *fakeBackend) script(id string, steps ...analysisStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[id] = steps
}

func (f *fakeBackend) calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analysisCalls[id]
}

func (f *fakeBackend) totalAnalysisCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.analysisCalls {
		n += c
	}
	return n
}

func (f *fakeBackend) ListDocuments(_ context.Context) ([]domain.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.DocumentRecord(nil), f.docs...), nil
}

func (f *fakeBackend) Upload(_ context.Context, filename string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls = append(f.uploadCalls, filename)
	if err := f.uploadErr[filename]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.uploaded[id] = data
	return id, nil
}

func (f *fakeBackend) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	f.mu.Lock()
	f.analysisCalls[id]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &domain.NetworkError{Op: "get analysis", Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	steps := f.scripts[id]
	if len(steps) == 0 {
		return nil, &domain.NotReadyError{DocumentID: id, StatusCode: 404}
	}
	step := steps[0]
	if len(steps) > 1 {
		f.scripts[id] = steps[1:]
	}
	if step.result != nil {
		return step.result.Clone(), step.err
	}
	return nil, step.err
}

func (f *fakeBackend) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) GetTrends(_ context.Context, id, testName string) (*domain.TrendReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trends == nil {
		return nil, &domain.ServerError{Op: "get trends", StatusCode: 404}
	}
	out := *f.trends
	if testName != "" {
		out.TestName = testName
	}
	return &out, nil
}

// fakeCache is an in-memory AnalysisCache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*domain.AnalysisResult
	getErr  error
	gets    int

	// onPut runs before an entry is written.
	onPut func(id string)
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.AnalysisResult)}
}

func (c *fakeCache) Get(_ context.Context, id string) (*domain.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	a, ok := c.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a.Clone(), nil
}

func (c *fakeCache) Put(_ context.Context, a *domain.AnalysisResult) error {
	if c.onPut != nil {
		c.onPut(a.DocumentID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[a.DocumentID] = a.Clone()
	return nil
}

func (c *fakeCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

func (c *fakeCache) Keys(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *fakeCache) getCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

func (c *fakeCache) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// fakeMetrics counts recorded events.
type fakeMetrics struct {
	mu       sync.Mutex
	uploads  []error
	attempts map[string]int
	started  int
	finished int
	deletes  []error
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{attempts: make(map[string]int)}
}

func (m *fakeMetrics) UploadFinished(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, err)
}

func (m *fakeMetrics) PollStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *fakeMetrics) PollFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished++
}

func (m *fakeMetrics) PollAttempt(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[outcome]++
}

func (m *fakeMetrics) DeleteFinished(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, err)
}

// fakeInspector rejects files whose content starts with "BAD".
type fakeInspector struct{}

func (fakeInspector) Inspect(_ context.Context, name string, content io.ReadSeeker) error {
	b, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	if strings.HasPrefix(string(b), "BAD") {
		return &domain.ValidationError{Filename: name, Reason: "corrupt content"}
	}
	return nil
}

// fakeConfigStore is an in-memory ConfigStore.
type fakeConfigStore struct {
	values map[string]any
	setErr error
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{values: make(map[string]any)}
}

func (c *fakeConfigStore) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *fakeConfigStore) GetString(key string) string {
	s, _ := c.values[key].(string)
	return s
}

func (c *fakeConfigStore) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *fakeConfigStore) Set(key string, value any) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.values[key] = value
	return nil
}

func (c *fakeConfigStore) Save() error  { return nil }
func (c *fakeConfigStore) Load() error  { return nil }
func (c *fakeConfigStore) Path() string { return "/tmp/patiently/config.toml" }

// --- Helpers ---

// waitRecorder replaces real sleeps and records requested delays.
type waitRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (w *waitRecorder) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.delays = append(w.delays, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *waitRecorder) recorded() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.delays...)
}

type harness struct {
	backend   *fakeBackend
	cache     *fakeCache
	store     *DocumentStore
	scheduler *PollingScheduler
	uploads   *UploadCoordinator
	deletions *DeletionCoordinator
	ctrl      *ViewController
	waits     *waitRecorder
}

func newHarness() *harness {
	h := &harness{
		backend: newFakeBackend(),
		cache:   newFakeCache(),
		store:   NewDocumentStore(),
		waits:   &waitRecorder{},
	}
	h.scheduler = NewPollingScheduler(h.backend, h.cache, h.store, PollingConfig{
		RetryDelay:    2 * time.Second,
		BackoffFactor: 2,
		MaxBackoff:    10 * time.Second,
		MaxFailures:   3,
	})
	h.scheduler.wait = h.waits.wait
	h.uploads = NewUploadCoordinator(h.backend, h.store, h.scheduler, nil, UploadConfig{
		InitialPollDelay: 3 * time.Second,
		Concurrency:      1,
	})
	h.deletions = NewDeletionCoordinator(h.backend, h.store, h.cache, h.scheduler)
	h.ctrl = NewViewController(h.backend, h.cache, h.store, h.scheduler, h.uploads, h.deletions)
	return h
}

func fileOf(name, content string) domain.FileHandle {
	return domain.FileHandle{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func confirmWith(answer bool) func(context.Context, string) (bool, error) {
	return func(context.Context, string) (bool, error) { return answer, nil }
}
