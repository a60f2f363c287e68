// Package watch submits files that appear in a drop folder.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/files"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driving"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is submitted.
const DefaultSettle = time.Second

// ReportFunc receives the outcome of each submission.
type ReportFunc func(path string, report *domain.UploadReport, err error)

// Watcher submits accepted files created or written in a directory.
// Each file is submitted once per distinct size and modification time.
type Watcher struct {
	dir      string
	orch     driving.Orchestrator
	settle   time.Duration
	onReport ReportFunc

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]stamp
	ready   chan string
}

type stamp struct {
	size    int64
	modTime time.Time
}

// New creates a watcher for dir. settle <= 0 uses DefaultSettle.
func New(dir string, orch driving.Orchestrator, settle time.Duration, onReport ReportFunc) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:      dir,
		orch:     orch,
		settle:   settle,
		onReport: onReport,
		pending:  make(map[string]*time.Timer),
		seen:     make(map[string]stamp),
		ready:    make(chan string, 16),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: %w: not a directory", w.dir, domain.ErrInvalidInput)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("watch: watching %s", w.dir)

	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if path, accepted := w.handleFsEvent(event); accepted {
				w.schedule(ctx, path)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case path := <-w.ready:
			w.submit(ctx, path)
		}
	}
}

// handleFsEvent reports whether an event names a file worth submitting.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return "", false
	}
	if !domain.IsAcceptedFile(name) {
		logger.Debug("watch: ignoring %s", name)
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) submit(ctx context.Context, path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		logger.Debug("watch: %s vanished before upload", path)
		return
	}
	st := stamp{size: info.Size(), modTime: info.ModTime()}

	w.mu.Lock()
	prev, done := w.seen[path]
	w.mu.Unlock()
	if done && prev.size == st.size && prev.modTime.Equal(st.modTime) {
		return
	}

	handle, err := files.Open(path)
	if err != nil {
		w.report(path, nil, err)
		return
	}

	report, err := w.orch.Drop(ctx, []domain.FileHandle{handle})
	if err == nil {
		w.mu.Lock()
		w.seen[path] = st
		w.mu.Unlock()
	}
	w.report(path, report, err)
}

func (w *Watcher) report(path string, report *domain.UploadReport, err error) {
	if err != nil {
		logger.Warn("watch: %s: %v", filepath.Base(path), err)
	}
	if w.onReport != nil {
		w.onReport(path, report, err)
	}
}
