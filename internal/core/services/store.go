package services

import (
	"sync"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// DocumentStore holds the locally known document records and the
// selected document. Every mutation notifies subscribers.
type DocumentStore struct {
	mu         sync.RWMutex
	documents  []domain.DocumentRecord
	selectedID string

	subMu  sync.Mutex
	nextID int
	subs   map[int]func()
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{subs: make(map[int]func())}
}

// List returns the records in recency order.
func (s *DocumentStore) List() []domain.DocumentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DocumentRecord(nil), s.documents...)
}

// Snapshot returns the records and the selected ID read under one lock.
func (s *DocumentStore) Snapshot() ([]domain.DocumentRecord, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DocumentRecord(nil), s.documents...), s.selectedID
}

// Get returns the record for id.
func (s *DocumentStore) Get(id string) (domain.DocumentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.documents {
		if d.ID == id {
			return d, true
		}
	}
	return domain.DocumentRecord{}, false
}

// Has reports whether a record exists for id.
func (s *DocumentStore) Has(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Upsert inserts rec or merges it into the record with the same ID.
func (s *DocumentStore) Upsert(rec domain.DocumentRecord) {
	if rec.ID == "" {
		return
	}
	s.mu.Lock()
	s.documents = domain.UpsertRecord(s.documents, rec)
	s.mu.Unlock()
	s.notify()
}

// ReplaceAll swaps in a server snapshot and returns the IDs it dropped.
// A selection that no longer resolves is cleared.
func (s *DocumentStore) ReplaceAll(records []domain.DocumentRecord) []string {
	s.mu.Lock()
	next, removed := domain.ReplaceRecords(s.documents, records)
	s.documents = next
	s.selectedID = domain.ReconcileSelection(next, s.selectedID)
	s.mu.Unlock()
	s.notify()
	return removed
}

// Remove deletes the record for id, clearing the selection if it pointed there.
func (s *DocumentStore) Remove(id string) bool {
	s.mu.Lock()
	next, ok := domain.RemoveRecord(s.documents, id)
	if ok {
		s.documents = next
		if s.selectedID == id {
			s.selectedID = ""
		}
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// Select marks id as selected. Returns domain.ErrNotFound for unknown IDs.
func (s *DocumentStore) Select(id string) error {
	s.mu.Lock()
	if domain.ReconcileSelection(s.documents, id) == "" {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	changed := s.selectedID != id
	s.selectedID = id
	s.mu.Unlock()
	if changed {
		s.notify()
	}
	return nil
}

// ClearSelection drops the selection.
func (s *DocumentStore) ClearSelection() {
	s.mu.Lock()
	changed := s.selectedID != ""
	s.selectedID = ""
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// SelectedID returns the selected document ID, or empty.
func (s *DocumentStore) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// Selected returns the selected record.
func (s *DocumentStore) Selected() (domain.DocumentRecord, bool) {
	id := s.SelectedID()
	if id == "" {
		return domain.DocumentRecord{}, false
	}
	return s.Get(id)
}

// SetStatus advances the status of a record. Unknown IDs and
// regressions are ignored.
func (s *DocumentStore) SetStatus(id string, status domain.Status) bool {
	s.mu.Lock()
	next, changed := domain.SetRecordStatus(s.documents, id, status)
	if changed {
		s.documents = next
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
	return changed
}

// Subscribe registers fn to run after every mutation.
// fn runs outside the store lock and may read the store.
func (s *DocumentStore) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *DocumentStore) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
