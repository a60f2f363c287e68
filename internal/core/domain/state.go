package domain

import "sort"

// ViewMode identifies which of the mutually exclusive views is active.
type ViewMode int

const (
	// ViewUpload is the file drop view.
	ViewUpload ViewMode = iota
	// ViewHistory lists every known document.
	ViewHistory
	// ViewTrends shows the analysis of the selected document.
	ViewTrends
)

// String returns the string representation of the view mode.
func (v ViewMode) String() string {
	switch v {
	case ViewUpload:
		return "upload"
	case ViewHistory:
		return "history"
	case ViewTrends:
		return "trends"
	default:
		return "unknown"
	}
}

// OrchestrationState is an immutable snapshot of everything the client
// knows about its documents. Renderers read it; only core services build it.
type OrchestrationState struct {
	// Documents in recency order, most recent first.
	Documents []DocumentRecord

	// SelectedID is the selected document, or empty.
	SelectedID string

	// AnalysisByDoc holds cached analyses of COMPLETED documents.
	AnalysisByDoc map[string]*AnalysisResult

	// PendingUploads are filenames whose upload request is in flight.
	PendingUploads []string

	// ActivePolls are document IDs with a poll scheduled or running.
	ActivePolls []string
}

// Document returns the record with the given ID.
func (s OrchestrationState) Document(id string) (DocumentRecord, bool) {
	i := indexOf(s.Documents, id)
	if i < 0 {
		return DocumentRecord{}, false
	}
	return s.Documents[i], true
}

// Selected returns the selected record, if any.
func (s OrchestrationState) Selected() (DocumentRecord, bool) {
	if s.SelectedID == "" {
		return DocumentRecord{}, false
	}
	return s.Document(s.SelectedID)
}

// IsPolling reports whether a poll is active for the document.
func (s OrchestrationState) IsPolling(id string) bool {
	for _, p := range s.ActivePolls {
		if p == id {
			return true
		}
	}
	return false
}

// Projection is the read-only view model handed to renderers.
type Projection struct {
	State OrchestrationState

	// Mode is the active view.
	Mode ViewMode

	// ResultsReady is set once a scheduled poll has produced an analysis
	// the user has not looked at yet.
	ResultsReady bool

	// SelectedAnalysis is the cached analysis of the selected document.
	SelectedAnalysis *AnalysisResult

	// LastError is the most recent user-facing error.
	LastError error
}

// AdvanceStatus returns the status a record should hold after observing
// next. Statuses never move backwards along the lifecycle and terminal
// statuses are final; only a full refresh re-derives them.
func AdvanceStatus(current, next Status) Status {
	if !next.IsValid() || current.IsTerminal() {
		return current
	}
	if !current.IsValid() || next.rank() >= current.rank() {
		return next
	}
	return current
}

// UpsertRecord inserts rec at the front of docs or merges it into the
// record with the same ID. Merging keeps the later lifecycle status and
// any fields the incoming record leaves empty. docs is not modified.
func UpsertRecord(docs []DocumentRecord, rec DocumentRecord) []DocumentRecord {
	i := indexOf(docs, rec.ID)
	if i < 0 {
		out := make([]DocumentRecord, 0, len(docs)+1)
		out = append(out, rec)
		return append(out, docs...)
	}

	out := append([]DocumentRecord(nil), docs...)
	merged := out[i]
	merged.Status = AdvanceStatus(merged.Status, rec.Status)
	if rec.Filename != "" {
		merged.Filename = rec.Filename
	}
	if rec.FileType != "" {
		merged.FileType = rec.FileType
	}
	if !rec.UploadTime.IsZero() {
		merged.UploadTime = rec.UploadTime
	}
	if rec.DocumentType != "" {
		merged.DocumentType = rec.DocumentType
	}
	out[i] = merged
	return out
}

// ReplaceRecords derives a fresh record list from a server snapshot.
// Duplicate IDs keep their first occurrence. It also returns the IDs of
// previous that the snapshot no longer lists.
func ReplaceRecords(previous, snapshot []DocumentRecord) (next []DocumentRecord, removed []string) {
	seen := make(map[string]struct{}, len(snapshot))
	next = make([]DocumentRecord, 0, len(snapshot))
	for _, rec := range snapshot {
		if rec.ID == "" {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		next = append(next, rec)
	}
	for _, rec := range previous {
		if _, ok := seen[rec.ID]; !ok {
			removed = append(removed, rec.ID)
		}
	}
	return next, removed
}

// RemoveRecord returns docs without the record for id.
func RemoveRecord(docs []DocumentRecord, id string) ([]DocumentRecord, bool) {
	i := indexOf(docs, id)
	if i < 0 {
		return docs, false
	}
	out := make([]DocumentRecord, 0, len(docs)-1)
	out = append(out, docs[:i]...)
	return append(out, docs[i+1:]...), true
}

// SetRecordStatus advances the status of the record for id.
// It reports false when no such record exists or nothing changed.
func SetRecordStatus(docs []DocumentRecord, id string, status Status) ([]DocumentRecord, bool) {
	i := indexOf(docs, id)
	if i < 0 {
		return docs, false
	}
	next := AdvanceStatus(docs[i].Status, status)
	if next == docs[i].Status {
		return docs, false
	}
	out := append([]DocumentRecord(nil), docs...)
	out[i].Status = next
	return out, true
}

// ReconcileSelection clears selectedID when it no longer references a record.
func ReconcileSelection(docs []DocumentRecord, selectedID string) string {
	if selectedID == "" || indexOf(docs, selectedID) < 0 {
		return ""
	}
	return selectedID
}

// SortedKeys returns the keys of a set in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(docs []DocumentRecord, id string) int {
	for i := range docs {
		if docs[i].ID == id {
			return i
		}
	}
	return -1
}
