// Package messages defines Bubbletea message types for the TUI.
// Views emit intents as messages; the app turns them into orchestrator calls.
package messages

import (
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// StateChanged is sent whenever the orchestration state changes.
type StateChanged struct{}

// Mounted signals the initial (or a manual) full refresh finished.
type Mounted struct {
	Err error
}

// ViewChanged requests a switch to another view.
type ViewChanged struct {
	View domain.ViewMode
}

// ViewSwitched carries the result of a view switch.
type ViewSwitched struct {
	View domain.ViewMode
	Err  error
}

// FilesDropped asks for the given local paths to be uploaded.
type FilesDropped struct {
	Paths []string
}

// UploadCompleted carries the per-file outcome of a drop.
type UploadCompleted struct {
	Report *domain.UploadReport
	Err    error
}

// OpenRequested asks to show a document's analysis.
type OpenRequested struct {
	DocumentID string
}

// OpenCompleted reports whether the document could be opened.
type OpenCompleted struct {
	DocumentID string
	Opened     bool
	Err        error
}

// DeleteRequested asks to delete a document.
type DeleteRequested struct {
	DocumentID string
}

// DeleteCompleted reports the outcome of a deletion.
type DeleteCompleted struct {
	DocumentID string
	Deleted    bool
	Err        error
}

// ConfirmRequested carries a yes/no question from a running operation.
// The answer must be sent on Reply exactly once.
type ConfirmRequested struct {
	Prompt string
	Reply  chan<- bool
}

// RefreshRequested asks for the document list to be reloaded.
type RefreshRequested struct{}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
