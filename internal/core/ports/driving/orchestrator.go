package driving

import (
	"context"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// AlwaysConfirm answers yes without asking. Used by --yes flags.
func AlwaysConfirm(context.Context, string) (bool, error) {
	return true, nil
}

// Orchestrator turns user intents into document lifecycle operations.
// Renderers call it and redraw from Projection; they never mutate state.
type Orchestrator interface {
	// Mount refreshes the document list and loads the most recent analysis.
	Mount(ctx context.Context) error

	// Refresh re-derives the document list from the backend.
	Refresh(ctx context.Context) error

	// SwitchView changes the active view. Entering Trends lazily loads
	// the selected analysis when it is not cached.
	SwitchView(ctx context.Context, mode domain.ViewMode) error

	// Select marks a document as selected.
	Select(ctx context.Context, documentID string) error

	// Open selects a completed document and shows its analysis.
	// Returns false when the document is not completed.
	Open(ctx context.Context, documentID string) (bool, error)

	// Drop submits files for upload.
	Drop(ctx context.Context, files []domain.FileHandle) (*domain.UploadReport, error)

	// Delete removes a document after confirmation.
	Delete(ctx context.Context, documentID string, confirm ConfirmFunc) (bool, error)

	// AcknowledgeResults clears the results-ready signal.
	AcknowledgeResults()

	// AwaitPolls blocks until no poll is active or ctx is done.
	AwaitPolls(ctx context.Context) error

	// Analysis returns the analysis of a document, polling until ready
	// when it is not cached.
	Analysis(ctx context.Context, documentID string) (*domain.AnalysisResult, error)

	// Trends returns the history of a test across documents.
	Trends(ctx context.Context, documentID, testName string) (*domain.TrendReport, error)

	// Projection returns a read-only snapshot for rendering.
	Projection() domain.Projection

	// Subscribe registers fn to run after every state change.
	// The returned func unsubscribes.
	Subscribe(fn func()) func()

	// Close cancels outstanding polls and waits for them to stop.
	Close()
}
