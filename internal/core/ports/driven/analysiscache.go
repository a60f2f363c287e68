package driven

import (
	"context"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// AnalysisCache holds completed analyses keyed by document ID.
// Backed by memory or SQLite.
type AnalysisCache interface {
	// Get retrieves the analysis of a document.
	// Returns domain.ErrNotFound if nothing is cached.
	Get(ctx context.Context, documentID string) (*domain.AnalysisResult, error)

	// Put stores or replaces an analysis.
	Put(ctx context.Context, result *domain.AnalysisResult) error

	// Delete evicts an analysis. Deleting a missing entry is not an error.
	Delete(ctx context.Context, documentID string) error

	// Keys returns the cached document IDs in lexical order.
	Keys(ctx context.Context) ([]string, error)
}
