package driven

import (
	"context"
	"io"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// DocumentBackend is the remote document analysis service.
//
// Errors are classified with the domain sentinels:
// domain.ErrNetwork for transport failures, domain.ErrServer for non-2xx
// answers, and domain.ErrNotReady when an analysis is not available yet.
type DocumentBackend interface {
	// ListDocuments returns every document the backend knows, most recent first.
	ListDocuments(ctx context.Context) ([]domain.DocumentRecord, error)

	// Upload submits one file and returns the server-issued document ID.
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)

	// GetAnalysis fetches the analysis of a document.
	// Returns an error matching domain.ErrNotReady while processing continues.
	GetAnalysis(ctx context.Context, documentID string) (*domain.AnalysisResult, error)

	// DeleteDocument removes a document and its analysis.
	DeleteDocument(ctx context.Context, documentID string) error

	// GetTrends returns the history of a test across documents.
	// An empty testName lists the tests that have history.
	GetTrends(ctx context.Context, documentID, testName string) (*domain.TrendReport, error)
}
