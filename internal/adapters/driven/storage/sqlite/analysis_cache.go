package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
)

// analysisCache implements driven.AnalysisCache.
type analysisCache struct {
	store *Store
}

var _ driven.AnalysisCache = (*analysisCache)(nil)

// Get retrieves the analysis of a document. Payloads decoded once are
// served from memory afterwards.
func (c *analysisCache) Get(ctx context.Context, documentID string) (*domain.AnalysisResult, error) {
	if a, ok := c.memoized(documentID); ok {
		return a, nil
	}

	var payload string
	err := c.store.db.QueryRowContext(ctx,
		"SELECT payload FROM analyses WHERE document_id = ?", documentID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis: %w", err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("unmarshalling analysis %s: %w", documentID, err)
	}
	c.remember(documentID, &result)
	return result.Clone(), nil
}

// Put stores or replaces an analysis.
func (c *analysisCache) Put(ctx context.Context, result *domain.AnalysisResult) error {
	if result == nil || result.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshalling analysis: %w", err)
	}

	_, err = c.store.db.ExecContext(ctx, `
		INSERT INTO analyses (document_id, document_type, overall_status, processed_at, payload, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			document_type = excluded.document_type,
			overall_status = excluded.overall_status,
			processed_at = excluded.processed_at,
			payload = excluded.payload,
			cached_at = excluded.cached_at
	`, result.DocumentID, nullString(result.DocumentType), result.OverallStatus.String(),
		formatNullableTime(result.ProcessedAt), string(payload),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	c.remember(result.DocumentID, result.Clone())
	return nil
}

// Delete evicts an analysis.
func (c *analysisCache) Delete(ctx context.Context, documentID string) error {
	_, err := c.store.db.ExecContext(ctx, "DELETE FROM analyses WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting analysis: %w", err)
	}
	c.forget(documentID)
	return nil
}

// Keys returns the cached document IDs in lexical order.
func (c *analysisCache) Keys(ctx context.Context) ([]string, error) {
	rows, err := c.store.db.QueryContext(ctx, "SELECT document_id FROM analyses ORDER BY document_id")
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	var keys []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning analysis key: %w", err)
		}
		keys = append(keys, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analyses: %w", err)
	}
	return keys, nil
}

func (c *analysisCache) memoized(documentID string) (*domain.AnalysisResult, bool) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	a, ok := c.store.decoded[documentID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func (c *analysisCache) remember(documentID string, a *domain.AnalysisResult) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.decoded == nil {
		c.store.decoded = make(map[string]*domain.AnalysisResult)
	}
	c.store.decoded[documentID] = a
}

func (c *analysisCache) forget(documentID string) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	delete(c.store.decoded, documentID)
}

// ==================== Helper Functions ====================

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatNullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}
