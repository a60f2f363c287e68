package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
)

// Ensure AnalysisCache implements the interface.
var _ driven.AnalysisCache = (*AnalysisCache)(nil)

// AnalysisCache is an in-memory implementation of driven.AnalysisCache.
// Entries are deep-copied on the way in and out.
type AnalysisCache struct {
	mu      sync.RWMutex
	entries map[string]*domain.AnalysisResult
}

// NewAnalysisCache creates a new in-memory analysis cache.
func NewAnalysisCache() *AnalysisCache {
	return &AnalysisCache{
		entries: make(map[string]*domain.AnalysisResult),
	}
}

// Get retrieves the analysis of a document.
func (c *AnalysisCache) Get(_ context.Context, documentID string) (*domain.AnalysisResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a.Clone(), nil
}

// Put stores or replaces an analysis.
func (c *AnalysisCache) Put(_ context.Context, result *domain.AnalysisResult) error {
	if result == nil || result.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[result.DocumentID] = result.Clone()
	return nil
}

// Delete evicts an analysis.
func (c *AnalysisCache) Delete(_ context.Context, documentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, documentID)
	return nil
}

// Keys returns the cached document IDs in lexical order.
func (c *AnalysisCache) Keys(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
