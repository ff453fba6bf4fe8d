package storage

import (
	"context"
	"sync"

	"github.com/example/locksmith-search/internal/models"
)

// SearchStore persists the audit trail of completed searches for the
// admin console's analytics. Failures here never fail a search.
type SearchStore interface {
	SaveSearch(ctx context.Context, rec *models.SearchRecord) error
}

type MemoryStore struct {
	mu      sync.RWMutex
	records []*models.SearchRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveSearch(_ context.Context, rec *models.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *MemoryStore) Recent(n int) []*models.SearchRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n > len(m.records) {
		n = len(m.records)
	}
	out := make([]*models.SearchRecord, n)
	copy(out, m.records[len(m.records)-n:])
	return out
}
