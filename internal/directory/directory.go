package directory

import (
	"context"
	"sync"

	"github.com/example/locksmith-search/internal/models"
)

// Directory yields the full candidate set for one search. Range and
// eligibility filtering is the matcher's job, not the directory's.
type Directory interface {
	FetchCandidates(ctx context.Context) ([]models.Provider, error)
}

// Memory is an in-process Directory for tests and local runs.
type Memory struct {
	mu        sync.RWMutex
	providers []models.Provider
}

func NewMemory(providers ...models.Provider) *Memory {
	m := &Memory{}
	m.providers = append(m.providers, providers...)
	return m
}

func (m *Memory) FetchCandidates(_ context.Context) ([]models.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Provider, len(m.providers))
	copy(out, m.providers)
	return out, nil
}

func (m *Memory) Upsert(p models.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.providers {
		if m.providers[i].ID == p.ID {
			m.providers[i] = p
			return
		}
	}
	m.providers = append(m.providers, p)
}
