package driver

import (
	"context"
	"sync"

	"github.com/agenthands/seecat/internal/core/model"
)

// MockTaxonomyStore serves names from a map and counts lookups. Err and
// Delay apply to every call.
type MockTaxonomyStore struct {
	mu      sync.Mutex
	Names   map[string]string
	Err     error
	Delay   func(ctx context.Context) error
	Lookups []string
}

func (m *MockTaxonomyStore) Lookup(ctx context.Context, code string) (string, bool, error) {
	m.mu.Lock()
	m.Lookups = append(m.Lookups, code)
	m.mu.Unlock()

	if m.Delay != nil {
		if err := m.Delay(ctx); err != nil {
			return "", false, err
		}
	}
	if m.Err != nil {
		return "", false, m.Err
	}
	name, ok := m.Names[code]
	return name, ok, nil
}

func (m *MockTaxonomyStore) SearchPrefix(ctx context.Context, prefix string, limit int) ([]model.TaxonomyEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return NewMemoryStore(m.entries()...).SearchPrefix(ctx, prefix, limit)
}

func (m *MockTaxonomyStore) Close(ctx context.Context) error {
	return nil
}

// LookupCount returns how many lookups were made.
func (m *MockTaxonomyStore) LookupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Lookups)
}

func (m *MockTaxonomyStore) entries() []model.TaxonomyEntry {
	out := make([]model.TaxonomyEntry, 0, len(m.Names))
	for code, name := range m.Names {
		out = append(out, model.TaxonomyEntry{Code: code, Name: name})
	}
	return out
}
