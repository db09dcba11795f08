package schema

import (
	"context"
)

type MockCatalogSource struct {
	Body  []byte
	Err   error
	Calls []string
}

func (m *MockCatalogSource) Fetch(ctx context.Context, categoryCode string) ([]byte, error) {
	m.Calls = append(m.Calls, categoryCode)
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Body, nil
}
