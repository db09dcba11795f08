package driver

import (
	"context"

	"github.com/agenthands/seecat/internal/core/model"
)

// DefaultSearchLimit caps prefix searches that pass no limit.
const DefaultSearchLimit = 100

// TaxonomyStore resolves UNSPSC codes to names.
type TaxonomyStore interface {
	// Lookup returns the name of code. A missing code is not an error.
	Lookup(ctx context.Context, code string) (name string, found bool, err error)
	// SearchPrefix lists entries whose code starts with prefix, ordered by code.
	SearchPrefix(ctx context.Context, prefix string, limit int) ([]model.TaxonomyEntry, error)
}

// Store is a TaxonomyStore that owns a connection.
type Store interface {
	TaxonomyStore
	Close(ctx context.Context) error
}

// Importer is implemented by stores that accept bulk upserts.
type Importer interface {
	Upsert(ctx context.Context, entries []model.TaxonomyEntry) (int, error)
}
