package driver

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/agenthands/seecat/internal/core/model"
)

type cachedName struct {
	name  string
	found bool
}

// CachedStore remembers lookup results, misses included, for ttl. Errors are
// never cached. Prefix searches go straight to the backing store.
type CachedStore struct {
	Store
	cache *expirable.LRU[string, cachedName]
}

func NewCachedStore(store Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store: store,
		cache: expirable.NewLRU[string, cachedName](size, nil, ttl),
	}
}

func (c *CachedStore) Lookup(ctx context.Context, code string) (string, bool, error) {
	if v, ok := c.cache.Get(code); ok {
		return v.name, v.found, nil
	}
	name, found, err := c.Store.Lookup(ctx, code)
	if err != nil {
		return "", false, err
	}
	c.cache.Add(code, cachedName{name: name, found: found})
	return name, found, nil
}

// Upsert forwards to the backing store when it accepts imports and drops
// the cached names.
func (c *CachedStore) Upsert(ctx context.Context, entries []model.TaxonomyEntry) (int, error) {
	imp, ok := c.Store.(Importer)
	if !ok {
		return 0, ErrImportUnsupported
	}
	n, err := imp.Upsert(ctx, entries)
	c.cache.Purge()
	return n, err
}
