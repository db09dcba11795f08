package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/seecat/internal/config"
)

var ErrImportUnsupported = errors.New("taxonomy backend does not support imports")

// Open connects the taxonomy backend named in cfg.Taxonomy and wraps it
// with a name cache when one is configured.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tc := cfg.Taxonomy
	backend := strings.ToLower(tc.Backend)

	var (
		store Store
		err   error
	)
	switch backend {
	case "postgres", "sqlite":
		store, err = NewSQLStore(ctx, backend, tc.DSN, tc.Table)
	case "memgraph":
		var mg *MemgraphStore
		mg, err = NewMemgraphStore(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, logger)
		if err == nil {
			err = mg.BuildIndices(ctx)
			store = mg
		}
	case "memory":
		if tc.SeedFile == "" {
			store = NewMemoryStore()
			break
		}
		var mem *MemoryStore
		mem, err = LoadMemoryStore(tc.SeedFile)
		if err == nil {
			logger.Info("taxonomy seed loaded", zap.String("file", tc.SeedFile), zap.Int("entries", mem.Len()))
			store = mem
		}
	default:
		return nil, fmt.Errorf("unsupported taxonomy backend: %q", tc.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s taxonomy store: %w", backend, err)
	}

	if tc.CacheSize > 0 {
		logger.Debug("taxonomy name cache enabled",
			zap.Int("size", tc.CacheSize),
			zap.Duration("ttl", tc.CacheTTL.Duration),
		)
		return NewCachedStore(store, tc.CacheSize, tc.CacheTTL.Duration), nil
	}
	return store, nil
}
