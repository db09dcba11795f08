package driver

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/seecat/internal/config"
	"github.com/agenthands/seecat/internal/core/model"
)

var springEntries = []model.TaxonomyEntry{
	{Code: "31000000", Name: "Manufacturing Components and Supplies"},
	{Code: "31160000", Name: "Hardware"},
	{Code: "31161900", Name: "Springs"},
	{Code: "31161901", Name: "Helical springs"},
	{Code: "31161904", Name: "Compression springs"},
	{Code: "27111701", Name: "Screwdrivers"},
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(context.Background(), "sqlite", ":memory:", "unspsc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSQLStoreLookupAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	n, err := s.Upsert(ctx, springEntries)
	require.NoError(t, err)
	assert.Equal(t, len(springEntries), n)

	name, found, err := s.Lookup(ctx, "31161904")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Compression springs", name)

	_, found, err = s.Lookup(ctx, "99999999")
	require.NoError(t, err)
	assert.False(t, found)

	got, err := s.SearchPrefix(ctx, "311619", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "31161900", got[0].Code)

	got, err = s.SearchPrefix(ctx, "3116", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// LIKE wildcards in the prefix match literally.
	got, err = s.SearchPrefix(ctx, "3_", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLStoreUpsertRenames(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	_, err := s.Upsert(ctx, []model.TaxonomyEntry{{Code: "31161911", Name: "Spring"}})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, []model.TaxonomyEntry{{Code: "31161911", Name: "Spring assembly"}})
	require.NoError(t, err)

	name, _, err := s.Lookup(ctx, "31161911")
	require.NoError(t, err)
	assert.Equal(t, "Spring assembly", name)
}

func TestNewSQLStoreRejectsBadInput(t *testing.T) {
	_, err := NewSQLStore(context.Background(), "oracle", "x", "unspsc")
	assert.Error(t, err)

	_, err = NewSQLStore(context.Background(), "sqlite", ":memory:", "unspsc; DROP TABLE x")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(springEntries...)

	name, found, err := s.Lookup(ctx, "31160000")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Hardware", name)

	got, err := s.SearchPrefix(ctx, "3116190", 0)
	require.NoError(t, err)
	assert.Equal(t, []model.TaxonomyEntry{
		{Code: "31161900", Name: "Springs"},
		{Code: "31161901", Name: "Helical springs"},
		{Code: "31161904", Name: "Compression springs"},
	}, got)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = s.Lookup(cancelled, "31160000")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadEntries(t *testing.T) {
	in := "code\tname\n31161901\tHelical springs\n\n31161911\t\"Spring assembly\"\n"
	entries, err := ReadEntries(strings.NewReader(in), '\t')
	require.NoError(t, err)
	assert.Equal(t, []model.TaxonomyEntry{
		{Code: "31161901", Name: "Helical springs"},
		{Code: "31161911", Name: "Spring assembly"},
	}, entries)

	_, err = ReadEntries(strings.NewReader("31161901\n"), '\t')
	assert.Error(t, err)
}

func TestLoadShippedSeed(t *testing.T) {
	s, err := LoadMemoryStore(filepath.Join("..", "..", "config", "unspsc_sample.tsv"))
	require.NoError(t, err)
	assert.Positive(t, s.Len())

	_, found, err := s.Lookup(context.Background(), "31161900")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	mock := &MockTaxonomyStore{Names: map[string]string{"31161900": "Springs"}}
	c := NewCachedStore(mock, 16, time.Minute)

	for i := 0; i < 3; i++ {
		name, found, err := c.Lookup(ctx, "31161900")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Springs", name)

		_, found, err = c.Lookup(ctx, "00000000")
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 2, mock.LookupCount())

	_, err := c.Upsert(ctx, nil)
	assert.ErrorIs(t, err, ErrImportUnsupported)
}

func TestCachedStoreDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	mock := &MockTaxonomyStore{Err: errors.New("connection refused")}
	c := NewCachedStore(mock, 16, time.Minute)

	_, _, err := c.Lookup(ctx, "31161900")
	assert.Error(t, err)

	mock.Err = nil
	mock.Names = map[string]string{"31161900": "Springs"}
	name, found, err := c.Lookup(ctx, "31161900")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Springs", name)
}

func TestCachedStoreUpsertPurges(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore(model.TaxonomyEntry{Code: "31161911", Name: "Spring"})
	c := NewCachedStore(mem, 16, time.Minute)

	name, _, _ := c.Lookup(ctx, "31161911")
	assert.Equal(t, "Spring", name)

	_, err := c.Upsert(ctx, []model.TaxonomyEntry{{Code: "31161911", Name: "Spring assembly"}})
	require.NoError(t, err)

	name, _, _ = c.Lookup(ctx, "31161911")
	assert.Equal(t, "Spring assembly", name)
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Taxonomy.Backend = "sqlite"
	cfg.Taxonomy.DSN = ":memory:"
	cfg.Taxonomy.CacheSize = 8

	s, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer s.Close(ctx)
	_, ok := s.(*CachedStore)
	assert.True(t, ok)

	cfg.Taxonomy.Backend = "memory"
	cfg.Taxonomy.CacheSize = 0
	cfg.Taxonomy.SeedFile = ""
	s, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	_, ok = s.(*MemoryStore)
	assert.True(t, ok)

	cfg.Taxonomy.Backend = "cassandra"
	_, err = Open(ctx, cfg, nil)
	assert.Error(t, err)
}

func TestEntriesFromRecords(t *testing.T) {
	records := []*neo4j.Record{
		{Keys: []string{"code", "name"}, Values: []any{"31161900", "Springs"}},
		{Keys: []string{"code", "name"}, Values: []any{nil, "orphan"}},
		{Keys: []string{"code", "name"}, Values: []any{"31161901", nil}},
	}
	assert.Equal(t, []model.TaxonomyEntry{
		{Code: "31161900", Name: "Springs"},
		{Code: "31161901", Name: ""},
	}, entriesFromRecords(records))
}
