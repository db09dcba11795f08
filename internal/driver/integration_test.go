//go:build integration

package driver

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/seecat/internal/core/model"
)

func TestMemgraphStore(t *testing.T) {
	_ = godotenv.Load("../../.env")

	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewMemgraphStore(ctx, uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"), nil)
	require.NoError(t, err)
	defer s.Close(context.Background())
	require.NoError(t, s.BuildIndices(ctx))

	// a private code range keeps runs independent
	prefix := fmt.Sprintf("9%07d", uuid.New().ID()%10000000)[:6]
	entries := []model.TaxonomyEntry{
		{Code: prefix + "00", Name: "Test class"},
		{Code: prefix + "01", Name: "Test commodity"},
	}
	n, err := s.Upsert(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	defer func() {
		_, _ = s.ExecuteQuery(context.Background(), "MATCH (u:Unspsc) WHERE u.code STARTS WITH $p DETACH DELETE u", map[string]any{"p": prefix})
	}()

	name, found, err := s.Lookup(ctx, prefix+"01")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Test commodity", name)

	got, err := s.SearchPrefix(ctx, prefix, 10)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestPostgresStore(t *testing.T) {
	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TAXONOMY_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test: TAXONOMY_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	table := "unspsc_test_" + uuid.New().String()[:8]
	s, err := NewSQLStore(ctx, "postgres", dsn, table)
	require.NoError(t, err)
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), "DROP TABLE "+table)
		_ = s.Close(context.Background())
	}()

	_, err = s.Upsert(ctx, []model.TaxonomyEntry{{Code: "31161911", Name: "Spring assembly"}})
	require.NoError(t, err)

	name, found, err := s.Lookup(ctx, "31161911")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Spring assembly", name)

	got, err := s.SearchPrefix(ctx, "3116", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
