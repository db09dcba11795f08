package driver

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/agenthands/seecat/internal/core/model"
)

// MemgraphStore keeps the taxonomy as (:Unspsc {code, name}) nodes in
// Memgraph or Neo4j.
type MemgraphStore struct {
	Driver neo4j.DriverWithContext
	Logger *zap.Logger
}

func NewMemgraphStore(ctx context.Context, uri, username, password string, logger *zap.Logger) (*MemgraphStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	logger.Info("connected to memgraph", zap.String("uri", uri))
	return &MemgraphStore{Driver: driver, Logger: logger}, nil
}

func (s *MemgraphStore) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}

func (s *MemgraphStore) ExecuteQuery(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return result, nil
}

func (s *MemgraphStore) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Unspsc(code);",
	}
	for _, q := range queries {
		if _, err := s.ExecuteQuery(ctx, q, nil); err != nil {
			// The index may already exist.
			s.Logger.Warn("failed to create index", zap.String("query", q), zap.Error(err))
		}
	}
	return nil
}

func (s *MemgraphStore) Lookup(ctx context.Context, code string) (string, bool, error) {
	res, err := s.ExecuteQuery(ctx, LookupUnspscQuery, map[string]any{"code": code})
	if err != nil {
		return "", false, err
	}
	entries := entriesFromRecords(res.Records)
	if len(entries) == 0 {
		return "", false, nil
	}
	return entries[0].Name, true, nil
}

func (s *MemgraphStore) SearchPrefix(ctx context.Context, prefix string, limit int) ([]model.TaxonomyEntry, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	res, err := s.ExecuteQuery(ctx, SearchUnspscQuery, map[string]any{
		"prefix": prefix,
		"limit":  int64(limit),
	})
	if err != nil {
		return nil, err
	}
	return entriesFromRecords(res.Records), nil
}

func (s *MemgraphStore) Upsert(ctx context.Context, entries []model.TaxonomyEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	params := make([]map[string]any, len(entries))
	for i, e := range entries {
		params[i] = map[string]any{"code": e.Code, "name": e.Name}
	}
	res, err := s.ExecuteQuery(ctx, UpsertUnspscQuery, map[string]any{"entries": params})
	if err != nil {
		return 0, err
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	n, _, err := neo4j.GetRecordValue[int64](res.Records[0], "upserted")
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// entriesFromRecords maps code/name rows, skipping rows without a string
// code.
func entriesFromRecords(records []*neo4j.Record) []model.TaxonomyEntry {
	entries := make([]model.TaxonomyEntry, 0, len(records))
	for _, rec := range records {
		code, ok := recordString(rec, "code")
		if !ok {
			continue
		}
		name, _ := recordString(rec, "name")
		entries = append(entries, model.TaxonomyEntry{Code: code, Name: name})
	}
	return entries
}

func recordString(rec *neo4j.Record, key string) (string, bool) {
	v, ok := rec.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
