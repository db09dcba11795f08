package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/agenthands/seecat/internal/core/model"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect covers the few differences between the SQL backends.
type dialect struct {
	driverName string
	// placeholder returns the n-th (1-based) bind parameter.
	placeholder func(n int) string
}

var dialects = map[string]dialect{
	"postgres": {driverName: "pgx", placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }},
	"sqlite":   {driverName: "sqlite", placeholder: func(int) string { return "?" }},
}

// SQLStore reads the taxonomy from a (code, name) table in Postgres or
// SQLite.
type SQLStore struct {
	db      *sql.DB
	table   string
	dialect dialect
}

// NewSQLStore opens backend ("postgres" or "sqlite") at dsn and makes sure
// the table exists.
func NewSQLStore(ctx context.Context, backend, dsn, table string) (*SQLStore, error) {
	d, ok := dialects[backend]
	if !ok {
		return nil, fmt.Errorf("unsupported sql backend: %q", backend)
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}

	db, err := sql.Open(d.driverName, strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if backend == "sqlite" {
		// Every connection to ":memory:" is its own database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLStore{db: db, table: table, dialect: d}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *SQLStore) Lookup(ctx context.Context, code string) (string, bool, error) {
	q := fmt.Sprintf("SELECT name FROM %s WHERE code = %s", s.table, s.dialect.placeholder(1))
	var name string
	err := s.db.QueryRowContext(ctx, q, code).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %s: %w", code, err)
	}
	return name, true, nil
}

func (s *SQLStore) SearchPrefix(ctx context.Context, prefix string, limit int) ([]model.TaxonomyEntry, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := fmt.Sprintf(`SELECT code, name FROM %s WHERE code LIKE %s ESCAPE '\' ORDER BY code LIMIT %s`,
		s.table, s.dialect.placeholder(1), s.dialect.placeholder(2))
	rows, err := s.db.QueryContext(ctx, q, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search prefix %s: %w", prefix, err)
	}
	defer rows.Close()

	entries := []model.TaxonomyEntry{}
	for rows.Next() {
		var e model.TaxonomyEntry
		if err := rows.Scan(&e.Code, &e.Name); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Upsert inserts or renames entries in one transaction.
func (s *SQLStore) Upsert(ctx context.Context, entries []model.TaxonomyEntry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	q := fmt.Sprintf(`INSERT INTO %s (code, name) VALUES (%s, %s)
		ON CONFLICT (code) DO UPDATE SET name = excluded.name`,
		s.table, s.dialect.placeholder(1), s.dialect.placeholder(2))
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Code, e.Name); err != nil {
			return i, fmt.Errorf("failed to upsert %s: %w", e.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
