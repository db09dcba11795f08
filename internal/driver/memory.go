package driver

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/agenthands/seecat/internal/core/model"
)

// MemoryStore holds the taxonomy in memory. It is loaded from a code/name
// export and used for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	names   map[string]string
	ordered []model.TaxonomyEntry
}

func NewMemoryStore(entries ...model.TaxonomyEntry) *MemoryStore {
	s := &MemoryStore{names: make(map[string]string)}
	_, _ = s.Upsert(context.Background(), entries)
	return s
}

// LoadMemoryStore reads a TSV or CSV export. The separator follows the file
// extension; anything but ".csv" is read as tab separated.
func LoadMemoryStore(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open taxonomy seed '%s': %w", path, err)
	}
	defer f.Close()

	sep := '\t'
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		sep = ','
	}
	entries, err := ReadEntries(f, sep)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy seed '%s': %w", path, err)
	}
	return NewMemoryStore(entries...), nil
}

// ReadEntries parses code/name rows. A header row and blank codes are
// skipped.
func ReadEntries(r io.Reader, sep rune) ([]model.TaxonomyEntry, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var entries []model.TaxonomyEntry
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("line %d: expected code and name", line)
		}
		code := strings.TrimSpace(row[0])
		if code == "" || (line == 1 && !isDigits(code)) {
			continue
		}
		entries = append(entries, model.TaxonomyEntry{Code: code, Name: strings.TrimSpace(row[1])})
	}
	return entries, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (s *MemoryStore) Lookup(ctx context.Context, code string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[code]
	return name, ok, nil
}

func (s *MemoryStore) SearchPrefix(ctx context.Context, prefix string, limit int) ([]model.TaxonomyEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := sort.Search(len(s.ordered), func(i int) bool { return s.ordered[i].Code >= prefix })
	out := []model.TaxonomyEntry{}
	for ; i < len(s.ordered) && strings.HasPrefix(s.ordered[i].Code, prefix); i++ {
		if len(out) == limit {
			break
		}
		out = append(out, s.ordered[i])
	}
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, entries []model.TaxonomyEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.names[e.Code] = e.Name
	}
	s.ordered = s.ordered[:0]
	for code, name := range s.names {
		s.ordered = append(s.ordered, model.TaxonomyEntry{Code: code, Name: name})
	}
	sort.Slice(s.ordered, func(i, j int) bool { return s.ordered[i].Code < s.ordered[j].Code })
	return len(entries), nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
