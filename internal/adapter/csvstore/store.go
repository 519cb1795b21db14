package csvstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/afd-term-etl/internal/atomicfile"
	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

// FileStore keeps one CSV per office and one combined CSV per region under
// a root directory.
type FileStore struct {
	root  string
	vocab domain.Vocabulary
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string, vocab domain.Vocabulary) *FileStore {
	return &FileStore{root: dir, vocab: vocab}
}

// OfficePath is the per-office table file.
func OfficePath(root, office string) string {
	return filepath.Join(root, office+"_term_counts.csv")
}

// CombinedPath is the per-region combined table file.
func CombinedPath(root, region string) string {
	return filepath.Join(root, "combined_term_counts_"+region+".csv")
}

// Has reports whether a table for office has been persisted.
func (s *FileStore) Has(_ context.Context, office string) (bool, error) {
	_, err := os.Stat(OfficePath(s.root, office))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat office table: %w", err)
}

// Get loads the persisted table for office.
func (s *FileStore) Get(_ context.Context, office string) (domain.OfficeTable, error) {
	f, err := os.Open(OfficePath(s.root, office))
	if err != nil {
		return nil, fmt.Errorf("open office table: %w", err)
	}
	defer f.Close()

	table, err := ReadOfficeTable(f, s.vocab)
	if err != nil {
		return nil, fmt.Errorf("read %s table: %w", office, err)
	}
	return table, nil
}

// Put persists table for office, replacing any previous file atomically.
func (s *FileStore) Put(_ context.Context, office string, table domain.OfficeTable) error {
	var buf bytes.Buffer
	if err := WriteOfficeTable(&buf, s.vocab, table); err != nil {
		return fmt.Errorf("encode %s table: %w", office, err)
	}
	return atomicfile.Write(OfficePath(s.root, office), buf.Bytes(), 0o644)
}

// WriteCombined persists the region's combined rows.
func (s *FileStore) WriteCombined(_ context.Context, region string, rows []domain.CombinedRow) error {
	if !domain.ValidRegionCode(region) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRegion, region)
	}
	var buf bytes.Buffer
	if err := WriteCombined(&buf, s.vocab, rows); err != nil {
		return fmt.Errorf("encode combined table: %w", err)
	}
	return atomicfile.Write(CombinedPath(s.root, region), buf.Bytes(), 0o644)
}
