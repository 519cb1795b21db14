// Package docset folds the term counts of every AFD document in an
// extracted archive directory into one yearly record.
package docset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

// TextExt is the extension of the document files counted in a directory.
const TextExt = ".txt"

// Processor counts a directory of documents against a fixed vocabulary.
type Processor struct {
	vocab   domain.Vocabulary
	counter *domain.Counter
}

// New creates a Processor for the given vocabulary.
func New(vocab domain.Vocabulary) *Processor {
	return &Processor{vocab: vocab, counter: domain.NewCounter(vocab)}
}

// Process reads every *.txt file directly inside dir, normalizes it, and
// adds its term counts to the returned record. A missing directory yields
// an all-zero record with no error.
func (p *Processor) Process(dir string) (domain.YearCountRecord, error) {
	record := domain.NewYearCountRecord(p.vocab)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return record, nil
	}
	if err != nil {
		return record, fmt.Errorf("read document dir: %w", err)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() || filepath.Ext(e.Name()) != TextExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return record, fmt.Errorf("read document %s: %w", e.Name(), err)
		}
		record.AddCounts(p.counter.Count(domain.Normalize(string(data))))
		record.Documents++
	}
	return record, nil
}
