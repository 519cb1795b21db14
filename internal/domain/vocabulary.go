package domain

import (
	"fmt"
	"strings"
)

// DocumentCountColumn is the table column holding the number of AFD
// documents counted for a year.
const DocumentCountColumn = "AFD_Count"

// Vocabulary is the ordered set of terms counted in every document.
// Search terms name forecast guidance; precision terms express certainty.
type Vocabulary struct {
	Search    []string `yaml:"search_terms"`
	Precision []string `yaml:"precision_terms"`
}

// DefaultVocabulary returns the built-in term lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Search: []string{
			"GFS", "GFS ENSEMBLE", "GEFS", "ECMWF", "ECMWF ENSEMBLE",
			"EPS", "HRRR", "HREF", "ENSEMBLE", "EFI", "NBM",
			"NATIONAL BLEND", "CLUSTER",
		},
		Precision: []string{
			"PERCENTILE", "PROBABILITY", "POSSIBLE", "EXPECTED",
			"CHANCE", "LIKELY", "CHANCE (", "% CHANCE",
		},
	}
}

// Terms returns search terms followed by precision terms.
func (v Vocabulary) Terms() []string {
	terms := make([]string, 0, len(v.Search)+len(v.Precision))
	terms = append(terms, v.Search...)
	return append(terms, v.Precision...)
}

// Columns returns the count columns of a table row in their fixed order:
// every term, then the document count.
func (v Vocabulary) Columns() []string {
	return append(v.Terms(), DocumentCountColumn)
}

// Validate rejects blank terms, repeated terms, and terms that appear in
// both lists. Terms are compared case-insensitively since matching is.
func (v Vocabulary) Validate() error {
	if len(v.Search)+len(v.Precision) == 0 {
		return fmt.Errorf("%w: no terms", ErrInvalidVocabulary)
	}
	seen := make(map[string]struct{}, len(v.Search)+len(v.Precision))
	for _, term := range v.Terms() {
		if strings.TrimSpace(term) == "" {
			return fmt.Errorf("%w: blank term", ErrInvalidVocabulary)
		}
		if term == DocumentCountColumn {
			return fmt.Errorf("%w: %q is reserved", ErrInvalidVocabulary, term)
		}
		key := strings.ToUpper(term)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: duplicate term %q", ErrInvalidVocabulary, term)
		}
		seen[key] = struct{}{}
	}
	return nil
}
