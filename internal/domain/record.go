package domain

import (
	"sort"
	"time"
)

// YearCountRecord holds the term counts and document count for one office
// and one year.
type YearCountRecord struct {
	Counts    map[string]int `json:"counts"`
	Documents int            `json:"documents"`
}

// NewYearCountRecord returns a record with every vocabulary term set to zero.
func NewYearCountRecord(v Vocabulary) YearCountRecord {
	counts := make(map[string]int, len(v.Search)+len(v.Precision))
	for _, term := range v.Terms() {
		counts[term] = 0
	}
	return YearCountRecord{Counts: counts}
}

// AddCounts folds per-document term counts into the record.
func (r *YearCountRecord) AddCounts(counts map[string]int) {
	if r.Counts == nil {
		r.Counts = make(map[string]int, len(counts))
	}
	for term, n := range counts {
		r.Counts[term] += n
	}
}

// Column returns the value of a count column by name. The document count
// column is answered from Documents.
func (r YearCountRecord) Column(name string) int {
	if name == DocumentCountColumn {
		return r.Documents
	}
	return r.Counts[name]
}

// OfficeTable maps year to that year's record for a single office.
type OfficeTable map[int]YearCountRecord

// Years returns the table's years in ascending order.
func (t OfficeTable) Years() []int {
	years := make([]int, 0, len(t))
	for y := range t {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// CombinedRow is one (office, year) row of a region's combined table.
type CombinedRow struct {
	Office string          `json:"office"`
	Year   int             `json:"year"`
	Record YearCountRecord `json:"record"`
}

// Merge flattens per-office tables into rows sorted by office, then year.
// Years absent from a table produce no row.
func Merge(tables map[string]OfficeTable) []CombinedRow {
	var n int
	for _, t := range tables {
		n += len(t)
	}
	rows := make([]CombinedRow, 0, n)
	for office, t := range tables {
		for year, rec := range t {
			rows = append(rows, CombinedRow{Office: office, Year: year, Record: rec})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Office != rows[j].Office {
			return rows[i].Office < rows[j].Office
		}
		return rows[i].Year < rows[j].Year
	})
	return rows
}

// ProductCode joins a product class and an office id, e.g. "AFD"+"OUN".
func ProductCode(class, office string) string {
	return class + office
}

// YearWindow returns the UTC half-open interval covering year.
func YearWindow(year int) (start, end time.Time) {
	start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}
