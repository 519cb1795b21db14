// Package csvstore persists office and combined term-count tables as CSV.
//
// Office tables use the header "Year,<terms...>,AFD_Count" with one row per
// year; combined tables prefix "WFO" to that header. Columns are read by
// header name so files written with a different term order still load.
package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

// Index column names.
const (
	YearColumn   = "Year"
	OfficeColumn = "WFO"
)

// WriteOfficeTable writes table to w sorted by year.
func WriteOfficeTable(w io.Writer, vocab domain.Vocabulary, table domain.OfficeTable) error {
	cw := csv.NewWriter(w)
	columns := vocab.Columns()
	if err := cw.Write(append([]string{YearColumn}, columns...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, year := range table.Years() {
		row := make([]string, 0, len(columns)+1)
		row = append(row, strconv.Itoa(year))
		row = appendCounts(row, columns, table[year])
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write year %d: %w", year, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadOfficeTable parses a table written by WriteOfficeTable. Vocabulary
// columns missing from the file read as zero; unknown columns are ignored.
func ReadOfficeTable(r io.Reader, vocab domain.Vocabulary) (domain.OfficeTable, error) {
	table := domain.OfficeTable{}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := indexHeader(header)
	yearCol, ok := idx[YearColumn]
	if !ok {
		return nil, fmt.Errorf("missing %s column", YearColumn)
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return table, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		year, err := cell(row, yearCol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, YearColumn, err)
		}
		rec, err := parseRecord(row, idx, vocab)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		table[year] = rec
	}
}

// WriteCombined writes rows with the (WFO, Year) composite index, in the
// order given.
func WriteCombined(w io.Writer, vocab domain.Vocabulary, rows []domain.CombinedRow) error {
	cw := csv.NewWriter(w)
	columns := vocab.Columns()
	if err := cw.Write(append([]string{OfficeColumn, YearColumn}, columns...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		row := make([]string, 0, len(columns)+2)
		row = append(row, r.Office, strconv.Itoa(r.Year))
		row = appendCounts(row, columns, r.Record)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s %d: %w", r.Office, r.Year, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCombined parses a table written by WriteCombined, preserving row order.
func ReadCombined(r io.Reader, vocab domain.Vocabulary) ([]domain.CombinedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := indexHeader(header)
	officeCol, ok := idx[OfficeColumn]
	if !ok {
		return nil, fmt.Errorf("missing %s column", OfficeColumn)
	}
	yearCol, ok := idx[YearColumn]
	if !ok {
		return nil, fmt.Errorf("missing %s column", YearColumn)
	}

	var rows []domain.CombinedRow
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if officeCol >= len(row) {
			return nil, fmt.Errorf("line %d: missing %s", line, OfficeColumn)
		}
		year, err := cell(row, yearCol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, YearColumn, err)
		}
		rec, err := parseRecord(row, idx, vocab)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, domain.CombinedRow{Office: row[officeCol], Year: year, Record: rec})
	}
}

func appendCounts(row, columns []string, rec domain.YearCountRecord) []string {
	for _, col := range columns {
		row = append(row, strconv.Itoa(rec.Column(col)))
	}
	return row
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRecord(row []string, idx map[string]int, vocab domain.Vocabulary) (domain.YearCountRecord, error) {
	rec := domain.NewYearCountRecord(vocab)
	for _, term := range vocab.Terms() {
		col, ok := idx[term]
		if !ok {
			continue
		}
		n, err := cell(row, col)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", term, err)
		}
		rec.Counts[term] = n
	}
	if col, ok := idx[domain.DocumentCountColumn]; ok {
		n, err := cell(row, col)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", domain.DocumentCountColumn, err)
		}
		rec.Documents = n
	}
	return rec, nil
}

// cell parses a non-negative integer. Integral floats such as "12.0" are
// accepted since dataframe tools write them for nullable columns.
func cell(row []string, col int) (int, error) {
	if col >= len(row) {
		return 0, errors.New("missing value")
	}
	s := strings.TrimSpace(row[col])
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return int(f), nil
}
