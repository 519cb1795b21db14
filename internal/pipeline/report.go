package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

// Report summarizes one region run.
type Report struct {
	Region  string
	Offices []string
	Rows    []domain.CombinedRow
	// Missing holds, per office, the years whose archive could not be
	// retrieved or read. Offices with every year present are absent.
	Missing map[string][]int
	// Reused lists offices whose table came from the store.
	Reused []string
}

// MissingRanges renders one "<office>: <ranges>" line per office with
// missing years, in office order.
func (r Report) MissingRanges() []string {
	var lines []string
	seen := make(map[string]bool, len(r.Offices))
	for _, office := range r.Offices {
		seen[office] = true
		if years := r.Missing[office]; len(years) > 0 {
			lines = append(lines, office+": "+FormatYears(years))
		}
	}
	// Offices missing from r.Offices are appended sorted.
	var extra []string
	for office, years := range r.Missing {
		if !seen[office] && len(years) > 0 {
			extra = append(extra, office)
		}
	}
	sort.Strings(extra)
	for _, office := range extra {
		lines = append(lines, office+": "+FormatYears(r.Missing[office]))
	}
	return lines
}

// FormatYears compresses years into ascending ranges, e.g. "2000-2002, 2005".
func FormatYears(years []int) string {
	sorted := append([]int(nil), years...)
	sort.Ints(sorted)

	var parts []string
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] <= sorted[j]+1 {
			j++
		}
		if sorted[i] == sorted[j] {
			parts = append(parts, strconv.Itoa(sorted[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", sorted[i], sorted[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}

// WriteSummary prints the combined table followed by the missing-range
// report.
func (r Report) WriteSummary(w io.Writer, vocab domain.Vocabulary) error {
	fmt.Fprintf(w, "Combined Term Counts for region %s:\n", r.Region)
	if len(r.Rows) == 0 {
		fmt.Fprintln(w, "(no data)")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		columns := vocab.Columns()
		fmt.Fprintf(tw, "WFO\tYear\t%s\t\n", strings.Join(columns, "\t"))
		for _, row := range r.Rows {
			cells := make([]string, len(columns))
			for i, col := range columns {
				cells[i] = strconv.Itoa(row.Record.Column(col))
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t\n", row.Office, row.Year, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("write combined table: %w", err)
		}
	}

	fmt.Fprintf(w, "\nMissing Data Ranges for region %s:\n", r.Region)
	lines := r.MissingRanges()
	if len(lines) == 0 {
		fmt.Fprintln(w, "none")
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}
