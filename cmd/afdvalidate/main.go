// Command afdvalidate checks a region's combined term-count table against
// the per-office tables it was merged from. It verifies that every office
// table exists, that the combined rows match the office rows exactly, that
// rows are sorted and unique, and that counts are plausible.
//
// Usage:
//
//	go run ./cmd/afdvalidate -region SR [-dir ./afd_output]
//
// Vocabulary, region tables, and the year window come from the same
// environment as afdterms.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/go-cmp/cmp"

	"github.com/couchcryptid/afd-term-etl/internal/adapter/csvstore"
	"github.com/couchcryptid/afd-term-etl/internal/config"
	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	region := flag.String("region", "", "region code whose tables are validated")
	dir := flag.String("dir", "", "output directory (default AFD_OUTPUT_DIR)")
	flag.Parse()

	if *region == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}
	if *dir != "" {
		cfg.OutputDir = *dir
	}

	if code := run(cfg, *region, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(cfg *config.Config, region string, w io.Writer) int {
	fmt.Fprintf(w, "=== AFD Term Count Validation: region %s ===\n\n", region)

	offices := cfg.Regions.Offices(region)
	if len(offices) == 0 {
		fmt.Fprintf(w, "FATAL: %v: %s\n", domain.ErrUnknownRegion, region)
		return 1
	}

	combined, err := loadCombined(cfg, region)
	if err != nil {
		fmt.Fprintf(w, "FATAL: load combined table: %v\n", err)
		return 1
	}

	present := &phase{name: "Office tables present"}
	tables := make(map[string]domain.OfficeTable, len(offices))
	for _, office := range offices {
		table, err := loadOffice(cfg, office)
		if err != nil {
			present.errorf("%s: %v", office, err)
			continue
		}
		tables[office] = table
	}

	phases := []*phase{
		present,
		validateParity(combined, tables),
		validateOrder(combined),
		validateCounts(combined, cfg.StartYear, cfg.EndYear),
	}

	fmt.Fprintln(w)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Rows: %d combined across %d offices\n", len(combined), len(tables))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadCombined(cfg *config.Config, region string) ([]domain.CombinedRow, error) {
	f, err := os.Open(csvstore.CombinedPath(cfg.OutputDir, region))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csvstore.ReadCombined(f, cfg.Vocabulary)
}

func loadOffice(cfg *config.Config, office string) (domain.OfficeTable, error) {
	f, err := os.Open(csvstore.OfficePath(cfg.OutputDir, office))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csvstore.ReadOfficeTable(f, cfg.Vocabulary)
}

// ── Phases ──

// validateParity checks that the combined rows are exactly the merge of
// the office tables that could be loaded.
func validateParity(combined []domain.CombinedRow, tables map[string]domain.OfficeTable) *phase {
	p := &phase{name: "Combined matches office tables"}

	want := domain.Merge(tables)
	got := make([]domain.CombinedRow, 0, len(combined))
	for _, row := range combined {
		if _, ok := tables[row.Office]; ok {
			got = append(got, row)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		p.errorf("combined rows differ from office tables (-office +combined):\n%s", diff)
	}
	return p
}

func validateOrder(combined []domain.CombinedRow) *phase {
	p := &phase{name: "Combined sorted by office, year"}
	for i := 1; i < len(combined); i++ {
		prev, cur := combined[i-1], combined[i]
		switch {
		case prev.Office == cur.Office && prev.Year == cur.Year:
			p.errorf("row %d: duplicate %s %d", i+1, cur.Office, cur.Year)
		case prev.Office > cur.Office, prev.Office == cur.Office && prev.Year > cur.Year:
			p.errorf("row %d: %s %d after %s %d", i+1, cur.Office, cur.Year, prev.Office, prev.Year)
		}
	}
	return p
}

func validateCounts(combined []domain.CombinedRow, startYear, endYear int) *phase {
	p := &phase{name: "Counts and years plausible"}
	for _, row := range combined {
		if row.Year < startYear || row.Year > endYear {
			p.errorf("%s %d: year outside %d-%d", row.Office, row.Year, startYear, endYear)
		}
		if row.Record.Documents < 0 {
			p.errorf("%s %d: negative %s", row.Office, row.Year, domain.DocumentCountColumn)
		}
		for term, n := range row.Record.Counts {
			if n < 0 {
				p.errorf("%s %d: negative count for %q", row.Office, row.Year, term)
			}
			if n > 0 && row.Record.Documents == 0 {
				p.errorf("%s %d: %q counted with no documents", row.Office, row.Year, term)
			}
		}
	}
	return p
}
