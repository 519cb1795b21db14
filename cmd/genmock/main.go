// Command genmock writes synthetic AFD archives into an output directory in
// the same layout the fetch cache uses, so afdterms can run a region
// offline. Output is deterministic for a given seed.
//
// Usage:
//
//	go run ./cmd/genmock -region SR -dir ./afd_output -start 2018 -end 2020
package main

import (
	"archive/zip"
	"bytes"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/afd-term-etl/internal/config"
	"github.com/couchcryptid/afd-term-etl/internal/domain"
	"github.com/couchcryptid/afd-term-etl/internal/fetchcache"
)

// options controls what genmock writes.
type options struct {
	region    string
	dir       string
	start     int
	end       int
	docs      int
	seed      uint64
	vocab     domain.Vocabulary
	regions   domain.Regions
	class     string
	overwrite bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	region := flag.String("region", "", "region code to generate archives for")
	dir := flag.String("dir", "", "output directory (default AFD_OUTPUT_DIR)")
	start := flag.Int("start", 0, "first year (default START_YEAR)")
	end := flag.Int("end", 0, "last year (default END_YEAR)")
	docs := flag.Int("docs", 24, "documents per office year")
	seed := flag.Uint64("seed", 1, "random seed")
	overwrite := flag.Bool("overwrite", false, "replace existing archives")
	flag.Parse()

	if *region == "" || *docs <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flag -region or invalid -docs")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts := options{
		region:    strings.ToUpper(*region),
		dir:       cfg.OutputDir,
		start:     cfg.StartYear,
		end:       cfg.EndYear,
		docs:      *docs,
		seed:      *seed,
		vocab:     cfg.Vocabulary,
		regions:   cfg.Regions,
		class:     cfg.ProductClass,
		overwrite: *overwrite,
	}
	if *dir != "" {
		opts.dir = *dir
	}
	if *start != 0 {
		opts.start = *start
	}
	if *end != 0 {
		opts.end = *end
	}

	n, err := generate(opts)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d archives for region %s to %s\n", n, opts.region, opts.dir)
	return nil
}

// generate writes one archive per office year and returns how many it wrote.
// Existing archives are kept unless overwrite is set.
func generate(opts options) (int, error) {
	offices := opts.regions.Offices(opts.region)
	if len(offices) == 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownRegion, opts.region)
	}
	if opts.start > opts.end {
		return 0, fmt.Errorf("start year %d after end year %d", opts.start, opts.end)
	}
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return 0, err
	}

	terms := opts.vocab.Terms()
	written := 0
	for _, office := range offices {
		for year := opts.start; year <= opts.end; year++ {
			path := fetchcache.ArchivePath(opts.dir, office, year)
			if _, err := os.Stat(path); err == nil && !opts.overwrite {
				continue
			}
			data, err := yearArchive(opts, terms, office, year)
			if err != nil {
				return written, fmt.Errorf("%s %d: %w", office, year, err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

// yearArchive builds a zip of opts.docs discussions issued at even intervals
// through the year.
func yearArchive(opts options, terms []string, office string, year int) ([]byte, error) {
	rng := rand.New(rand.NewPCG(opts.seed, uint64(year)<<16|uint64(officeHash(office))))
	start, end := domain.YearWindow(year)
	step := end.Sub(start) / time.Duration(opts.docs)
	clock := clockwork.NewFakeClockAt(start)
	product := domain.ProductCode(opts.class, office)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i < opts.docs; i++ {
		issued := clock.Now()
		w, err := zw.Create(fmt.Sprintf("%s_%s.txt", product, issued.Format("200601021504")))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(discussion(rng, terms, office, issued))); err != nil {
			return nil, err
		}
		clock.Advance(step)
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func discussion(rng *rand.Rand, terms []string, office string, issued time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Area Forecast Discussion\nNational Weather Service %s\n%s\n\n.DISCUSSION...\n",
		office, issued.Format("304 PM MST Mon Jan 2 2006"))
	sentences := 3 + rng.IntN(6)
	for i := 0; i < sentences; i++ {
		term := terms[rng.IntN(len(terms))]
		fmt.Fprintf(&b, "The latest guidance mentions %s for day %d. ", term, 1+rng.IntN(7))
	}
	b.WriteString("\n\n&&\n")
	return b.String()
}

func officeHash(office string) uint16 {
	var h uint16
	for i := 0; i < len(office); i++ {
		h = h*31 + uint16(office[i])
	}
	return h
}
