package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/afd-term-etl/internal/domain"
	"github.com/couchcryptid/afd-term-etl/internal/observability"
)

// DefaultWorkers is the year-task concurrency ceiling per office.
const DefaultWorkers = 30

// YearAggregator fetches and counts the years of one office in parallel.
type YearAggregator struct {
	fetcher   YearFetcher
	processor DocumentProcessor
	workers   int
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewYearAggregator creates a YearAggregator running at most workers year
// tasks at once.
func NewYearAggregator(f YearFetcher, p DocumentProcessor, workers int, metrics *observability.Metrics, logger *slog.Logger) *YearAggregator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &YearAggregator{
		fetcher:   f,
		processor: p,
		workers:   workers,
		metrics:   metrics,
		logger:    logger,
	}
}

type yearResult struct {
	year   int
	record domain.YearCountRecord
	err    error
}

// Aggregate counts every year in [startYear, endYear] for office. Years
// whose archive is unavailable are returned in ascending order in missing
// and left out of the table. A non-nil error means ctx ended first and the
// table is incomplete.
func (a *YearAggregator) Aggregate(ctx context.Context, office string, startYear, endYear int) (domain.OfficeTable, []int, error) {
	table := domain.OfficeTable{}
	total := endYear - startYear + 1
	if total <= 0 {
		return table, nil, nil
	}

	results := make(chan yearResult, total)
	go func() {
		var g errgroup.Group
		g.SetLimit(a.workers)
		for year := startYear; year <= endYear; year++ {
			g.Go(func() error {
				results <- a.runYear(ctx, office, year)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	var missing []int
	done := 0
	for r := range results {
		done++
		if r.err != nil {
			missing = append(missing, r.year)
			a.metrics.YearsMissing.Inc()
			a.logger.Warn("year unavailable", "office", office, "year", r.year, "error", r.err)
		} else {
			table[r.year] = r.record
		}
		a.logger.Debug("year complete", "office", office, "year", r.year, "done", done, "total", total)
	}
	sort.Ints(missing)

	if err := ctx.Err(); err != nil {
		return table, missing, err
	}
	return table, missing, nil
}

func (a *YearAggregator) runYear(ctx context.Context, office string, year int) yearResult {
	if err := ctx.Err(); err != nil {
		return yearResult{year: year, err: err}
	}
	a.metrics.YearsInFlight.Inc()
	defer a.metrics.YearsInFlight.Dec()

	dir, err := a.fetcher.Fetch(ctx, office, year)
	if err != nil {
		return yearResult{year: year, err: err}
	}
	record, err := a.processor.Process(dir)
	if err != nil {
		return yearResult{year: year, err: fmt.Errorf("%w: %s %d: %w", domain.ErrYearUnavailable, office, year, err)}
	}
	a.metrics.DocumentsProcessed.Add(float64(record.Documents))
	return yearResult{year: year, record: record}
}
