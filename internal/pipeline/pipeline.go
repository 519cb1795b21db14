package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/afd-term-etl/internal/domain"
	"github.com/couchcryptid/afd-term-etl/internal/observability"
)

// YearFetcher resolves an office year to a directory of extracted documents.
type YearFetcher interface {
	Fetch(ctx context.Context, office string, year int) (string, error)
}

// DocumentProcessor counts the documents in a directory.
type DocumentProcessor interface {
	Process(dir string) (domain.YearCountRecord, error)
}

// OfficeAggregator computes every year of one office.
type OfficeAggregator interface {
	Aggregate(ctx context.Context, office string, startYear, endYear int) (domain.OfficeTable, []int, error)
}

// TableStore persists per-office tables so later runs can skip them.
type TableStore interface {
	Has(ctx context.Context, office string) (bool, error)
	Get(ctx context.Context, office string) (domain.OfficeTable, error)
	Put(ctx context.Context, office string, table domain.OfficeTable) error
}

// CombinedWriter persists a region's combined table.
type CombinedWriter interface {
	WriteCombined(ctx context.Context, region string, rows []domain.CombinedRow) error
}

// RowLoader receives the combined rows after they are written.
type RowLoader interface {
	LoadBatch(ctx context.Context, rows []domain.CombinedRow) error
}

// YearRange is an inclusive span of years.
type YearRange struct {
	Start int
	End   int
}

type sink struct {
	name   string
	loader RowLoader
}

// RegionRunner processes the offices of a region one at a time, reusing
// stored office tables, and writes the merged region table.
type RegionRunner struct {
	regions    domain.Regions
	years      YearRange
	aggregator OfficeAggregator
	store      TableStore
	combined   CombinedWriter
	sinks      []sink
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
	started    atomic.Bool

	mu       sync.Mutex
	progress Progress
}

// Progress is a snapshot of the current or last region run.
type Progress struct {
	Region       string   `json:"region"`
	OfficesDone  int      `json:"offices_done"`
	OfficesTotal int      `json:"offices_total"`
	Current      string   `json:"current_office,omitempty"`
	Finished     bool     `json:"finished"`
	Failed       string   `json:"error,omitempty"`
	Missing      []string `json:"missing,omitempty"`
}

// NewRegionRunner creates a RegionRunner over the given region tables.
func NewRegionRunner(regions domain.Regions, years YearRange, agg OfficeAggregator, store TableStore, combined CombinedWriter, metrics *observability.Metrics, logger *slog.Logger) *RegionRunner {
	return &RegionRunner{
		regions:    regions,
		years:      years,
		aggregator: agg,
		store:      store,
		combined:   combined,
		clock:      clockwork.NewRealClock(),
		metrics:    metrics,
		logger:     logger,
	}
}

// AddSink registers an extra destination for the combined rows. Sink
// failures are logged and counted but do not fail the run.
func (r *RegionRunner) AddSink(name string, loader RowLoader) {
	r.sinks = append(r.sinks, sink{name: name, loader: loader})
}

// SetClock swaps the time source used for office timings. Pass nil to reset
// to real time.
func (r *RegionRunner) SetClock(c clockwork.Clock) {
	if c == nil {
		r.clock = clockwork.NewRealClock()
		return
	}
	r.clock = c
}

// CheckReadiness returns nil once a run has started.
func (r *RegionRunner) CheckReadiness(_ context.Context) error {
	if !r.started.Load() {
		return errors.New("region run has not started")
	}
	return nil
}

// Progress returns a snapshot of the run state.
func (r *RegionRunner) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.progress
	p.Missing = append([]string(nil), p.Missing...)
	return p
}

func (r *RegionRunner) updateProgress(fn func(p *Progress)) {
	r.mu.Lock()
	fn(&r.progress)
	r.mu.Unlock()
}

// Run processes every office of region and writes the combined table.
// Years that could not be retrieved are reported, not returned as errors;
// only storage failures and cancellation end the run early.
func (r *RegionRunner) Run(ctx context.Context, region string) (report Report, err error) {
	offices := r.regions.Offices(region)
	r.updateProgress(func(p *Progress) {
		*p = Progress{Region: region, OfficesTotal: len(offices)}
	})
	r.started.Store(true)
	r.metrics.RunActive.Set(1)
	defer func() {
		r.metrics.RunActive.Set(0)
		r.updateProgress(func(p *Progress) {
			p.Current = ""
			p.Finished = true
			if err != nil {
				p.Failed = err.Error()
			} else {
				p.Missing = report.MissingRanges()
			}
		})
	}()

	report = Report{
		Region:  region,
		Offices: offices,
		Missing: make(map[string][]int),
	}
	if len(offices) == 0 {
		r.logger.Warn("region has no offices", "region", region, "error", domain.ErrUnknownRegion)
	}
	r.logger.Info("region run started", "region", region, "offices", len(offices),
		"start_year", r.years.Start, "end_year", r.years.End)

	tables := make(map[string]domain.OfficeTable, len(offices))
	for i, office := range offices {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r.updateProgress(func(p *Progress) { p.Current = office })
		table, reused, missing, err := r.officeTable(ctx, office)
		if err != nil {
			return report, err
		}
		tables[office] = table
		if reused {
			report.Reused = append(report.Reused, office)
		}
		if len(missing) > 0 {
			report.Missing[office] = missing
		}
		r.updateProgress(func(p *Progress) { p.OfficesDone = i + 1 })
		r.logger.Info("region progress", "region", region, "done", i+1, "total", len(offices))
	}

	report.Rows = domain.Merge(tables)
	if err := r.combined.WriteCombined(ctx, region, report.Rows); err != nil {
		return report, fmt.Errorf("write combined table: %w", err)
	}

	for _, s := range r.sinks {
		if err := s.loader.LoadBatch(ctx, report.Rows); err != nil {
			r.logger.Warn("combined sink failed", "sink", s.name, "rows", len(report.Rows), "error", err)
			r.metrics.SinkErrors.WithLabelValues(s.name).Inc()
		}
	}

	r.logger.Info("region run complete", "region", region, "rows", len(report.Rows),
		"offices_missing_years", len(report.Missing))
	return report, nil
}

// officeTable loads a stored table or computes and stores a fresh one.
func (r *RegionRunner) officeTable(ctx context.Context, office string) (domain.OfficeTable, bool, []int, error) {
	ok, err := r.store.Has(ctx, office)
	if err != nil {
		return nil, false, nil, fmt.Errorf("check %s table: %w", office, err)
	}
	if ok {
		table, err := r.store.Get(ctx, office)
		if err != nil {
			return nil, false, nil, fmt.Errorf("load %s table: %w", office, err)
		}
		r.metrics.OfficesProcessed.WithLabelValues("store").Inc()
		r.logger.Info("reusing stored office table", "office", office, "years", len(table))
		return table, true, nil, nil
	}

	start := r.clock.Now()
	table, missing, err := r.aggregator.Aggregate(ctx, office, r.years.Start, r.years.End)
	if err != nil {
		return nil, false, nil, fmt.Errorf("aggregate %s: %w", office, err)
	}
	if err := r.store.Put(ctx, office, table); err != nil {
		return nil, false, nil, fmt.Errorf("store %s table: %w", office, err)
	}

	elapsed := r.clock.Since(start)
	r.metrics.OfficesProcessed.WithLabelValues("computed").Inc()
	r.metrics.OfficeDuration.Observe(elapsed.Seconds())
	r.logger.Info("office aggregated", "office", office, "years", len(table),
		"missing", len(missing), "elapsed", elapsed)
	return table, false, missing, nil
}
