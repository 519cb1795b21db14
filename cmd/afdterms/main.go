// Command afdterms counts forecasting terms in the archived Area Forecast
// Discussions of every office in a region and writes per-office and
// combined CSV tables.
//
// Usage:
//
//	afdterms <region>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/couchcryptid/afd-term-etl/internal/adapter/archive"
	"github.com/couchcryptid/afd-term-etl/internal/adapter/csvstore"
	"github.com/couchcryptid/afd-term-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/afd-term-etl/internal/adapter/iem"
	kafkaadapter "github.com/couchcryptid/afd-term-etl/internal/adapter/kafka"
	"github.com/couchcryptid/afd-term-etl/internal/adapter/redisstore"
	"github.com/couchcryptid/afd-term-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/afd-term-etl/internal/config"
	"github.com/couchcryptid/afd-term-etl/internal/docset"
	"github.com/couchcryptid/afd-term-etl/internal/domain"
	"github.com/couchcryptid/afd-term-etl/internal/fetchcache"
	"github.com/couchcryptid/afd-term-etl/internal/observability"
	"github.com/couchcryptid/afd-term-etl/internal/pipeline"
)

var errUsage = errors.New("expected exactly one region argument, e.g. afdterms SR")

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		slog.Error("afdterms failed", "error", err)
		os.Exit(1)
	}
}

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      "afdterms",
		Usage:     "count forecasting terms in archived AFDs for a region",
		ArgsUsage: "<region>",
		Writer:    stdout,
		Action:    run,
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		_ = cli.ShowAppHelp(c)
		return errUsage
	}
	region := strings.ToUpper(strings.TrimSpace(c.Args().First()))
	if !domain.ValidRegionCode(region) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRegion, region)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	client := iem.NewClient(cfg.BaseURL, cfg.FetchTimeout, cfg.FetchRetries, metrics, logger)
	cache := fetchcache.New(cfg.OutputDir, cfg.ProductClass, client, archive.ZipExtractor{}, metrics, logger)
	agg := pipeline.NewYearAggregator(cache, docset.New(cfg.Vocabulary), cfg.WorkerCount, metrics, logger)

	files := csvstore.NewFileStore(cfg.OutputDir, cfg.Vocabulary)
	var store pipeline.TableStore = files
	if cfg.TableStore == config.StoreRedis {
		rs, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Vocabulary)
		if err != nil {
			return err
		}
		defer closeLogged(logger, "redis", rs.Close)
		store = rs
		logger.Info("office tables stored in redis", "addr", cfg.RedisAddr)
	}

	runner := pipeline.NewRegionRunner(cfg.Regions,
		pipeline.YearRange{Start: cfg.StartYear, End: cfg.EndYear},
		agg, store, files, metrics, logger)

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer closeLogged(logger, "kafka writer", writer.Close)
		runner.AddSink("kafka", writer)
		logger.Info("publishing combined rows", "topic", cfg.KafkaTopic)
	}
	if cfg.ResultsDBDriver != "" {
		db, err := sqlstore.Open(ctx, cfg.ResultsDBDriver, cfg.ResultsDBDSN)
		if err != nil {
			return err
		}
		defer closeLogged(logger, "results db", db.Close)
		runner.AddSink(cfg.ResultsDBDriver, db)
		logger.Info("loading combined rows into results db", "driver", cfg.ResultsDBDriver)
	}

	if cfg.MetricsAddr != "" {
		srv := httpadapter.NewServer(cfg.MetricsAddr, runner, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	report, err := runner.Run(ctx, region)
	if err != nil {
		return fmt.Errorf("region %s: %w", region, err)
	}
	return report.WriteSummary(c.App.Writer, cfg.Vocabulary)
}

func closeLogged(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("close error", "resource", name, "error", err)
	}
}
