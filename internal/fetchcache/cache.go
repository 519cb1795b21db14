// Package fetchcache resolves an (office, year) to a local directory of
// extracted AFD documents, downloading and unpacking the archive only when
// no earlier run has done so.
package fetchcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/afd-term-etl/internal/atomicfile"
	"github.com/couchcryptid/afd-term-etl/internal/domain"
	"github.com/couchcryptid/afd-term-etl/internal/observability"
)

// ArchiveFetcher retrieves a product archive for a time window.
type ArchiveFetcher interface {
	FetchArchive(ctx context.Context, productCode string, start, end time.Time) ([]byte, error)
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(data []byte, dir string) ([]string, error)
}

// Cache is a filesystem-backed yearly archive cache. Distinct keys share no
// mutable state; concurrent calls for the same key run once.
type Cache struct {
	root         string
	productClass string
	fetcher      ArchiveFetcher
	extractor    Extractor
	group        singleflight.Group
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// New creates a Cache rooted at dir.
func New(dir, productClass string, fetcher ArchiveFetcher, extractor Extractor, metrics *observability.Metrics, logger *slog.Logger) *Cache {
	return &Cache{
		root:         dir,
		productClass: productClass,
		fetcher:      fetcher,
		extractor:    extractor,
		metrics:      metrics,
		logger:       logger,
	}
}

// ArchivePath is where the raw archive for (office, year) is kept.
func ArchivePath(root, office string, year int) string {
	return filepath.Join(root, fmt.Sprintf("data_%s_%d.zip", office, year))
}

// ExtractDir is where the documents for (office, year) are unpacked.
func ExtractDir(root, office string, year int) string {
	return filepath.Join(root, fmt.Sprintf("data_%s_%d", office, year))
}

// Fetch returns the extracted document directory for (office, year). Any
// failure wraps domain.ErrYearUnavailable.
func (c *Cache) Fetch(ctx context.Context, office string, year int) (string, error) {
	key := fmt.Sprintf("%s/%d", office, year)
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, office, year)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s %d: %w", domain.ErrYearUnavailable, office, year, err)
	}
	return v.(string), nil
}

func (c *Cache) fetch(ctx context.Context, office string, year int) (string, error) {
	dir := ExtractDir(c.root, office, year)
	if isDir(dir) {
		c.metrics.FetchCache.WithLabelValues("extracted").Inc()
		return dir, nil
	}

	archivePath := ArchivePath(c.root, office, year)
	data, err := os.ReadFile(archivePath)
	switch {
	case err == nil:
		c.metrics.FetchCache.WithLabelValues("archive").Inc()
		if err := c.extract(data, dir); err != nil {
			// A corrupt archive would fail every run; drop it so the next
			// run downloads a fresh copy.
			if errors.Is(err, errCorruptArchive) {
				if rmErr := os.Remove(archivePath); rmErr != nil {
					c.logger.Warn("remove corrupt archive failed", "path", archivePath, "error", rmErr)
				}
			}
			return "", err
		}
		return dir, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read cached archive: %w", err)
	}

	c.metrics.FetchCache.WithLabelValues("miss").Inc()
	start, end := domain.YearWindow(year)
	data, err = c.fetcher.FetchArchive(ctx, domain.ProductCode(c.productClass, office), start, end)
	if err != nil {
		return "", err
	}
	if err := atomicfile.Write(archivePath, data, 0o644); err != nil {
		return "", err
	}
	if err := c.extract(data, dir); err != nil {
		return "", err
	}
	c.logger.Debug("archive fetched", "office", office, "year", year, "bytes", len(data))
	return dir, nil
}

// errCorruptArchive marks extraction failures caused by the archive bytes
// themselves rather than by the local filesystem.
var errCorruptArchive = errors.New("corrupt archive")

// extract unpacks into a scratch directory and renames it into place, so a
// half-written directory is never mistaken for a cache hit.
func (c *Cache) extract(data []byte, dir string) error {
	tmp, err := os.MkdirTemp(filepath.Dir(dir), filepath.Base(dir)+atomicfile.TempPattern)
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	if _, err := c.extractor.Extract(data, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("%w: %w", errCorruptArchive, err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("publish extract dir: %w", err)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
