// Package sqlstore loads combined rows into a relational results database
// (SQLite or PostgreSQL) for ad hoc querying.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS year_counts (
		office    TEXT    NOT NULL,
		year      INTEGER NOT NULL,
		documents INTEGER NOT NULL,
		PRIMARY KEY (office, year)
	)`,
	`CREATE TABLE IF NOT EXISTS term_counts (
		office TEXT    NOT NULL,
		year   INTEGER NOT NULL,
		term   TEXT    NOT NULL,
		count  INTEGER NOT NULL,
		PRIMARY KEY (office, year, term)
	)`,
}

const (
	upsertYear = `INSERT INTO year_counts (office, year, documents) VALUES ($1, $2, $3)
		ON CONFLICT (office, year) DO UPDATE SET documents = excluded.documents`
	upsertTerm = `INSERT INTO term_counts (office, year, term, count) VALUES ($1, $2, $3, $4)
		ON CONFLICT (office, year, term) DO UPDATE SET count = excluded.count`
)

// Store implements pipeline.RowLoader over database/sql.
type Store struct {
	db *sql.DB
}

// Open connects with driver ("sqlite" or "postgres") and creates the
// schema if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported results driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// LoadBatch upserts every row and its term counts in one transaction.
func (s *Store) LoadBatch(ctx context.Context, rows []domain.CombinedRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	yearStmt, err := tx.PrepareContext(ctx, upsertYear)
	if err != nil {
		return fmt.Errorf("prepare year upsert: %w", err)
	}
	defer yearStmt.Close()
	termStmt, err := tx.PrepareContext(ctx, upsertTerm)
	if err != nil {
		return fmt.Errorf("prepare term upsert: %w", err)
	}
	defer termStmt.Close()

	for _, row := range rows {
		if _, err = yearStmt.ExecContext(ctx, row.Office, row.Year, row.Record.Documents); err != nil {
			return fmt.Errorf("upsert %s %d: %w", row.Office, row.Year, err)
		}
		for term, n := range row.Record.Counts {
			if _, err = termStmt.ExecContext(ctx, row.Office, row.Year, term, n); err != nil {
				return fmt.Errorf("upsert %s %d %q: %w", row.Office, row.Year, term, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

// Record reads back the stored record of one office year.
func (s *Store) Record(ctx context.Context, office string, year int) (domain.YearCountRecord, error) {
	var rec domain.YearCountRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT documents FROM year_counts WHERE office = $1 AND year = $2`, office, year,
	).Scan(&rec.Documents)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("no row for %s %d", office, year)
	}
	if err != nil {
		return rec, fmt.Errorf("query %s %d: %w", office, year, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT term, count FROM term_counts WHERE office = $1 AND year = $2`, office, year)
	if err != nil {
		return rec, fmt.Errorf("query %s %d terms: %w", office, year, err)
	}
	defer rows.Close()

	rec.Counts = make(map[string]int)
	for rows.Next() {
		var term string
		var n int
		if err := rows.Scan(&term, &n); err != nil {
			return rec, fmt.Errorf("scan term: %w", err)
		}
		rec.Counts[term] = n
	}
	return rec, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
