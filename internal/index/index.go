// Package index keeps a small SQLite database of past check runs so
// fleets of files can be tracked across batches: which files were
// checked when, with how many points and discrepancies, and whether a
// repair was applied.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded check run.
type Entry struct {
	Path          string
	CheckedAt     time.Time
	Version       string
	PointFormat   int
	PointCount    uint64
	Discrepancies int
	Repaired      string // comma-joined repaired field names, empty if none
}

// DB wraps the results database.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the index database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			path           TEXT NOT NULL,
			checked_at     TIMESTAMP NOT NULL,
			version        TEXT,
			point_format   INTEGER,
			point_count    BIGINT,
			discrepancies  INTEGER,
			repaired       TEXT
		);
		CREATE INDEX IF NOT EXISTS runs_path ON runs(path);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &DB{db}, nil
}

// Record appends one run entry.
func (db *DB) Record(e Entry) error {
	_, err := db.Exec(`
		INSERT INTO runs (path, checked_at, version, point_format, point_count, discrepancies, repaired)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Path, e.CheckedAt.UTC(), e.Version, e.PointFormat,
		int64(e.PointCount), e.Discrepancies, e.Repaired,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// History returns recorded runs for one file, newest first.
func (db *DB) History(path string) ([]Entry, error) {
	rows, err := db.Query(`
		SELECT path, checked_at, version, point_format, point_count, discrepancies, repaired
		FROM runs WHERE path = ? ORDER BY checked_at DESC`, path)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Recent returns the most recent runs across all files.
func (db *DB) Recent(limit int) ([]Entry, error) {
	rows, err := db.Query(`
		SELECT path, checked_at, version, point_format, point_count, discrepancies, repaired
		FROM runs ORDER BY checked_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e     Entry
			count int64
		)
		if err := rows.Scan(&e.Path, &e.CheckedAt, &e.Version, &e.PointFormat,
			&count, &e.Discrepancies, &e.Repaired); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.PointCount = uint64(count)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Format renders entries as aligned terminal output.
func Format(entries []Entry) string {
	if len(entries) == 0 {
		return "no recorded runs\n"
	}
	var b strings.Builder
	for _, e := range entries {
		status := fmt.Sprintf("%d discrepancies", e.Discrepancies)
		if e.Discrepancies == 0 {
			status = "clean"
		}
		if e.Repaired != "" {
			status += ", repaired: " + e.Repaired
		}
		fmt.Fprintf(&b, "%s  %-40s  v%s fmt %d  %d points  %s\n",
			e.CheckedAt.Local().Format("2006-01-02 15:04"),
			e.Path, e.Version, e.PointFormat, e.PointCount, status)
	}
	return b.String()
}
