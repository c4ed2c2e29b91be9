// Package manifest tracks which dump files have been indexed and
// which symbols users actually select, in a small SQLite database kept
// beside the index. Selection history drives result boosting; file
// history powers staleness detection and stats.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	symerrors "github.com/codenav/symdex/internal/errors"
	"github.com/codenav/symdex/internal/extract"
)

// Manifest is the bookkeeping database. All timestamps are stored as
// unix nanoseconds so staleness checks never miss a same-second
// rewrite.
type Manifest struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Selection is one symbol's selection history.
type Selection struct {
	FQN    string
	Count  int
	LastAt time.Time
}

// Stats aggregates the manifest contents.
type Stats struct {
	Files      int
	Symbols    int
	Selections int
}

// FileRecord is one indexed dump file's bookkeeping entry.
type FileRecord struct {
	Path        string
	IndexedAt   time.Time
	SymbolCount int
}

// Open opens or creates the manifest database at path. An empty path
// opens an in-memory manifest for testing.
func Open(path string) (*Manifest, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, symerrors.StorageError(
				fmt.Sprintf("cannot create manifest directory for %s", path), err)
		}
		dsn = path + "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, symerrors.StorageError("cannot open manifest database", err)
	}

	// Single connection: one writer avoids sqlite lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Pragmas go through Exec: modernc.org/sqlite ignores most DSN
	// parameters.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, symerrors.StorageError("cannot configure manifest database", err)
		}
	}

	m := &Manifest{db: db, path: path}
	if err := m.initSchema(); err != nil {
		_ = db.Close()
		return nil, symerrors.StorageError("cannot initialize manifest schema", err)
	}
	return m, nil
}

func (m *Manifest) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		path         TEXT PRIMARY KEY,
		indexed_at   INTEGER NOT NULL,
		symbol_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS selections (
		fqn     TEXT PRIMARY KEY,
		count   INTEGER NOT NULL,
		last_at INTEGER NOT NULL
	);
	`
	_, err := m.db.Exec(schema)
	return err
}

// RecordIndexed upserts a dump file's indexing record.
func (m *Manifest) RecordIndexed(ctx context.Context, path string, symbolCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return symerrors.StorageError("manifest is closed", nil)
	}

	_, err := m.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO files(path, indexed_at, symbol_count) VALUES (?, ?, ?)`,
		path, time.Now().UnixNano(), symbolCount)
	if err != nil {
		return symerrors.StorageError(fmt.Sprintf("cannot record indexed file %s", path), err)
	}
	return nil
}

// RemoveFile drops a dump file's indexing record. Removing an unknown
// path is not an error.
func (m *Manifest) RemoveFile(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return symerrors.StorageError("manifest is closed", nil)
	}

	_, err := m.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return symerrors.StorageError(fmt.Sprintf("cannot remove file record %s", path), err)
	}
	return nil
}

// ClearFiles drops every file record. Called after the index was
// rebuilt from scratch, so staleness checks see every dump as
// unindexed again. Selection history survives; it keys on fqns, not
// files, and the boost it feeds is still wanted after a rebuild.
func (m *Manifest) ClearFiles(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return symerrors.StorageError("manifest is closed", nil)
	}

	_, err := m.db.ExecContext(ctx, `DELETE FROM files`)
	if err != nil {
		return symerrors.StorageError("cannot clear file records", err)
	}
	return nil
}

// RecordSelection counts one user selection of the given fqn.
func (m *Manifest) RecordSelection(ctx context.Context, fqn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return symerrors.StorageError("manifest is closed", nil)
	}

	_, err := m.db.ExecContext(ctx,
		`INSERT INTO selections(fqn, count, last_at) VALUES (?, 1, ?)
		 ON CONFLICT(fqn) DO UPDATE SET count = count + 1, last_at = excluded.last_at`,
		fqn, time.Now().UnixNano())
	if err != nil {
		return symerrors.StorageError(fmt.Sprintf("cannot record selection of %s", fqn), err)
	}
	return nil
}

// Selections returns up to limit selection records, most selected
// first, most recent first on ties.
func (m *Manifest) Selections(ctx context.Context, limit int) ([]Selection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, symerrors.StorageError("manifest is closed", nil)
	}
	if limit <= 0 {
		return []Selection{}, nil
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT fqn, count, last_at FROM selections
		 ORDER BY count DESC, last_at DESC, fqn ASC LIMIT ?`, limit)
	if err != nil {
		return nil, symerrors.StorageError("cannot query selections", err)
	}
	defer rows.Close()

	selections := make([]Selection, 0, limit)
	for rows.Next() {
		var sel Selection
		var lastAt int64
		if err := rows.Scan(&sel.FQN, &sel.Count, &lastAt); err != nil {
			return nil, symerrors.StorageError("cannot scan selection row", err)
		}
		sel.LastAt = time.Unix(0, lastAt)
		selections = append(selections, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, symerrors.StorageError("cannot read selections", err)
	}
	return selections, nil
}

// Stats aggregates file, symbol and selection counts.
func (m *Manifest) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Stats{}, symerrors.StorageError("manifest is closed", nil)
	}

	var stats Stats
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(symbol_count), 0) FROM files`).
		Scan(&stats.Files, &stats.Symbols)
	if err != nil {
		return Stats{}, symerrors.StorageError("cannot aggregate file stats", err)
	}

	err = m.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(count), 0) FROM selections`).
		Scan(&stats.Selections)
	if err != nil {
		return Stats{}, symerrors.StorageError("cannot aggregate selection stats", err)
	}
	return stats, nil
}

// Files returns every indexed dump file record, in path order.
func (m *Manifest) Files(ctx context.Context) ([]FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, symerrors.StorageError("manifest is closed", nil)
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT path, indexed_at, symbol_count FROM files ORDER BY path ASC`)
	if err != nil {
		return nil, symerrors.StorageError("cannot query indexed files", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var rec FileRecord
		var at int64
		if err := rows.Scan(&rec.Path, &at, &rec.SymbolCount); err != nil {
			return nil, symerrors.StorageError("cannot scan file row", err)
		}
		rec.IndexedAt = time.Unix(0, at)
		files = append(files, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, symerrors.StorageError("cannot read indexed files", err)
	}
	return files, nil
}

// StaleFiles returns the dump files under dir that were modified after
// they were last indexed, or never indexed at all, in path order.
func (m *Manifest) StaleFiles(ctx context.Context, dir string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, symerrors.StorageError("manifest is closed", nil)
	}

	indexedAt := make(map[string]int64)
	rows, err := m.db.QueryContext(ctx, `SELECT path, indexed_at FROM files`)
	if err != nil {
		return nil, symerrors.StorageError("cannot query indexed files", err)
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		var at int64
		if err := rows.Scan(&path, &at); err != nil {
			return nil, symerrors.StorageError("cannot scan file row", err)
		}
		indexedAt[path] = at
	}
	if err := rows.Err(); err != nil {
		return nil, symerrors.StorageError("cannot read indexed files", err)
	}

	var stale []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !extract.IsDump(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		at, ok := indexedAt[path]
		if !ok || info.ModTime().UnixNano() > at {
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		return nil, symerrors.StorageError(fmt.Sprintf("cannot walk dump directory %s", dir), err)
	}

	sort.Strings(stale)
	return stale, nil
}

// Path returns the database location, empty for in-memory manifests.
func (m *Manifest) Path() string {
	return m.path
}

// Close releases the database. Safe to call more than once.
func (m *Manifest) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}
