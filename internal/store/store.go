// Package store owns the SQLite archive: schema, migrations, FTS5
// index, and connection lifecycle. All writes go through Transaction so
// readers never observe a half-rebuilt session.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store wraps a single-writer SQLite connection.
type Store struct {
	db     *sqlx.DB
	logger *logrus.Logger
	path   string
}

// Open creates the parent directory if needed, applies the migration
// policy, and returns a ready Store. Build with `-tags sqlite_fts5` so
// the mattn/go-sqlite3 driver compiles in FTS5 support.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	if err := migrateIfNeeded(path, logger); err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline; SQLite serializes anyway

	s := &Store{db: db, logger: logger, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	v := url.Values{}
	v.Set("_journal_mode", "WAL")
	v.Set("_busy_timeout", "30000")
	v.Set("_foreign_keys", "ON")
	v.Set("_synchronous", "NORMAL")
	return fmt.Sprintf("file:%s?%s", path, v.Encode())
}

// migrateIfNeeded implements §4.3's destructive migration policy: if
// the branches table is absent but sessions is present, an older schema
// exists and the file is dropped so a fresh bulk import can rebuild it.
func migrateIfNeeded(path string, logger *logrus.Logger) error {
	if path == ":memory:" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	probe, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil // treat an unopenable file as fresh; Open will surface the real error
	}
	defer probe.Close()

	hasSessions := tableExists(probe, "sessions")
	hasBranches := tableExists(probe, "branches")

	if hasSessions && !hasBranches {
		logger.WithField("path", path).Warn("detected pre-branch schema, dropping and rebuilding database")
		probe.Close()
		return dropDatabase(path)
	}
	return nil
}

func tableExists(db *sql.DB, name string) bool {
	var count int
	err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&count)
	return err == nil && count > 0
}

func dropDatabase(path string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s%s: %w", path, suffix, err)
		}
	}
	return nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	if err := s.applyAdditiveColumns(); err != nil {
		return err
	}
	if _, err := s.db.Exec(schemaFTS); err != nil {
		return fmt.Errorf("applying FTS schema: %w", err)
	}
	return nil
}

// applyAdditiveColumns issues guarded ALTER TABLE statements for columns
// that may be missing from an intermediate schema version.
func (s *Store) applyAdditiveColumns() error {
	for _, col := range additiveColumns {
		var rows []struct {
			Name string `db:"name"`
		}
		if err := s.db.Select(&rows, fmt.Sprintf("PRAGMA table_info(%s)", col.table)); err != nil {
			return fmt.Errorf("checking columns of %s: %w", col.table, err)
		}
		found := false
		for _, r := range rows {
			if r.Name == col.column {
				found = true
				break
			}
		}
		if !found {
			if _, err := s.db.Exec(col.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s: %w", col.table, col.column, err)
			}
		}
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sqlx.DB to callers outside this package.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Path returns the configured database file path.
func (s *Store) Path() string {
	return s.path
}

// Transaction runs fn inside a single SQLite transaction, rolling back
// on error or panic and committing otherwise.
func (s *Store) Transaction(fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}
