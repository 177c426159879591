// Package store provides the SQLite record store.
//
// The store is the default downstream sink for reconciled records. It runs
// embedded (ncruces/go-sqlite3, no cgo) in WAL mode so that several source
// daemons can write while the CLI and dashboard read.
//
// Layout:
//   - Database file: .i18nsync/records.db
//   - Schema: a single records table keyed by record id, versioned with
//     PRAGMA user_version
//   - Indexes: kind/namespace for pruning, kind/language/key for coverage
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned by Get when no record has the id.
var ErrNotFound = errors.New("record not found")

// pragmas are applied by the driver to every pooled connection.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(wal)",
	"synchronous(normal)",
	"foreign_keys(1)",
}

// DB is a record store backed by one SQLite file.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the store at path, creating missing parent
// directories. Call InitSchema before using a new file.
//
//	db, err := store.Open(".i18nsync/records.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	conn.SetMaxOpenConns(16)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxIdleTime(time.Minute)

	return &DB{conn: conn, path: path}, nil
}

func dsn(path string) string {
	q := url.Values{"_pragma": pragmas}
	return "file:" + path + "?" + q.Encode()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL into the main file and closes the pool.
// Closing twice is a no-op.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	conn := db.conn
	db.conn = nil

	var errs []error
	if _, err := conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		errs = append(errs, fmt.Errorf("failed to checkpoint WAL: %w", err))
	}
	if err := conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}
