package store

import (
	"context"
	"fmt"
)

// migrations[i] upgrades a database from user_version i to i+1.
var migrations = []string{
	`
	CREATE TABLE records (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		kind TEXT NOT NULL,   -- message, translation
		key TEXT NOT NULL,
		value TEXT NOT NULL,

		-- Message metadata
		description TEXT NOT NULL DEFAULT '',
		file TEXT NOT NULL DEFAULT '',
		start_line INTEGER,
		start_column INTEGER,
		end_line INTEGER,
		end_column INTEGER,

		-- Translation metadata
		language TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 0,

		source_path TEXT NOT NULL,
		digest TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX idx_records_kind_namespace ON records(kind, namespace);
	CREATE INDEX idx_records_coverage ON records(kind, language, key);
	`,
	`
	CREATE INDEX idx_records_source ON records(source_path);
	`,
}

// SchemaVersion is the schema version InitSchema migrates to.
var SchemaVersion = len(migrations)

// InitSchema migrates the database to SchemaVersion. It is idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext is InitSchema with a context.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var version int
	if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			return fmt.Errorf("failed to migrate schema to version %d: %w", v+1, err)
		}
	}
	if version == len(migrations) {
		return nil
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

// Version returns the schema version stored in the database.
func (db *DB) Version(ctx context.Context) (int, error) {
	var version int
	if err := db.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
