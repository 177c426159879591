package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gpml/i18nsync/internal/record"
)

const recordColumns = `id, namespace, kind, key, value, description, file,
	start_line, start_column, end_line, end_column,
	language, priority, source_path, digest`

// Create inserts or replaces a record.
//
// A row whose digest and metadata already match is left untouched, so
// re-sending unchanged records after a restart costs no writes.
func (db *DB) Create(ctx context.Context, r *record.Record) error {
	query := `
		INSERT INTO records (` + recordColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			namespace = excluded.namespace,
			kind = excluded.kind,
			key = excluded.key,
			value = excluded.value,
			description = excluded.description,
			file = excluded.file,
			start_line = excluded.start_line,
			start_column = excluded.start_column,
			end_line = excluded.end_line,
			end_column = excluded.end_column,
			language = excluded.language,
			priority = excluded.priority,
			source_path = excluded.source_path,
			digest = excluded.digest,
			updated_at = excluded.updated_at
		WHERE records.digest IS NOT excluded.digest
			OR records.priority IS NOT excluded.priority
			OR records.start_line IS NOT excluded.start_line
			OR records.start_column IS NOT excluded.start_column
			OR records.end_line IS NOT excluded.end_line
			OR records.end_column IS NOT excluded.end_column
	`

	startLine, startCol := locationArgs(r.Start)
	endLine, endCol := locationArgs(r.End)

	_, err := db.conn.ExecContext(ctx, query,
		r.ID,
		r.Namespace,
		string(r.Kind),
		r.Key,
		r.Value,
		r.Description,
		r.File,
		startLine,
		startCol,
		endLine,
		endCol,
		r.Language,
		r.Priority,
		r.SourcePath,
		r.Digest,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", r.ID, err)
	}
	return nil
}

// Delete removes a record. Deleting an unknown id is not an error.
func (db *DB) Delete(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// Get returns the record with the given id or ErrNotFound.
func (db *DB) Get(ctx context.Context, id string) (*record.Record, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return r, nil
}

// QueryAll returns every record of kind, ordered by namespace, language
// and key.
func (db *DB) QueryAll(ctx context.Context, kind record.Kind) ([]*record.Record, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE kind = ?
		ORDER BY namespace, language, key, source_path
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*record.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// Count returns the total number of records.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// CountByKind returns the number of records per kind.
func (db *DB) CountByKind(ctx context.Context) (map[record.Kind]int, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT kind, COUNT(*) FROM records GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records by kind: %w", err)
	}
	defer rows.Close()

	counts := make(map[record.Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[record.Kind(kind)] = n
	}
	return counts, rows.Err()
}

// CountByLanguage returns the number of translation records per language.
func (db *DB) CountByLanguage(ctx context.Context) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT language, COUNT(*)
		FROM records
		WHERE kind = ?
		GROUP BY language
	`, string(record.KindTranslation))
	if err != nil {
		return nil, fmt.Errorf("failed to count records by language: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			lang string
			n    int
		)
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[lang] = n
	}
	return counts, rows.Err()
}

// MissingTranslations returns the message keys that have no translation in
// language, sorted.
func (db *DB) MissingTranslations(ctx context.Context, language string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT m.key
		FROM records m
		WHERE m.kind = ?
		  AND NOT EXISTS (
			SELECT 1 FROM records t
			WHERE t.kind = ? AND t.language = ? AND t.key = m.key
		  )
		ORDER BY m.key
	`, string(record.KindMessage), string(record.KindTranslation), language)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing translations: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*record.Record, error) {
	var (
		r                   record.Record
		kind                string
		startLine, startCol sql.NullInt64
		endLine, endCol     sql.NullInt64
	)
	err := s.Scan(
		&r.ID,
		&r.Namespace,
		&kind,
		&r.Key,
		&r.Value,
		&r.Description,
		&r.File,
		&startLine,
		&startCol,
		&endLine,
		&endCol,
		&r.Language,
		&r.Priority,
		&r.SourcePath,
		&r.Digest,
	)
	if err != nil {
		return nil, err
	}
	r.Kind = record.Kind(kind)
	r.Start = locationFrom(startLine, startCol)
	r.End = locationFrom(endLine, endCol)
	return &r, nil
}

func locationArgs(loc *record.Location) (line, column any) {
	if loc == nil {
		return nil, nil
	}
	return loc.Line, loc.Column
}

func locationFrom(line, column sql.NullInt64) *record.Location {
	if !line.Valid || !column.Valid {
		return nil
	}
	return &record.Location{Line: int(line.Int64), Column: int(column.Int64)}
}
