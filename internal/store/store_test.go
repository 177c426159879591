package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gpml/i18nsync/internal/reconcile"
	"github.com/gpml/i18nsync/internal/record"
)

// Compile-time interface checks.
var (
	_ reconcile.Sink    = (*DB)(nil)
	_ reconcile.Querier = (*DB)(nil)
)

// setupTestDB opens a migrated database in a temporary directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return db
}

func translation(ns, path, lang, key, value string) *record.Record {
	r := &record.Record{
		ID:         record.NewID(ns, path, key),
		Kind:       record.KindTranslation,
		Namespace:  ns,
		Key:        key,
		Value:      value,
		Language:   lang,
		SourcePath: path,
	}
	r.Digest = record.Digest(r)
	return r
}

func message(path, key string) *record.Record {
	r := &record.Record{
		ID:          record.NewID("messages", path, key),
		Kind:        record.KindMessage,
		Namespace:   "messages",
		Key:         key,
		Value:       "default " + key,
		Description: "desc",
		File:        "src/app.js",
		Start:       &record.Location{Line: 1, Column: 2},
		End:         &record.Location{Line: 1, Column: 30},
		SourcePath:  path,
	}
	r.Digest = record.Digest(r)
	return r
}

func TestOpen_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "records.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.InitSchema(); err != nil {
		t.Errorf("second InitSchema() failed: %v", err)
	}

	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='records'`).Scan(&count)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	if count != 1 {
		t.Errorf("records table count = %d", count)
	}

	version, err := db.Version(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if version != SchemaVersion {
		t.Errorf("Version() = %d, want %d", version, SchemaVersion)
	}
}

func TestInitSchema_NewerVersionRejected(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion+1)); err != nil {
		t.Fatal(err)
	}
	if err := db.InitSchema(); err == nil {
		t.Error("InitSchema() accepted a newer schema version")
	}
}

func TestOpen_WALMode(t *testing.T) {
	db := setupTestDB(t)

	var mode string
	if err := db.conn.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestClose_Twice(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestCreateGet_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, want := range []*record.Record{
		message("/m/app.json", "app.title"),
		translation("translations", "/t/en.json", "en", "app.title", "App"),
	} {
		if err := db.Create(ctx, want); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		got, err := db.Get(ctx, want.ID)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func updatedAt(t *testing.T, db *DB, id string) string {
	t.Helper()

	var ts string
	if err := db.conn.QueryRow(`SELECT updated_at FROM records WHERE id = ?`, id).Scan(&ts); err != nil {
		t.Fatalf("failed to read updated_at: %v", err)
	}
	return ts
}

func TestCreate_SkipsUnchangedDigest(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	r := translation("translations", "/t/en.json", "en", "greeting", "Hi")

	if err := db.Create(ctx, r); err != nil {
		t.Fatal(err)
	}
	first := updatedAt(t, db, r.ID)

	time.Sleep(5 * time.Millisecond)
	if err := db.Create(ctx, r); err != nil {
		t.Fatal(err)
	}
	if got := updatedAt(t, db, r.ID); got != first {
		t.Errorf("unchanged record was rewritten: %s -> %s", first, got)
	}

	edited := translation("translations", "/t/en.json", "en", "greeting", "Hello")
	time.Sleep(5 * time.Millisecond)
	if err := db.Create(ctx, edited); err != nil {
		t.Fatal(err)
	}
	if got := updatedAt(t, db, r.ID); got == first {
		t.Error("changed record was not rewritten")
	}

	got, err := db.Get(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != "Hello" {
		t.Errorf("Value = %q, want Hello", got.Value)
	}
	if n, _ := db.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	r := translation("translations", "/t/en.json", "en", "greeting", "Hi")

	if err := db.Create(ctx, r); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := db.Delete(ctx, r.ID); err != nil {
			t.Fatalf("Delete() #%d failed: %v", i+1, err)
		}
	}
	if n, _ := db.Count(ctx); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestQueryAllAndCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	records := []*record.Record{
		message("/m/app.json", "a"),
		message("/m/app.json", "b"),
		message("/m/app.json", "c"),
		translation("translations", "/t/en.json", "en", "a", "A"),
		translation("translations", "/t/en.json", "en", "b", "B"),
		translation("translations", "/t/en.json", "en", "c", "C"),
		translation("translations", "/t/de.json", "de", "a", "A-de"),
	}
	for _, r := range records {
		if err := db.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.QueryAll(ctx, record.KindMessage)
	if err != nil {
		t.Fatalf("QueryAll() failed: %v", err)
	}
	var keys []string
	for _, m := range msgs {
		keys = append(keys, m.Key)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, keys); diff != "" {
		t.Errorf("message keys mismatch (-want +got):\n%s", diff)
	}

	byKind, err := db.CountByKind(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[record.Kind]int{record.KindMessage: 3, record.KindTranslation: 4}, byKind); diff != "" {
		t.Errorf("CountByKind mismatch (-want +got):\n%s", diff)
	}

	byLang, err := db.CountByLanguage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]int{"en": 3, "de": 1}, byLang); diff != "" {
		t.Errorf("CountByLanguage mismatch (-want +got):\n%s", diff)
	}

	missing, err := db.MissingTranslations(ctx, "de")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, missing); diff != "" {
		t.Errorf("MissingTranslations mismatch (-want +got):\n%s", diff)
	}

	missing, err = db.MissingTranslations(ctx, "en")
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 0 {
		t.Errorf("expected full coverage for en, got %v", missing)
	}
}

// TestReconcileIntoStore runs the reconciler against a real database.
func TestReconcileIntoStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	root := t.TempDir()

	rec, err := reconcile.New(db, reconcile.Options{
		Namespace: "translations",
		Kind:      record.KindTranslation,
		Root:      root,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	writeTestFile(t, filepath.Join(root, "en.json"), `{"greeting": "Hi", "farewell": "Bye"}`)
	if _, err := rec.FullSync(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.Count(ctx); n != 2 {
		t.Fatalf("Count() = %d, want 2", n)
	}

	// A fresh reconciler (as after a restart) prunes what the old one left.
	writeTestFile(t, filepath.Join(root, "en.json"), `{"greeting": "Hi"}`)
	rec2, err := reconcile.New(db, reconcile.Options{
		Namespace: "translations",
		Kind:      record.KindTranslation,
		Root:      root,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rec2.FullSync(ctx); err != nil {
		t.Fatal(err)
	}
	pruned, err := rec2.Prune(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
	if n, _ := db.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}
