package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gpml/i18nsync/internal/record"
)

// populate writes n messages and a German translation for every other one.
func populate(tb testing.TB, db *DB, n int) {
	tb.Helper()

	ctx := context.Background()
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key.%04d", i)
		if err := db.Create(ctx, message("messages.json", key)); err != nil {
			tb.Fatalf("Create(message %s) failed: %v", key, err)
		}
		if i%2 == 0 {
			if err := db.Create(ctx, translation("translations", "de.json", "de", key, "wert")); err != nil {
				tb.Fatalf("Create(translation %s) failed: %v", key, err)
			}
		}
	}
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	db := setupTestDB(t)
	populate(t, db, 200)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	const readers = 16
	var wg sync.WaitGroup
	errs := make(chan error, readers+1)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(reader int) {
			defer wg.Done()
			for ctx.Err() == nil {
				missing, err := db.MissingTranslations(ctx, "de")
				if err != nil {
					if ctx.Err() == nil {
						errs <- fmt.Errorf("reader %d: %w", reader, err)
					}
					return
				}
				if len(missing) > 100 {
					errs <- fmt.Errorf("reader %d: %d keys missing, want at most 100", reader, len(missing))
					return
				}
				time.Sleep(time.Millisecond)
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; ctx.Err() == nil && i < 200; i += 2 {
			key := fmt.Sprintf("key.%04d", i)
			if err := db.Create(context.Background(), translation("translations", "de.json", "de", key, "wert")); err != nil {
				errs <- fmt.Errorf("writer: %w", err)
				return
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func BenchmarkCreate(b *testing.B) {
	db, err := Open(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()
	if err := db.InitSchema(); err != nil {
		b.Fatalf("InitSchema() failed: %v", err)
	}

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := translation("translations", "de.json", "de", fmt.Sprintf("key.%d", i), "wert")
		if err := db.Create(ctx, r); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMissingTranslations_1000(b *testing.B) {
	db, err := Open(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()
	if err := db.InitSchema(); err != nil {
		b.Fatalf("InitSchema() failed: %v", err)
	}
	populate(b, db, 1000)

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := db.MissingTranslations(ctx, "de"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQueryAll_1000(b *testing.B) {
	db, err := Open(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()
	if err := db.InitSchema(); err != nil {
		b.Fatalf("InitSchema() failed: %v", err)
	}
	populate(b, db, 1000)

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := db.QueryAll(ctx, record.KindMessage); err != nil {
			b.Fatal(err)
		}
	}
}
