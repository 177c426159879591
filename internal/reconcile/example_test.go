package reconcile_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/gpml/i18nsync/internal/reconcile"
	"github.com/gpml/i18nsync/internal/record"
)

type printSink struct{}

func (printSink) Create(_ context.Context, r *record.Record) error {
	fmt.Printf("create %s/%s = %q\n", r.Language, r.Key, r.Value)
	return nil
}

func (printSink) Delete(_ context.Context, id string) error {
	fmt.Println("delete", id)
	return nil
}

func ExampleReconciler_Sync() {
	root, _ := os.MkdirTemp("", "translations")
	defer os.RemoveAll(root)

	rec, err := reconcile.New(printSink{}, reconcile.Options{
		Namespace: "translations",
		Kind:      record.KindTranslation,
		Root:      root,
		Logger:    log.New(io.Discard, "", 0),
	})
	if err != nil {
		panic(err)
	}

	path := filepath.Join(root, "en.json")
	_ = os.WriteFile(path, []byte(`{"greeting": "Hi"}`), 0644)
	res, _ := rec.Sync(context.Background(), path)
	fmt.Println("created:", res.Created)

	_ = os.WriteFile(path, []byte(`{"greeting": "Hello"}`), 0644)
	res, _ = rec.Sync(context.Background(), path)
	fmt.Println("created:", res.Created, "deleted:", res.Deleted)
	// Output:
	// create en/greeting = "Hi"
	// created: 1
	// create en/greeting = "Hello"
	// created: 1 deleted: 0
}
