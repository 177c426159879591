package main

import (
	"fmt"

	"github.com/gpml/i18nsync/internal/config"
	"github.com/gpml/i18nsync/internal/reconcile"
	"github.com/gpml/i18nsync/internal/store"
)

// openStore opens the record store and makes sure its schema exists.
func openStore(cfg *config.Config) *store.DB {
	database, err := store.Open(cfg.Database)
	if err != nil {
		exitf("opening record store: %v", err)
	}
	if err := database.InitSchema(); err != nil {
		_ = database.Close()
		exitf("initializing schema: %v", err)
	}
	return database
}

// newReconcilers builds one reconciler per configured source.
func newReconcilers(cfg *config.Config, sink reconcile.Sink, onFailure func(*reconcile.Failure)) ([]*reconcile.Reconciler, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	recs := make([]*reconcile.Reconciler, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		registry, err := src.Registry()
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		rec, err := reconcile.New(sink, reconcile.Options{
			Namespace: src.Name,
			Kind:      src.RecordKind(),
			Root:      src.Path,
			Registry:  registry,
			Priority:  src.Priority,
			Logger:    newLogger(fmt.Sprintf("[%s] ", src.Name), true),
			OnFailure: onFailure,
		})
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
