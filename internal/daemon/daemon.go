package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/gpml/i18nsync/internal/reconcile"
)

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long a path must stay quiet before it is
	// processed. This batches rapid updates together.
	DebounceInterval time.Duration

	// Workers is the number of files reconciled concurrently.
	Workers int

	// Querier, if set, is used to prune orphaned records after the
	// initial full sync.
	Querier reconcile.Querier

	// OnFullSync, if set, receives the summary of the initial full sync.
	OnFullSync func(reconcile.Summary, time.Duration)

	// OnSync, if set, is called after every incremental pass.
	OnSync func(reconcile.Result, error)

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 200 * time.Millisecond,
		Workers:          4,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Stats is a snapshot of daemon activity.
type Stats struct {
	Processed uint64
	Failed    uint64
	Queued    int
	InFlight  int
}

// Daemon orchestrates file watching and reconciliation for one source root.
type Daemon struct {
	rec    *reconcile.Reconciler
	config *Config

	watcher *FileWatcher
	pool    *ants.Pool

	changeQueue   map[string]time.Time // filepath -> timestamp
	inFlight      map[string]struct{}
	changeQueueMu sync.Mutex

	processed atomic.Uint64
	failed    atomic.Uint64

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	passes   sync.WaitGroup
	stopOnce sync.Once
}

// New creates a new Daemon for rec with the default configuration.
//
// Use Start() to begin watching and syncing.
func New(rec *reconcile.Reconciler) (*Daemon, error) {
	return NewWithConfig(rec, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(rec *reconcile.Reconciler, config *Config) (*Daemon, error) {
	if rec == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = defaults.DebounceInterval
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	watcher, err := NewFileWatcher()
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(config.Workers,
		ants.WithNonblocking(true),
		ants.WithLogger(config.Logger),
		ants.WithPanicHandler(func(p any) {
			config.Logger.Printf("ERROR: reconcile pass panicked: %v", p)
		}),
	)
	if err != nil {
		_ = watcher.Stop()
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		rec:         rec,
		config:      config,
		watcher:     watcher,
		pool:        pool,
		changeQueue: make(map[string]time.Time),
		inFlight:    make(map[string]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Perform a full sync of the source root
// 2. Prune orphaned records when a Querier is configured
// 3. Start watching the root for file changes
// 4. Process file changes with debouncing
//
// This blocks until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Printf("Starting daemon for %s (%s)", d.rec.Root(), d.rec.Namespace())

	if err := d.PerformFullSync(ctx); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	if err := os.MkdirAll(d.rec.Root(), 0755); err != nil {
		return fmt.Errorf("failed to create source directory: %w", err)
	}
	if err := d.watcher.Start(d.rec.Root()); err != nil {
		return fmt.Errorf("failed to watch source directory: %w", err)
	}

	d.config.Logger.Printf("Watching: %s", d.rec.Root())

	// Start background goroutines
	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	// Wait for shutdown
	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon. Passes already running are
// allowed to finish; queued paths are dropped.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		d.config.Logger.Println("Stopping daemon")

		// Signal shutdown
		d.cancel()

		if err := d.watcher.Stop(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}

		// Wait for goroutines to finish
		d.wg.Wait()
		d.passes.Wait()
		d.pool.Release()

		d.config.Logger.Println("Daemon stopped")
	})
	return nil
}

// PerformFullSync reconciles every file under the source root and, when a
// Querier is configured, prunes records no file produced.
//
// It's called on startup and can be triggered manually; Prune checks each
// candidate under its source path lock, so passes may be in flight.
func (d *Daemon) PerformFullSync(ctx context.Context) error {
	start := time.Now()
	summary, err := d.rec.FullSync(ctx)
	if err != nil {
		return err
	}
	d.processed.Add(uint64(summary.Files))
	d.failed.Add(uint64(len(summary.Failures)))

	if d.config.Querier != nil {
		if _, err := d.rec.Prune(ctx, d.config.Querier); err != nil {
			return fmt.Errorf("failed to prune orphaned records: %w", err)
		}
	}

	if d.config.OnFullSync != nil {
		d.config.OnFullSync(summary, time.Since(start))
	}
	return nil
}

// Stats returns a snapshot of daemon activity.
func (d *Daemon) Stats() Stats {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	return Stats{
		Processed: d.processed.Load(),
		Failed:    d.failed.Load(),
		Queued:    len(d.changeQueue),
		InFlight:  len(d.inFlight),
	}
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}

			d.queueChange(event.Path)

			// A removed or renamed directory takes its tracked files with it.
			if event.Op == OpDelete {
				prefix := event.Path + string(filepath.Separator)
				for _, path := range d.rec.Tracker().Paths() {
					if strings.HasPrefix(path, prefix) {
						d.queueChange(path)
					}
				}
			}

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue processes queued file changes with debouncing.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges hands settled paths to the worker pool. A path
// whose previous pass is still running stays queued until it finishes.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		// Only process if enough time has passed (debouncing)
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		if _, busy := d.inFlight[path]; busy {
			continue
		}

		d.inFlight[path] = struct{}{}
		d.passes.Add(1)
		if err := d.pool.Submit(func() { d.syncPath(path) }); err != nil {
			delete(d.inFlight, path)
			d.passes.Done()
			if !errors.Is(err, ants.ErrPoolOverload) {
				d.config.Logger.Printf("Error scheduling %s: %v", path, err)
			}
			// Stays queued for the next tick.
			continue
		}
		delete(d.changeQueue, path)
	}
}

// syncPath runs one reconcile pass for path.
func (d *Daemon) syncPath(path string) {
	defer func() {
		d.changeQueueMu.Lock()
		delete(d.inFlight, path)
		d.changeQueueMu.Unlock()
		d.passes.Done()
	}()

	res, err := d.rec.Sync(d.ctx, path)
	d.processed.Add(1)
	if err != nil && d.ctx.Err() != nil {
		return
	}
	if d.config.OnSync != nil {
		d.config.OnSync(res, err)
	}
	if err != nil {
		d.failed.Add(1)
		var f *reconcile.Failure
		if !errors.As(err, &f) {
			d.config.Logger.Printf("Error syncing %s: %v", path, err)
		}
	}
}
