// Package daemon keeps a source directory and its records in sync while
// the process runs.
//
// # Architecture
//
// The daemon consists of two components:
//
//   - FileWatcher: recursive file system event monitoring using fsnotify
//   - Daemon: orchestrates file watching, change debouncing, and reconciliation
//
// # File Watching
//
// The FileWatcher component provides a high-level abstraction over fsnotify:
//
//	fw, err := daemon.NewFileWatcher()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer fw.Stop()
//
//	if err := fw.Start("./translations"); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range fw.Events() {
//	    log.Printf("%s %s", event.Op, event.Path)
//	}
//
// Files that exist when the watcher starts are reported as OpCreate first.
// Directories created later are watched automatically. Hidden entries and
// editor scratch files are never reported.
//
// # Debouncing
//
// Events are not reconciled immediately. Each path is stamped in a change
// queue and handed to the worker pool once it has been quiet for
// DebounceInterval, so an editor's burst of writes results in one pass.
// A path whose previous pass is still running stays queued; passes over
// the same path never overlap.
//
// # Usage
//
//	d, err := daemon.NewWithConfig(rec, &daemon.Config{
//	    DebounceInterval: 200 * time.Millisecond,
//	    Workers:          8,
//	    Querier:          store,
//	})
//	if err != nil {
//	    return err
//	}
//	return d.Start(ctx) // blocks until ctx is cancelled
package daemon
