package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gpml/i18nsync/internal/reconcile"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates a new file was created.
	OpCreate EventOp = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file (or directory) was deleted or moved away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FileEvent represents a file system event under the watched root.
type FileEvent struct {
	// Path is the absolute path to the file that changed.
	Path string
	// Op is the operation that occurred (create, modify, delete).
	Op EventOp
}

// FileWatcher watches a directory tree for changes.
// It uses fsnotify for cross-platform file system event monitoring and
// adds watches for subdirectories as they appear.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	events  chan FileEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	stopped bool
	root    string
}

// NewFileWatcher creates a new FileWatcher instance.
// The watcher must be started with Start() before it will emit events.
func NewFileWatcher() (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		events:  make(chan FileEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching root and every non-hidden directory below it.
//
// Every regular file that already exists is reported as OpCreate before
// live events are delivered, so a consumer sees the current state of the
// tree even for files that were written before the watcher started.
func (fw *FileWatcher) Start(root string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("watcher already running")
	}
	if fw.stopped {
		return fmt.Errorf("watcher already stopped")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("failed to watch directory %s: not a directory", root)
	}
	fw.root = abs

	existing, err := fw.addTree(abs)
	if err != nil {
		for _, dir := range fw.watcher.WatchList() {
			_ = fw.watcher.Remove(dir)
		}
		return err
	}

	fw.running = true
	fw.wg.Add(1)
	go fw.processEvents(existing)

	return nil
}

// Stop stops watching for file system events and cleans up resources.
// It blocks until the event processing goroutine has exited.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return nil
	}
	wasRunning := fw.running
	fw.running = false
	fw.stopped = true
	fw.mu.Unlock()

	// Signal shutdown
	close(fw.done)

	// Close the underlying watcher (this will unblock the event loop)
	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	if wasRunning {
		fw.wg.Wait()
	}

	close(fw.events)
	close(fw.errors)

	return nil
}

// Events returns the channel that emits FileEvent notifications.
// This channel is closed when the watcher is stopped.
func (fw *FileWatcher) Events() <-chan FileEvent {
	return fw.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errors
}

// Root returns the absolute watched root.
func (fw *FileWatcher) Root() string {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.root
}

// IsRunning returns true if the watcher is currently running.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

// addTree watches dir and its subdirectories and returns the regular
// files found in them.
func (fw *FileWatcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish while being walked.
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != fw.root && reconcile.SkipName(d.Name()) {
				return filepath.SkipDir
			}
			if err := fw.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch directory %s: %w", path, err)
			}
			return nil
		}
		if d.Type().IsRegular() && !reconcile.SkipName(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// processEvents is the main event loop that processes fsnotify events
// and converts them to FileEvent notifications.
func (fw *FileWatcher) processEvents(existing []string) {
	defer fw.wg.Done()

	for _, path := range existing {
		if !fw.emit(FileEvent{Path: path, Op: OpCreate}) {
			return
		}
	}

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			for _, fileEvent := range fw.convertEvent(event) {
				if !fw.emit(fileEvent) {
					return
				}
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case fw.errors <- err:
			case <-fw.done:
				return
			}
		}
	}
}

func (fw *FileWatcher) emit(ev FileEvent) bool {
	select {
	case fw.events <- ev:
		return true
	case <-fw.done:
		return false
	}
}

// convertEvent converts an fsnotify event to FileEvents.
// A new directory is watched and yields an OpCreate for every file already
// inside it; chmod events and ignored names yield nothing.
func (fw *FileWatcher) convertEvent(event fsnotify.Event) []FileEvent {
	if reconcile.SkipName(filepath.Base(event.Name)) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Lstat(event.Name)
		if err != nil {
			// Gone again before we looked.
			return nil
		}
		if info.IsDir() {
			files, err := fw.addTree(event.Name)
			if err != nil {
				fw.reportError(err)
			}
			events := make([]FileEvent, 0, len(files))
			for _, path := range files {
				events = append(events, FileEvent{Path: path, Op: OpCreate})
			}
			return events
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return []FileEvent{{Path: event.Name, Op: OpCreate}}

	case event.Has(fsnotify.Write):
		return []FileEvent{{Path: event.Name, Op: OpModify}}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// Treat rename as delete (the new name will trigger a create)
		return []FileEvent{{Path: event.Name, Op: OpDelete}}

	default:
		// Ignore chmod and other events
		return nil
	}
}

func (fw *FileWatcher) reportError(err error) {
	select {
	case fw.errors <- err:
	default:
	}
}
