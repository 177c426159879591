package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// nextEvent waits for an event matching path, skipping others.
func nextEvent(t *testing.T, fw *FileWatcher, path string) FileEvent {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-fw.Events():
			if !ok {
				t.Fatal("events channel closed")
			}
			if ev.Path == path {
				return ev
			}
		case err := <-fw.Errors():
			t.Fatalf("watcher error: %v", err)
		case <-timeout:
			t.Fatalf("timeout waiting for event on %s", path)
		}
	}
}

// TestNewFileWatcher verifies that creating a new FileWatcher succeeds.
func TestNewFileWatcher(t *testing.T) {
	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if fw.IsRunning() {
		t.Error("Newly created watcher should not be running")
	}
}

// TestFileWatcher_StartStop verifies that the watcher can start and stop cleanly.
func TestFileWatcher_StartStop(t *testing.T) {
	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}

	if err := fw.Start(t.TempDir()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !fw.IsRunning() {
		t.Error("Watcher should be running after Start()")
	}

	if err := fw.Start(t.TempDir()); err == nil {
		t.Error("Start() on a running watcher should fail")
	}

	if err := fw.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if fw.IsRunning() {
		t.Error("Watcher should not be running after Stop()")
	}

	// Stop is idempotent
	if err := fw.Stop(); err != nil {
		t.Errorf("second Stop() failed: %v", err)
	}
}

func TestFileWatcher_StartMissingDir(t *testing.T) {
	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Start() on a missing directory should fail")
	}
}

func TestFileWatcher_InitialScan(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "nested", "en.json")
	if err := os.MkdirAll(filepath.Dir(existing), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".en.json.swp"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(root); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	select {
	case ev := <-fw.Events():
		if ev.Path != existing || ev.Op != OpCreate {
			t.Errorf("first event = %+v, want create %s", ev, existing)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for initial scan event")
	}

	select {
	case ev := <-fw.Events():
		t.Errorf("unexpected event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFileWatcher_LiveEvents(t *testing.T) {
	root := t.TempDir()

	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(root); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	path := filepath.Join(root, "en.json")
	if err := os.WriteFile(path, []byte(`{"a": "1"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if ev := nextEvent(t, fw, path); ev.Op != OpCreate && ev.Op != OpModify {
		t.Errorf("expected create or modify, got %s", ev.Op)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	for {
		ev := nextEvent(t, fw, path)
		if ev.Op == OpDelete {
			break
		}
	}
}

func TestFileWatcher_NewSubdirectory(t *testing.T) {
	root := t.TempDir()

	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(root); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to add the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "de.json")
	if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, fw, path)
}

func TestEventOp_String(t *testing.T) {
	tests := []struct {
		op   EventOp
		want string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{EventOp(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("EventOp(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
