package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", got)
	}
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := New(Config{Path: filepath.Join(t.TempDir(), "missing", "rules.json")}, nil); err == nil {
		t.Error("expected error when the directory does not exist")
	}
}

func startWatcher(t *testing.T, path string, onReload func()) {
	t.Helper()

	fw, err := New(Config{Path: path, DebounceInterval: 30 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Watch(ctx, onReload) }()

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch() returned %v", err)
		}
	})
	// give the goroutine a moment to enter the select loop
	time.Sleep(20 * time.Millisecond)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// TestWatchReloadsOnWrite verifies a burst of writes to the watched file produces a reload
func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	startWatcher(t, path, func() {
		reloads.Add(1)
	})

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(`[{"name": "x"}]`), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, func() bool { return reloads.Load() >= 1 })
}

func TestWatchIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	startWatcher(t, path, func() {
		reloads.Add(1)
	})

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	if got := reloads.Load(); got != 0 {
		t.Errorf("sibling change triggered %d reloads", got)
	}
}

// TestWatchKeepsRunningAfterReload verifies every later burst of changes triggers another reload
func TestWatchKeepsRunningAfterReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	var attempts atomic.Int32
	startWatcher(t, path, func() {
		attempts.Add(1)
	})

	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return attempts.Load() >= 1 })

	time.Sleep(100 * time.Millisecond)
	before := attempts.Load()
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return attempts.Load() > before })
}
