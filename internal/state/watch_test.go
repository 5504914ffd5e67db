package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchTaskFile_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "RALPH_TASK.md")
	if err := os.WriteFile(path, []byte("- [ ] one\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed := make(chan struct{}, 1)
	stop, err := WatchTaskFile(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("- [x] one\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onChange to fire after an external write to the watched task file")
	}
}

func TestWatchTaskFile_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "RALPH_TASK.md")
	if err := os.WriteFile(path, []byte("- [ ] one\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stop, err := WatchTaskFile(path, func() {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("unexpected error on first stop: %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("expected a second stop call to be a safe no-op, got: %v", err)
	}
}
