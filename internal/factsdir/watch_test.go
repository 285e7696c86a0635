package factsdir

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_FileChangeTriggersCallback(t *testing.T) {
	root := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	d, err := New(root, logger)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go d.Watch(ctx, func() {
		calls.Add(1)
	})

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "new.yaml"), []byte("role: db\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "watcher did not fire on file write")
}

func TestWatch_BulkWritesDebounced(t *testing.T) {
	root := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	d, err := New(root, logger)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go d.Watch(ctx, func() {
		calls.Add(1)
	})

	time.Sleep(100 * time.Millisecond)

	// Several writes in quick succession should coalesce into one callback.
	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "bulk.txt")
		if err := os.WriteFile(name, []byte("k=v\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "watcher did not fire after bulk writes")

	time.Sleep(500 * time.Millisecond)
	if n := calls.Load(); n > 2 {
		t.Errorf("expected debounced callbacks, got %d", n)
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	root := t.TempDir()
	d, err := New(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Watch(ctx, func() {})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
