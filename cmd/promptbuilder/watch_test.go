package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchFiles(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.yaml")
	other := filepath.Join(dir, "unrelated.txt")
	if err := os.WriteFile(path, []byte("sections: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFiles(ctx, []string{path}, 20*time.Millisecond, nil, func() { calls.Add(1) })
	}()

	waitFor(t, func() bool { return calls.Load() == 1 }, "initial render")

	// Unrelated files in the same directory do not trigger
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 call after unrelated write, got %d", n)
	}

	if err := os.WriteFile(path, []byte("sections: {a: {content: x}}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() == 2 }, "render after change")

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatchFiles_MissingDir(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	path := filepath.Join(t.TempDir(), "missing", "prompt.yaml")
	err := watchFiles(context.Background(), []string{path}, time.Millisecond, nil, func() {})
	if err == nil {
		t.Error("expected error watching a missing directory")
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWatchFiles_Reload(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	path := filepath.Join(t.TempDir(), "prompt.yaml")
	if err := os.WriteFile(path, []byte("sections: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reload := make(chan struct{}, 1)
	var calls atomic.Int32
	go func() {
		_ = watchFiles(ctx, []string{path}, 20*time.Millisecond, reload, func() { calls.Add(1) })
	}()

	waitFor(t, func() bool { return calls.Load() == 1 }, "initial render")
	reload <- struct{}{}
	waitFor(t, func() bool { return calls.Load() == 2 }, "render after reload signal")
}
