package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Lifecycle tests. Watchers run for the whole life of a serve or watch
// session, so startup failures, shutdown, and cancellation need to be
// loud and prompt rather than silent.

func TestHybridWatcher_Start_MissingRoot_ReturnsError(t *testing.T) {
	// Given: a hybrid watcher
	w, err := NewHybridWatcher(DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	// When: starting on a path that does not exist
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = w.Start(ctx, filepath.Join(t.TempDir(), "never-created"))

	// Then: Start fails immediately instead of watching nothing
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch root")
}

func TestPollingWatcher_Start_MissingRoot_ReturnsError(t *testing.T) {
	// Given: a polling watcher
	w := NewPollingWatcher(100 * time.Millisecond)

	// When: starting on a path that does not exist
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := w.Start(ctx, filepath.Join(t.TempDir(), "never-created"))

	// Then: Start fails immediately
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch root")
}

func TestHybridWatcher_Stop_Idempotent(t *testing.T) {
	// Given: a started watcher
	tmpDir := t.TempDir()
	opts := Options{
		DebounceWindow:  10 * time.Millisecond,
		EventBufferSize: 10,
	}

	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Start(ctx, tmpDir)
	}()
	time.Sleep(100 * time.Millisecond)

	// When: stopping twice
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	// Then: the watcher reports unhealthy and channels are closed
	assert.False(t, w.IsHealthy())
	select {
	case _, ok := <-w.Events():
		assert.False(t, ok, "events channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for events channel close")
	}
}

func TestHybridWatcher_ContextCancel_StopsPromptly(t *testing.T) {
	// Given: a started watcher
	tmpDir := t.TempDir()
	w, err := NewHybridWatcher(Options{
		DebounceWindow:  10 * time.Millisecond,
		EventBufferSize: 10,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	startErr := make(chan error, 1)
	go func() {
		startErr <- w.Start(ctx, tmpDir)
	}()
	time.Sleep(100 * time.Millisecond)

	// When: the context is cancelled
	cancel()

	// Then: Start returns the cancellation without hanging
	select {
	case err := <-startErr:
		assert.True(t, err == nil || errors.Is(err, context.Canceled),
			"unexpected start error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after context cancel")
	}
}

func TestHybridWatcher_WatchedRootDeleted_NoPanic(t *testing.T) {
	// Given: a watcher over a directory containing a dump
	tmpDir := t.TempDir()
	watchDir := filepath.Join(tmpDir, "dumps")
	require.NoError(t, os.MkdirAll(watchDir, 0o755))
	dump := filepath.Join(watchDir, "core.symbols.jsonl")
	require.NoError(t, os.WriteFile(dump, []byte(`{"fqn":"com.shop.Order","kind":"class"}`), 0o644))

	w, err := NewHybridWatcher(Options{
		DebounceWindow:  10 * time.Millisecond,
		EventBufferSize: 10,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Start(ctx, watchDir)
	}()
	time.Sleep(200 * time.Millisecond)

	// When: the whole watched tree disappears
	require.NoError(t, os.RemoveAll(watchDir))

	// Then: the watcher survives. A delete batch or an error are both
	// fine; a panic or a hang is not.
	deadline := time.After(time.Second)
	for {
		select {
		case <-w.Events():
		case <-w.Errors():
		case <-deadline:
			require.NoError(t, w.Stop())
			return
		}
	}
}

func TestHybridWatcher_ConcurrentStop_Safe(t *testing.T) {
	// Given: a started watcher
	tmpDir := t.TempDir()
	w, err := NewHybridWatcher(DefaultOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Start(ctx, tmpDir)
	}()
	time.Sleep(100 * time.Millisecond)

	// When: ten goroutines race to stop it
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			_ = w.Stop()
			done <- struct{}{}
		}()
	}

	// Then: all complete without panic
	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent stops did not complete in time")
		}
	}
}
