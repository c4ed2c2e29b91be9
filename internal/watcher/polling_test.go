package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startPolling runs a 50ms poller over dir and waits out the baseline
// scan so pre-existing dumps are not reported as new.
func startPolling(t *testing.T, dir string) *PollingWatcher {
	t.Helper()

	w := NewPollingWatcher(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { _ = w.Stop() })

	go func() { _ = w.Start(ctx, dir) }()

	time.Sleep(100 * time.Millisecond)
	return w
}

// awaitPollEvent returns the next event, failing on watcher errors or
// after one second of silence.
func awaitPollEvent(t *testing.T, w *PollingWatcher) FileEvent {
	t.Helper()

	select {
	case event := <-w.Events():
		return event
	case err := <-w.Errors():
		t.Fatalf("unexpected watcher error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for poll event")
	}
	return FileEvent{}
}

func writeDumpFile(t *testing.T, path string, lines string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
}

func TestPollingWatcher_DetectsDumpCreation(t *testing.T) {
	dir := t.TempDir()
	w := startPolling(t, dir)

	writeDumpFile(t, filepath.Join(dir, "new.symbols.jsonl"), `{"fqn":"com.shop.Order","kind":"class"}`)

	event := awaitPollEvent(t, w)
	assert.Equal(t, OpCreate, event.Operation)
	assert.Equal(t, "new.symbols.jsonl", event.Path)
}

func TestPollingWatcher_DetectsDumpModification(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "existing.symbols.jsonl")
	writeDumpFile(t, dump, `{"fqn":"com.shop.Order","kind":"class"}`)

	w := startPolling(t, dir)

	// Append a line; even with a coarse mtime clock the size change is
	// enough to register.
	writeDumpFile(t, dump,
		`{"fqn":"com.shop.Order","kind":"class"}`+"\n"+`{"fqn":"com.shop.Order.total","kind":"method"}`)

	event := awaitPollEvent(t, w)
	assert.Equal(t, OpModify, event.Operation)
	assert.Equal(t, "existing.symbols.jsonl", event.Path)
}

func TestPollingWatcher_DetectsDumpDeletion(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "todelete.symbols.jsonl")
	writeDumpFile(t, dump, `{"fqn":"com.shop.Order","kind":"class"}`)

	w := startPolling(t, dir)

	require.NoError(t, os.Remove(dump))

	event := awaitPollEvent(t, w)
	assert.Equal(t, OpDelete, event.Operation)
	assert.Equal(t, "todelete.symbols.jsonl", event.Path)
}

func TestPollingWatcher_BaselineNotReported(t *testing.T) {
	dir := t.TempDir()
	writeDumpFile(t, filepath.Join(dir, "already-there.symbols.jsonl"), `{"fqn":"com.shop.Cart","kind":"class"}`)

	w := startPolling(t, dir)

	// Dumps present before Start belong to the baseline and must not
	// surface as creations.
	select {
	case event := <-w.Events():
		t.Fatalf("baseline dump reported as event: %v", event)
	case <-time.After(250 * time.Millisecond):
	}
}

func TestPollingWatcher_DetectsDumpInNewDirectory(t *testing.T) {
	dir := t.TempDir()
	w := startPolling(t, dir)

	subDir := filepath.Join(dir, "orders")
	require.NoError(t, os.MkdirAll(subDir, 0o755))
	writeDumpFile(t, filepath.Join(subDir, "orders.symbols.jsonl"), `{"fqn":"com.shop.Order","kind":"class"}`)

	// Exactly one CREATE arrives, for the dump. The directory itself is
	// not an indexable unit and produces no event.
	events := collectEvents(w.Events(), 2, 500*time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, OpCreate, events[0].Operation)
	assert.Equal(t, filepath.Join("orders", "orders.symbols.jsonl"), events[0].Path)
}

func TestPollingWatcher_IgnoresNonDumpFiles(t *testing.T) {
	dir := t.TempDir()
	w := startPolling(t, dir)

	// Non-dumps, including a name that only almost matches the suffix.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("scratch"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "symbols.json"), []byte("{}"), 0o644))

	select {
	case event := <-w.Events():
		t.Fatalf("unexpected event for non-dump file: %v", event)
	case <-time.After(250 * time.Millisecond):
	}

	// A real dump written afterwards still gets through.
	writeDumpFile(t, filepath.Join(dir, "real.symbols.jsonl"), `{"fqn":"com.shop.Cart","kind":"class"}`)

	event := awaitPollEvent(t, w)
	assert.Equal(t, OpCreate, event.Operation)
	assert.Equal(t, "real.symbols.jsonl", event.Path)
}

func TestPollingWatcher_Stop_ClosesChannels(t *testing.T) {
	dir := t.TempDir()
	w := startPolling(t, dir)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	_, ok := <-w.Events()
	assert.False(t, ok, "events channel should be closed")
}

func TestPollingWatcher_ContextCancellation(t *testing.T) {
	w := NewPollingWatcher(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, t.TempDir()) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancel")
	}
}

// collectEvents collects up to n events or until timeout.
func collectEvents(ch <-chan FileEvent, n int, timeout time.Duration) []FileEvent {
	var events []FileEvent
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for len(events) < n {
		select {
		case e, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, e)
		case <-timer.C:
			return events
		}
	}
	return events
}
