package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid file events so the index is not rewritten
// once per write syscall. Dump generators tend to rewrite files in
// bursts (truncate, write, rename), so events for the same path within
// the window collapse into the single operation the burst amounts to:
//
//	CREATE then MODIFY  -> CREATE   (still a new dump)
//	CREATE then DELETE  -> dropped  (nothing ever became visible)
//	MODIFY then DELETE  -> DELETE   (the dump is gone)
//	DELETE then CREATE  -> MODIFY   (the dump was replaced)
//
// Anything else keeps the latest operation.
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	staged  map[string]stagedEvent
	output  chan []FileEvent
	timer   *time.Timer
	stopCh  chan struct{}
	stopped bool
}

// stagedEvent is a not-yet-emitted event plus the operation that opened
// its burst, which is what the coalescing table keys on.
type stagedEvent struct {
	event   FileEvent
	firstOp Operation
}

// NewDebouncer creates a debouncer that holds events for window before
// emitting them as a batch.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		staged: make(map[string]stagedEvent),
		output: make(chan []FileEvent, 10),
		stopCh: make(chan struct{}),
	}
}

// Add stages an event, merging it with any pending event for the same
// path, and (re)arms the flush timer.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	prev, pending := d.staged[event.Path]
	if !pending {
		d.staged[event.Path] = stagedEvent{event: event, firstOp: event.Operation}
		d.armFlush()
		return
	}

	merged, keep := coalesce(prev, event)
	if !keep {
		delete(d.staged, event.Path)
	} else {
		d.staged[event.Path] = stagedEvent{event: merged, firstOp: prev.firstOp}
	}
	d.armFlush()
}

// coalesce folds the next event into a pending burst. The bool is false
// when the pair cancels out entirely.
func coalesce(prev stagedEvent, next FileEvent) (FileEvent, bool) {
	switch prev.firstOp {
	case OpCreate:
		switch next.Operation {
		case OpModify:
			return prev.event, true
		case OpDelete:
			return FileEvent{}, false
		}
	case OpDelete:
		if next.Operation == OpCreate {
			next.Operation = OpModify
			return next, true
		}
	}
	// MODIFY bursts and everything unlisted resolve to the latest event.
	return next, true
}

// armFlush restarts the flush timer. Caller holds the lock.
func (d *Debouncer) armFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush emits everything staged as one batch.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.staged) == 0 {
		return
	}

	batch := make([]FileEvent, 0, len(d.staged))
	for _, se := range d.staged {
		batch = append(batch, se.event)
	}
	d.staged = make(map[string]stagedEvent)

	select {
	case d.output <- batch:
	default:
		slog.Warn("debouncer output full, dropping batch",
			slog.Int("batch_size", len(batch)),
		)
	}
}

// Output returns the channel of debounced event batches.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop halts the debouncer and closes the output channel. Safe to call
// more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.stopCh)
	close(d.output)
}
