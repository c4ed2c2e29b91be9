package watcher

import (
	"context"
	"fmt"
	"time"
)

// Operation classifies what happened to a dump file.
type Operation int

const (
	// OpCreate means a dump appeared that was not there before.
	OpCreate Operation = iota
	// OpModify means an existing dump was rewritten.
	OpModify
	// OpDelete means a dump disappeared.
	OpDelete
	// OpRename means a dump was moved. OldPath carries the source.
	OpRename
)

// String returns the operation name used in logs and event traces.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change, with Path relative to the watch root.
type FileEvent struct {
	// Path of the dump relative to the watch root.
	Path string

	// OldPath is set for renames only, naming where the dump came from.
	OldPath string

	// Operation says what happened.
	Operation Operation

	// IsDir marks directory events. The filters drop these before they
	// reach consumers; the field exists so the raw fsnotify translation
	// stays lossless.
	IsDir bool

	// Timestamp records when the change was observed, not when it
	// happened on disk.
	Timestamp time.Time
}

// Watcher is the contract shared by the fsnotify and polling
// implementations. Start blocks until the context is cancelled or Stop
// is called; Events and Errors are closed on stop.
type Watcher interface {
	// Start watches the directory tree rooted at path. It returns an
	// error immediately if the root cannot be watched, otherwise it
	// blocks for the life of the watch.
	Start(ctx context.Context, path string) error

	// Stop shuts the watcher down. Calling it more than once is fine.
	Stop() error

	// Events yields observed changes.
	Events() <-chan FileEvent

	// Errors yields non-fatal problems; the watch keeps running after
	// each one.
	Errors() <-chan error
}

// Options tunes watch behavior. The zero value is usable: WithDefaults
// fills in anything left unset.
type Options struct {
	// DebounceWindow is how long to coalesce bursts of events for the
	// same dump before emitting. Default 200ms.
	DebounceWindow time.Duration

	// PollInterval is the rescan period when falling back to polling.
	// Default 5s.
	PollInterval time.Duration

	// EventBufferSize caps queued event batches before the watcher
	// starts dropping. Default 1000.
	EventBufferSize int
}

// DefaultOptions returns the tuning used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

// Validate rejects settings that would make the watcher spin or drop
// everything. Zero values are fine; they mean "use the default".
func (o Options) Validate() error {
	if o.DebounceWindow < 0 {
		return fmt.Errorf("debounce window must not be negative, got %v", o.DebounceWindow)
	}
	if o.PollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative, got %v", o.PollInterval)
	}
	if o.EventBufferSize < 0 {
		return fmt.Errorf("event buffer size must not be negative, got %d", o.EventBufferSize)
	}
	return nil
}

// WithDefaults fills zero values from DefaultOptions, leaving explicit
// settings alone.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
