package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codenav/symdex/internal/extract"
)

// HybridWatcher watches a dump directory with fsnotify, falling back to
// polling where inotify-style APIs are unavailable (network mounts, some
// container volumes). Raw events are filtered down to dump files, pushed
// through the debouncer, and emitted as batches. Everything else in the
// watched tree is noise to the index.
type HybridWatcher struct {
	fsWatcher      *fsnotify.Watcher
	pollWatcher    *PollingWatcher
	useFsnotify    bool
	debouncer      *Debouncer
	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	rootPath       string
	opts           Options
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// The batched Events signature means HybridWatcher does not satisfy
// Watcher directly; this pins the rest of the contract.
var _ interface {
	Start(ctx context.Context, path string) error
	Stop() error
	Events() <-chan []FileEvent
	Errors() <-chan error
} = (*HybridWatcher)(nil)

// NewHybridWatcher builds a watcher, preferring fsnotify and falling
// back to polling when the fsnotify backend cannot initialize.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	if fsw, err := fsnotify.NewWatcher(); err == nil {
		h.fsWatcher = fsw
		h.useFsnotify = true
	} else {
		h.pollWatcher = NewPollingWatcher(opts.PollInterval)
	}

	return h, nil
}

// Start watches the tree rooted at path until the context is cancelled
// or Stop is called.
func (h *HybridWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("watch root: %w", err)
	}
	h.rootPath = absPath

	go h.pumpDebounced(ctx)

	if h.useFsnotify {
		return h.runFsnotify(ctx)
	}
	return h.runPolling(ctx)
}

// runFsnotify drives the fsnotify event loop.
func (h *HybridWatcher) runFsnotify(ctx context.Context) error {
	if err := h.watchTree(h.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.translateFsnotify(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.reportError(err)
		}
	}
}

// runPolling drives the polling fallback, routing its already-filtered
// events through the same debouncer as the fsnotify path.
func (h *HybridWatcher) runPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-h.pollWatcher.Events():
				if !ok {
					return
				}
				if h.ignorePath(event.Path, event.IsDir) {
					continue
				}
				h.debouncer.Add(event)
			case err, ok := <-h.pollWatcher.Errors():
				if !ok {
					return
				}
				h.reportError(err)
			}
		}
	}()

	return h.pollWatcher.Start(ctx, h.rootPath)
}

// translateFsnotify filters a raw fsnotify event and stages the dump
// events that survive.
func (h *HybridWatcher) translateFsnotify(event fsnotify.Event) {
	relPath, err := filepath.Rel(h.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	// New directories must be registered before filtering so dumps
	// created inside them are seen; the directory event itself never
	// reaches the index.
	if isDir {
		if event.Op&fsnotify.Create != 0 && !h.ignoreDir(relPath) {
			_ = h.fsWatcher.Add(event.Name)
		}
		return
	}

	if h.ignorePath(relPath, isDir) {
		return
	}

	op, ok := mapFsnotifyOp(event.Op)
	if !ok {
		return
	}

	h.debouncer.Add(FileEvent{
		Path:      relPath,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// mapFsnotifyOp converts an fsnotify op bitmask to our Operation.
// Chmod and unknown ops report false.
func mapFsnotifyOp(op fsnotify.Op) (Operation, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return OpCreate, true
	case op&fsnotify.Write != 0:
		return OpModify, true
	case op&fsnotify.Remove != 0:
		return OpDelete, true
	case op&fsnotify.Rename != 0:
		return OpRename, true
	default:
		return 0, false
	}
}

// pumpDebounced moves debounced batches to the output channel.
func (h *HybridWatcher) pumpDebounced(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case batch, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			if len(batch) == 0 {
				continue
			}
			h.deliver(batch)
		}
	}
}

// watchTree registers root and every non-hidden directory below it.
func (h *HybridWatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}

		if !d.IsDir() {
			return nil
		}

		relPath, _ := filepath.Rel(h.rootPath, path)
		if relPath == "." {
			return h.fsWatcher.Add(path)
		}

		if h.ignoreDir(relPath) {
			return filepath.SkipDir
		}

		return h.fsWatcher.Add(path)
	})
}

// ignoreDir reports whether a directory is out of scope. Hidden
// directories (.git, IDE state) never hold published dumps.
func (h *HybridWatcher) ignoreDir(relPath string) bool {
	return strings.HasPrefix(filepath.Base(relPath), ".")
}

// ignorePath reports whether an event path is out of scope. Directory
// events are dropped; file events pass only for dump files.
func (h *HybridWatcher) ignorePath(relPath string, isDir bool) bool {
	if relPath == "." || relPath == "" {
		return true
	}

	if isDir {
		return true
	}

	if strings.HasPrefix(filepath.Base(relPath), ".") {
		return true
	}

	return !extract.IsDump(relPath)
}

// deliver hands a batch to the consumer, dropping it with a counter
// bump when the consumer has fallen behind.
func (h *HybridWatcher) deliver(batch []FileEvent) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped {
		return
	}

	select {
	case h.events <- batch:
	default:
		count := h.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count),
		)
	}
}

// DroppedBatches reports how many batches were dropped because the
// consumer was not keeping up.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.droppedBatches.Load()
}

// reportError surfaces a non-fatal error without blocking the loop.
func (h *HybridWatcher) reportError(err error) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped {
		return
	}

	select {
	case h.errors <- err:
	default:
	}
}

// Stop shuts the watcher down and closes its channels. Idempotent.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}

	h.stopped = true
	close(h.stopCh)

	h.debouncer.Stop()

	if h.useFsnotify && h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

// Events returns the channel of debounced event batches.
func (h *HybridWatcher) Events() <-chan []FileEvent {
	return h.events
}

// Errors returns the channel of non-fatal watch errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// IsHealthy reports whether the watcher is still running.
func (h *HybridWatcher) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.stopped
}

// WatcherType names the active backend, "fsnotify" or "polling".
func (h *HybridWatcher) WatcherType() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// RootPath returns the absolute directory being watched.
func (h *HybridWatcher) RootPath() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootPath
}
