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
	"time"

	"github.com/codenav/symdex/internal/extract"
)

// PollingWatcher watches for dump changes by periodically rescanning the
// directory. Used as a fallback when fsnotify is not available or fails
// (network mounts, some container volumes).
//
// Unlike the fsnotify path, which sees every file and filters afterwards,
// the poller never snapshots anything but dump files. Everything else in
// the tree is invisible to it, which keeps the per-tick state small even
// in directories that also hold build output.
type PollingWatcher struct {
	interval  time.Duration
	fileState map[string]dumpSnapshot
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.RWMutex
	stopped   bool
	rootPath  string
}

type dumpSnapshot struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a new polling watcher with the given interval.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval:  interval,
		fileState: make(map[string]dumpSnapshot),
		events:    make(chan FileEvent, 100),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
}

// Start begins watching the given directory by polling.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("watch root: %w", err)
	}
	p.rootPath = absPath

	// Initial scan establishes the baseline; dumps already present at
	// startup are not reported as created.
	baseline, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}
	p.mu.Lock()
	p.fileState = baseline
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				// Non-fatal error, send to error channel
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

// Stop stops the polling watcher.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// snapshot walks the directory and records the state of every dump file.
// Hidden directories are pruned; non-dump files are skipped.
func (p *PollingWatcher) snapshot() (map[string]dumpSnapshot, error) {
	state := make(map[string]dumpSnapshot)

	err := filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !extract.IsDump(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		state[relPath] = dumpSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	return state, nil
}

// detectChanges compares the current dump set with the previous one and
// emits create, modify, and delete events for the differences.
func (p *PollingWatcher) detectChanges() error {
	current, err := p.snapshot()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for path, snap := range current {
		prev, exists := p.fileState[path]
		switch {
		case !exists:
			p.emitEvent(FileEvent{
				Path:      path,
				Operation: OpCreate,
				Timestamp: time.Now(),
			})
		case prev.modTime != snap.modTime || prev.size != snap.size:
			p.emitEvent(FileEvent{
				Path:      path,
				Operation: OpModify,
				Timestamp: time.Now(),
			})
		}
	}

	for path := range p.fileState {
		if _, exists := current[path]; !exists {
			p.emitEvent(FileEvent{
				Path:      path,
				Operation: OpDelete,
				Timestamp: time.Now(),
			})
		}
	}

	p.fileState = current
	return nil
}

// emitEvent sends an event to the events channel.
// Must be called with lock held.
func (p *PollingWatcher) emitEvent(event FileEvent) {
	if p.stopped {
		return
	}

	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()),
		)
	}
}
