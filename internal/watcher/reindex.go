package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/codenav/symdex/internal/extract"
	"github.com/codenav/symdex/internal/schema"
)

// Indexer is the slice of the index service the reindexer drives.
type Indexer interface {
	Persist(ctx context.Context, symbols []schema.SourceSymbolInfo, commit, boost bool) error
	Remove(ctx context.Context, files []schema.FileRef) error
	Commit(ctx context.Context) error
}

// Ledger records which dump files are indexed.
type Ledger interface {
	RecordIndexed(ctx context.Context, path string, symbolCount int) error
	RemoveFile(ctx context.Context, path string) error
}

// Reindexer consumes watcher events and keeps the index in sync with the
// dump directory. A changed dump is reindexed in two phases: stale
// documents are staged for removal, then the fresh symbols are persisted
// with a commit, so the swap lands in one durability boundary. A deleted
// dump is removed and committed immediately.
type Reindexer struct {
	svc    Indexer
	ledger Ledger
	reader *extract.Reader
	logger *slog.Logger
}

// ReindexerOption configures a Reindexer.
type ReindexerOption func(*Reindexer)

// WithReindexLogger sets the logger for reindex operations.
func WithReindexLogger(logger *slog.Logger) ReindexerOption {
	return func(r *Reindexer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReader sets the dump reader.
func WithReader(reader *extract.Reader) ReindexerOption {
	return func(r *Reindexer) {
		if reader != nil {
			r.reader = reader
		}
	}
}

// NewReindexer creates a reindexer over the given index service and ledger.
func NewReindexer(svc Indexer, ledger Ledger, opts ...ReindexerOption) (*Reindexer, error) {
	if svc == nil {
		return nil, fmt.Errorf("indexer must not be nil")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger must not be nil")
	}

	r := &Reindexer{
		svc:    svc,
		ledger: ledger,
		reader: extract.NewReader(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Run watches dir and applies every event batch until the context is
// cancelled. Cancellation is the normal way to stop; it is not reported
// as an error.
func (r *Reindexer) Run(ctx context.Context, w *HybridWatcher, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve watch directory: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case events, ok := <-w.Events():
				if !ok {
					return
				}
				r.Apply(ctx, absDir, events)
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				r.logger.Warn("watch_error", slog.String("error", err.Error()))
			}
		}
	}()

	r.logger.Info("watching",
		slog.String("dir", absDir),
		slog.String("mode", w.WatcherType()))

	if err := w.Start(ctx, absDir); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Apply handles one batch of debounced events. Paths in events are
// relative to root. Failures are logged per file; one bad dump never
// blocks the rest of the batch.
func (r *Reindexer) Apply(ctx context.Context, root string, events []FileEvent) {
	for _, ev := range events {
		if ev.IsDir || !extract.IsDump(ev.Path) {
			continue
		}

		path := filepath.Join(root, ev.Path)

		switch ev.Operation {
		case OpCreate, OpModify:
			r.reindexDump(ctx, path)
		case OpDelete, OpRename:
			r.dropDump(ctx, path)
		}
	}
}

// reindexDump replaces all documents of one dump with its current contents.
func (r *Reindexer) reindexDump(ctx context.Context, path string) {
	symbols, err := r.reader.ReadFile(path)
	if err != nil {
		// The dump may have vanished between the event and the read.
		r.logger.Warn("dump_read_failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return
	}

	if err := r.svc.Remove(ctx, []schema.FileRef{{URI: path}}); err != nil {
		r.logger.Error("stale_removal_failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return
	}

	if err := r.svc.Persist(ctx, symbols, true, false); err != nil {
		r.logger.Error("reindex_failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return
	}

	if err := r.ledger.RecordIndexed(ctx, path, len(symbols)); err != nil {
		r.logger.Warn("manifest_update_failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
	}

	r.logger.Info("dump_reindexed",
		slog.String("file", path),
		slog.Int("symbols", len(symbols)))
}

// dropDump removes all documents of a deleted or renamed-away dump.
func (r *Reindexer) dropDump(ctx context.Context, path string) {
	if err := r.svc.Remove(ctx, []schema.FileRef{{URI: path}}); err != nil {
		r.logger.Error("removal_failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return
	}

	if err := r.svc.Commit(ctx); err != nil {
		r.logger.Error("removal_commit_failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return
	}

	if err := r.ledger.RemoveFile(ctx, path); err != nil {
		r.logger.Warn("manifest_update_failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
	}

	r.logger.Info("dump_dropped", slog.String("file", path))
}
