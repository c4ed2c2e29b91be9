// Package watcher keeps the symbol index in sync with a dump directory.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: Polling for environments where fsnotify fails (network mounts, Docker volumes)
//
// Only symbol-dump files pass the event filter. Events are debounced to
// coalesce the write bursts dump generators produce, then handed to a
// Reindexer: a changed dump is reindexed in two phases (stage removal,
// persist with commit), a deleted dump is removed and committed.
//
// Usage:
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	r, err := watcher.NewReindexer(svc, manifest)
//	if err != nil {
//	    return err
//	}
//
//	if err := r.Run(ctx, w, dumpDir); err != nil {
//	    return err
//	}
package watcher
