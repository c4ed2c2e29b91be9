package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/codenav/symdex/internal/extract"
	"github.com/codenav/symdex/internal/output"
	"github.com/codenav/symdex/internal/schema"
)

func newIndexCmd() *cobra.Command {
	var (
		force bool
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "index [dir|file]",
		Short: "Ingest symbol dumps into the index",
		Long: `Ingest *.symbols.jsonl dumps into the search index.

Without an argument the configured dump directory is ingested. Only
dumps that changed since their last ingest are reindexed; --force
reindexes everything. Each dump is reindexed in two phases, a staged
removal of its old documents followed by a persist of the fresh
ones, and the whole run lands in a single commit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Ctrl+C cancels between dumps, never inside an engine batch
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runIndex(ctx, cmd, path, force, quiet)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reindex all dumps, not just stale ones")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, force, quiet bool) error {
	start := time.Now()

	startDir := path
	if startDir == "" {
		startDir = "."
	}
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if info, err := os.Stat(absStart); err == nil && !info.IsDir() {
		startDir = filepath.Dir(absStart)
	} else {
		startDir = absStart
	}

	cfg, root, err := loadConfig(startDir)
	if err != nil {
		return err
	}

	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	out := output.New(cmd.OutOrStdout(), output.WithQuiet(quiet))

	sv, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer sv.Close()

	// No argument means the configured dump directory.
	target := absStart
	if path == "" {
		target = cfg.ResolveDumpDir(root)
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", target, err)
	}

	var paths []string
	switch {
	case !info.IsDir():
		if !extract.IsDump(target) {
			return fmt.Errorf("%s is not a symbol dump (want the %s suffix)", target, extract.DumpSuffix)
		}
		paths = []string{target}
	case force:
		paths, err = extract.ListDumps(target)
		if err != nil {
			return err
		}
	default:
		paths, err = sv.man.StaleFiles(ctx, target)
		if err != nil {
			return err
		}
	}

	slog.Info("ingest_started",
		slog.String("target", target),
		slog.Bool("force", force),
		slog.Int("dumps", len(paths)))

	results, err := readDumps(ctx, cfg.Index.Workers, paths)
	if err != nil {
		return err
	}

	if len(paths) > 0 {
		out.Statusf("📦", "Ingesting %d dumps from %s", len(paths), target)
	}

	indexed := 0
	symbolCount := 0
	for i, res := range results {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if res.err != nil {
			out.Warningf("Skipping %s: %v", filepath.Base(res.path), res.err)
			continue
		}

		if err := sv.svc.Remove(ctx, []schema.FileRef{{URI: res.path}}); err != nil {
			return fmt.Errorf("remove stale documents of %s: %w", res.path, err)
		}
		batch := cfg.Index.BatchSize
		for lo := 0; lo < len(res.symbols); lo += batch {
			hi := lo + batch
			if hi > len(res.symbols) {
				hi = len(res.symbols)
			}
			if err := sv.svc.Persist(ctx, res.symbols[lo:hi], false, false); err != nil {
				return fmt.Errorf("persist %s: %w", res.path, err)
			}
		}
		if err := sv.man.RecordIndexed(ctx, res.path, len(res.symbols)); err != nil {
			return fmt.Errorf("record %s in manifest: %w", res.path, err)
		}

		indexed++
		symbolCount += len(res.symbols)
		out.Progress(i+1, len(results), filepath.Base(res.path))
	}

	dropped := 0
	if info.IsDir() {
		dropped, err = dropVanishedDumps(ctx, sv, target)
		if err != nil {
			return err
		}
	}

	if len(paths) == 0 && dropped == 0 {
		out.Success("Index already up to date")
		return nil
	}

	if err := sv.svc.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.Info("ingest_complete",
		slog.Int("dumps", indexed),
		slog.Int("symbols", symbolCount),
		slog.Int("dropped", dropped),
		slog.Duration("elapsed", time.Since(start)))

	if dropped > 0 {
		out.Statusf("🧹", "Dropped %d vanished dumps", dropped)
	}
	out.Successf("Indexed %d symbols from %d dumps in %s",
		symbolCount, indexed, time.Since(start).Round(time.Millisecond))
	return nil
}

// dumpResult is one dump file's parse outcome.
type dumpResult struct {
	path    string
	symbols []schema.SourceSymbolInfo
	err     error
}

// readDumps parses the dumps concurrently, keeping input order. Parse
// failures land in the result, not the returned error, so one bad dump
// never aborts a bulk ingest.
func readDumps(ctx context.Context, workers int, paths []string) ([]dumpResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	reader := extract.NewReader(extract.WithLogger(slog.Default()))

	results := make([]dumpResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			symbols, err := reader.ReadFile(p)
			results[i] = dumpResult{path: p, symbols: symbols, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dropVanishedDumps unindexes manifest records under dir whose dump no
// longer exists on disk. Removals are staged for the caller's commit.
func dropVanishedDumps(ctx context.Context, sv *services, dir string) (int, error) {
	records, err := sv.man.Files(ctx)
	if err != nil {
		return 0, err
	}

	dropped := 0
	prefix := dir + string(filepath.Separator)
	for _, rec := range records {
		if !strings.HasPrefix(rec.Path, prefix) {
			continue
		}
		if _, err := os.Stat(rec.Path); err == nil {
			continue
		}

		if err := sv.svc.Remove(ctx, []schema.FileRef{{URI: rec.Path}}); err != nil {
			return dropped, fmt.Errorf("remove vanished dump %s: %w", rec.Path, err)
		}
		if err := sv.man.RemoveFile(ctx, rec.Path); err != nil {
			return dropped, fmt.Errorf("drop manifest record %s: %w", rec.Path, err)
		}

		slog.Info("dump_vanished", slog.String("file", rec.Path))
		dropped++
	}
	return dropped, nil
}
