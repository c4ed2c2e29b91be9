package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codenav/symdex/internal/output"
	"github.com/codenav/symdex/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch the dump directory and reindex on change",
		Long: `Watch a dump directory and keep the index in sync.

Created or changed dumps are reindexed after a debounce window and
deleted dumps are removed, each in its own commit. Runs until
interrupted. Without an argument the configured dump directory is
watched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return runWatch(ctx, cmd, dir)
		},
	}
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string) error {
	startDir := dir
	if startDir == "" {
		startDir = "."
	}
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	cfg, root, err := loadConfig(absStart)
	if err != nil {
		return err
	}

	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	out := output.New(cmd.OutOrStdout())

	sv, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer sv.Close()

	if dir == "" {
		dir = cfg.ResolveDumpDir(root)
	} else {
		dir = absStart
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("cannot watch %s: %w", dir, err)
	}

	w, err := watcher.NewHybridWatcher(watcher.Options{
		DebounceWindow: cfg.Watch.DebounceDuration(),
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	re, err := watcher.NewReindexer(sv.svc, sv.man,
		watcher.WithReindexLogger(slog.Default()))
	if err != nil {
		return err
	}

	out.Statusf("👀", "Watching %s (debounce %s), Ctrl+C to stop", dir, cfg.Watch.Debounce)
	return re.Run(ctx, w, dir)
}
